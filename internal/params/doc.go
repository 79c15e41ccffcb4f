// Package params defines the immutable call descriptors used by sproc.
//
// A Set names one stored procedure (schema + procedure, used verbatim as the
// qualified name), the ordered, typed parameters bound to it, a capacity hint
// for result materialization and an optional CacheDirective.
//
// Sets are built once per call-site, used once and discarded. Nothing in this
// package performs I/O.
package params
