// Package materialize turns a driver.Cursor into in-memory results.
//
// Three shapes are offered for a single result set:
//
//	ToSlice     growable slice pre-sized to the capacity hint
//	ToSnapshot  sealed, read-only Snapshot built in a pooled scratch buffer
//	NewStream   lazy pull stream, one mapped value per Next
//
// ReadAll consumes several result sets of one execution, one Target per set.
//
// Rows are mapped by a caller-supplied Mapper that reads columns by ordinal.
// A mapping failure aborts materialization and no partial result is
// returned. The context is checked before every row and result-set advance.
package materialize
