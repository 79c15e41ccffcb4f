// Package catalog provides SQLite-backed storage for procedure definitions.
//
// SQLite has no stored procedures. The catalog emulates them: a procedure is
// a (schema, name) pair owning an ordered list of SQL statements. When the
// SQLite dialect executes a procedure, each statement runs in order on the
// same connection and every statement yields one result set, possibly
// empty.
//
// Statements reference parameters by name using any SQLite placeholder form
// (:name, @name or $name). Values are always bound, never interpolated.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Statements are deleted with their procedure
//
// The catalog tables live in the same database file as the application data,
// so procedures can be resolved on the connection that executes them.
package catalog
