// Package procsql renders stored-procedure calls for a database engine.
//
// A Dialect turns a qualified procedure name and its typed parameters into
// one or more parameterized statements. Dialects never interpolate values:
// every argument travels as a bound parameter, so procedure calls are immune
// to SQL injection by construction.
//
//	stmts, err := procsql.SQLServer{}.Compile(ctx, nil, "dbo", "GetUsers", ps)
//	// EXEC [dbo].[GetUsers] @tenant_id = @tenant_id
package procsql
