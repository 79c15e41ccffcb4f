package procsql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/roach88/sproc/internal/catalog"
	"github.com/roach88/sproc/internal/params"
)

// Statement is one parameterized SQL statement of a procedure call.
type Statement struct {
	Query string
	Args  []any
}

// Querier is implemented by *sql.Conn; dialects that need to resolve the
// procedure body (SQLite) query through the executing connection.
type Querier = catalog.Querier

// Dialect renders a stored-procedure call for one database engine.
//
// CRITICAL: All values are parameterized (never interpolated). Identifiers
// are quoted per dialect and rejected if they could escape the quoting.
type Dialect interface {
	// Name returns the dialect name used in configuration ("sqlserver", ...).
	Name() string

	// Compile renders the statements that invoke schema.procedure with ps,
	// bound by name in declared order.
	Compile(ctx context.Context, q Querier, schema, procedure string, ps []params.Param) ([]Statement, error)
}

// ByName returns the dialect registered under name.
func ByName(name string) (Dialect, error) {
	switch name {
	case "sqlserver", "mssql":
		return SQLServer{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("unknown dialect %q", name)
	}
}

// SQLServer renders `EXEC [schema].[procedure] @a = @a, ...` with named
// arguments, so the server runs the procedure with parameterized inputs and
// reuses its cached plan.
type SQLServer struct{}

// Name returns "sqlserver".
func (SQLServer) Name() string { return "sqlserver" }

// Compile renders one EXEC statement binding ps as named arguments.
func (SQLServer) Compile(_ context.Context, _ Querier, schema, procedure string, ps []params.Param) ([]Statement, error) {
	name, err := quoteParts('[', ']', schema, procedure)
	if err != nil {
		return nil, err
	}

	args, err := bindNamed(ps)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("EXEC ")
	b.WriteString(name)
	for i, p := range ps {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, " @%s = @%s", p.Name, p.Name)
	}
	return []Statement{{Query: b.String(), Args: args}}, nil
}

// Postgres renders a set-returning function call using named notation:
// `SELECT * FROM "schema"."procedure"(a => $1, b => $2)`.
type Postgres struct{}

// Name returns "postgres".
func (Postgres) Name() string { return "postgres" }

// Compile renders one SELECT over the set-returning function. Each
// parameter is passed by name and bound to the next $n placeholder.
func (Postgres) Compile(_ context.Context, _ Querier, schema, procedure string, ps []params.Param) ([]Statement, error) {
	name, err := quoteParts('"', '"', schema, procedure)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(ps))
	parts := make([]string, 0, len(ps))
	for i, p := range ps {
		if err := checkParamName(p.Name); err != nil {
			return nil, err
		}
		v, err := p.Bind()
		if err != nil {
			return nil, err
		}
		args = append(args, v)
		parts = append(parts, fmt.Sprintf("%s => $%d", p.Name, i+1))
	}

	query := fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(parts, ", "))
	return []Statement{{Query: query, Args: args}}, nil
}

// SQLite resolves the procedure from the catalog tables on the executing
// connection. Every catalog statement receives the full named argument list;
// SQLite binds only the names a statement references.
type SQLite struct{}

// Name returns "sqlite".
func (SQLite) Name() string { return "sqlite" }

// Compile resolves the procedure's statements from the catalog through q
// and binds ps by name to each of them.
func (SQLite) Compile(ctx context.Context, q Querier, schema, procedure string, ps []params.Param) ([]Statement, error) {
	if q == nil {
		return nil, fmt.Errorf("sqlite dialect requires a querier to resolve %s.%s", schema, procedure)
	}

	args, err := bindNamed(ps)
	if err != nil {
		return nil, err
	}

	bodies, err := catalog.LookupStatements(ctx, q, schema, procedure)
	if err != nil {
		return nil, err
	}

	stmts := make([]Statement, len(bodies))
	for i, body := range bodies {
		stmts[i] = Statement{Query: body, Args: args}
	}
	return stmts, nil
}

// bindNamed converts ps to sql.NamedArg values in declared order.
func bindNamed(ps []params.Param) ([]any, error) {
	args := make([]any, 0, len(ps))
	for _, p := range ps {
		if err := checkParamName(p.Name); err != nil {
			return nil, err
		}
		v, err := p.Bind()
		if err != nil {
			return nil, err
		}
		args = append(args, sql.Named(p.Name, v))
	}
	return args, nil
}

// quoteParts quotes each identifier part and joins them with ".".
func quoteParts(lq, rq rune, parts ...string) (string, error) {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		if part == "" || strings.ContainsRune(part, rq) || strings.ContainsRune(part, 0) {
			return "", fmt.Errorf("invalid identifier %q", part)
		}
		quoted[i] = string(lq) + part + string(rq)
	}
	return strings.Join(quoted, "."), nil
}

// checkParamName accepts [A-Za-z_][A-Za-z0-9_]*. Parameter names appear in the
// statement text as placeholders, so nothing else is allowed.
func checkParamName(name string) error {
	if name == "" {
		return fmt.Errorf("invalid parameter name %q", name)
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return fmt.Errorf("invalid parameter name %q", name)
		}
	}
	return nil
}
