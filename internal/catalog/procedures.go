package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a procedure is not defined in the catalog.
var ErrNotFound = errors.New("procedure not found")

// Procedure is one catalog entry.
type Procedure struct {
	Schema      string
	Name        string
	Description string
	Statements  []string
}

// QualifiedName returns Schema + "." + Name.
func (p Procedure) QualifiedName() string { return p.Schema + "." + p.Name }

// Querier is implemented by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Define creates or replaces a procedure. The replacement is atomic: readers
// see either the old statement list or the new one, never a mix.
func (s *Store) Define(ctx context.Context, p Procedure) error {
	if strings.TrimSpace(p.Schema) == "" || strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("define procedure: schema and name must not be empty")
	}
	if len(p.Statements) == 0 {
		return fmt.Errorf("define procedure %s: at least one statement is required", p.QualifiedName())
	}
	for i, stmt := range p.Statements {
		if strings.TrimSpace(stmt) == "" {
			return fmt.Errorf("define procedure %s: statement %d is empty", p.QualifiedName(), i)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin define: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO procedures (schema_name, procedure_name, description)
		VALUES (?, ?, ?)
		ON CONFLICT (schema_name, procedure_name) DO UPDATE SET description = excluded.description
	`, p.Schema, p.Name, p.Description); err != nil {
		return fmt.Errorf("upsert procedure: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM procedure_statements WHERE schema_name = ? AND procedure_name = ?
	`, p.Schema, p.Name); err != nil {
		return fmt.Errorf("clear statements: %w", err)
	}

	for i, stmt := range p.Statements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO procedure_statements (schema_name, procedure_name, ordinal, body)
			VALUES (?, ?, ?, ?)
		`, p.Schema, p.Name, i, stmt); err != nil {
			return fmt.Errorf("insert statement %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit define: %w", err)
	}
	return nil
}

// Drop removes a procedure and its statements.
// Returns ErrNotFound if the procedure is not defined.
func (s *Store) Drop(ctx context.Context, schema, name string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM procedures WHERE schema_name = ? AND procedure_name = ?
	`, schema, name)
	if err != nil {
		return fmt.Errorf("drop procedure: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("drop procedure: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s.%s: %w", schema, name, ErrNotFound)
	}
	return nil
}

// Lookup returns the statements of a procedure in execution order.
// Returns ErrNotFound if the procedure is not defined.
func (s *Store) Lookup(ctx context.Context, schema, name string) ([]string, error) {
	return LookupStatements(ctx, s.db, schema, name)
}

// LookupStatements resolves a procedure through q, which lets the executing
// connection resolve its own procedure without a second connection.
func LookupStatements(ctx context.Context, q Querier, schema, name string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT body
		FROM procedure_statements
		WHERE schema_name = ? AND procedure_name = ?
		ORDER BY ordinal ASC
	`, schema, name)
	if err != nil {
		return nil, fmt.Errorf("query statements: %w", err)
	}
	defer rows.Close()

	var statements []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		statements = append(statements, body)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate statements: %w", err)
	}

	if len(statements) == 0 {
		return nil, fmt.Errorf("%s.%s: %w", schema, name, ErrNotFound)
	}
	return statements, nil
}

// List returns every procedure ordered by schema then name.
func (s *Store) List(ctx context.Context) ([]Procedure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.schema_name, p.procedure_name, p.description, s.body
		FROM procedures p
		JOIN procedure_statements s
		  ON s.schema_name = p.schema_name AND s.procedure_name = p.procedure_name
		ORDER BY p.schema_name COLLATE BINARY ASC, p.procedure_name COLLATE BINARY ASC, s.ordinal ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query procedures: %w", err)
	}
	defer rows.Close()

	procedures := []Procedure{}
	for rows.Next() {
		var p Procedure
		var body string
		if err := rows.Scan(&p.Schema, &p.Name, &p.Description, &body); err != nil {
			return nil, fmt.Errorf("scan procedure: %w", err)
		}

		if n := len(procedures); n > 0 && procedures[n-1].Schema == p.Schema && procedures[n-1].Name == p.Name {
			procedures[n-1].Statements = append(procedures[n-1].Statements, body)
			continue
		}
		p.Statements = []string{body}
		procedures = append(procedures, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate procedures: %w", err)
	}

	return procedures, nil
}
