package materialize

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/roach88/sproc/internal/driver"
)

// ResultSet receives one result set in ReadAll. Build one with Into.
//
// The exported methods let a caller carry a read result through a cache:
// Tag names the row type, and the rows round-trip through JSON.
type ResultSet interface {
	Tag() string
	MarshalRows() ([]byte, error)
	UnmarshalRows(data []byte) error

	read(ctx context.Context, cur driver.Cursor, set, hint int) error
	empty()
	discard()
}

// Target collects one result set. Rows is populated by ReadAll.
type Target[T any] struct {
	mapper Mapper[T]
	Rows   []T
}

// Into returns a Target mapping its result set with mapper.
func Into[T any](mapper Mapper[T]) *Target[T] {
	return &Target[T]{mapper: mapper}
}

func (t *Target[T]) read(ctx context.Context, cur driver.Cursor, set, hint int) error {
	rows, err := fill(ctx, cur, t.mapper, set, make([]T, 0, initialCap(hint)))
	if err != nil {
		return err
	}
	t.Rows = rows
	return nil
}

// Tag returns the type string of []T.
func (t *Target[T]) Tag() string { return reflect.TypeFor[[]T]().String() }

// MarshalRows encodes Rows as JSON.
func (t *Target[T]) MarshalRows() ([]byte, error) { return json.Marshal(t.Rows) }

// UnmarshalRows replaces Rows with the decoded data. A JSON null decodes
// to an empty, non-nil Rows.
func (t *Target[T]) UnmarshalRows(data []byte) error {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}
	if rows == nil {
		rows = []T{}
	}
	t.Rows = rows
	return nil
}

func (t *Target[T]) empty()   { t.Rows = []T{} }
func (t *Target[T]) discard() { t.Rows = nil }

// ReadAll reads one result set per target, in order, sharing hint.
//
// If the cursor runs out of result sets first, every remaining target
// receives an empty, non-nil Rows; that is not an error. Sets beyond the last
// target are never advanced to. On error every target is reset to nil.
func ReadAll(ctx context.Context, cur driver.Cursor, hint int, sets ...ResultSet) error {
	if err := readAll(ctx, cur, hint, sets); err != nil {
		for _, s := range sets {
			s.discard()
		}
		return err
	}
	return nil
}

func readAll(ctx context.Context, cur driver.Cursor, hint int, sets []ResultSet) error {
	for i, s := range sets {
		if i > 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !cur.NextResultSet() {
				if err := cur.Err(); err != nil {
					return err
				}
				for _, rest := range sets[i:] {
					rest.empty()
				}
				return nil
			}
		}
		if err := s.read(ctx, cur, i, hint); err != nil {
			return err
		}
	}
	return nil
}

// Table is one result set read without a typed mapper.
type Table struct {
	Columns []string
	Rows    [][]any
}

// ReadTables reads every remaining result set as untyped rows.
func ReadTables(ctx context.Context, cur driver.Cursor, hint int) ([]Table, error) {
	var tables []Table
	for set := 0; ; set++ {
		cols, err := cur.Columns()
		if err != nil {
			return nil, err
		}
		rows, err := fill(ctx, cur, Values(len(cols)), set, make([][]any, 0, initialCap(hint)))
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Columns: cols, Rows: rows})

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !cur.NextResultSet() {
			if err := cur.Err(); err != nil {
				return nil, err
			}
			return tables, nil
		}
	}
}
