package materialize

import (
	"fmt"

	"github.com/roach88/sproc/internal/driver"
)

// Mapper maps the current row to a T, reading columns by zero-based ordinal.
// Mappers must not advance the row.
type Mapper[T any] func(driver.Row) (T, error)

// Scalar returns a Mapper reading column 0 into a T.
func Scalar[T any]() Mapper[T] {
	return func(r driver.Row) (T, error) {
		var v T
		err := r.Scan(&v)
		return v, err
	}
}

// Values returns a Mapper reading the first n columns as []any.
func Values(n int) Mapper[[]any] {
	return func(r driver.Row) ([]any, error) {
		vals := make([]any, n)
		ptrs := make([]any, n)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := r.Scan(ptrs...); err != nil {
			return nil, err
		}
		return vals, nil
	}
}

// MappingError reports a Mapper failure.
type MappingError struct {
	// Set is the zero-based result set index.
	Set int

	// Row is the zero-based row index within the set.
	Row int

	Err error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	return fmt.Sprintf("map row %d of result set %d: %v", e.Row, e.Set, e.Err)
}

// Unwrap returns the mapper's error.
func (e *MappingError) Unwrap() error { return e.Err }
