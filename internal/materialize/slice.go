package materialize

import (
	"context"

	"github.com/roach88/sproc/internal/driver"
)

// maxInitialCap bounds the storage allocated up front from a capacity hint.
// Larger results grow past it as rows arrive.
const maxInitialCap = 1 << 16

// initialCap returns the up-front capacity for hint.
func initialCap(hint int) int {
	return min(max(hint, 1), maxInitialCap)
}

// ToSlice maps every remaining row of the current result set.
//
// Storage is pre-sized to hint, up to maxInitialCap, and grows by half its
// capacity when full. The result is never trimmed. On error the partial
// result is discarded.
func ToSlice[T any](ctx context.Context, cur driver.Cursor, mapper Mapper[T], hint int) ([]T, error) {
	return fill(ctx, cur, mapper, 0, make([]T, 0, initialCap(hint)))
}

// fill appends the mapped rows of the current set to buf.
func fill[T any](ctx context.Context, cur driver.Cursor, mapper Mapper[T], set int, buf []T) ([]T, error) {
	for row := 0; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !cur.Next() {
			break
		}
		v, err := mapper(cur)
		if err != nil {
			return nil, &MappingError{Set: set, Row: row, Err: err}
		}
		if len(buf) == cap(buf) {
			buf = grow(buf)
		}
		buf = append(buf, v)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return buf, nil
}

// grow returns buf copied into storage 1.5x its capacity.
func grow[T any](buf []T) []T {
	n := cap(buf) + cap(buf)/2
	if n <= cap(buf) {
		n = cap(buf) + 1
	}
	out := make([]T, len(buf), n)
	copy(out, buf)
	return out
}

// First maps the first row of the current result set. ok is false if the set
// is empty. Remaining rows are left unread.
func First[T any](ctx context.Context, cur driver.Cursor, mapper Mapper[T]) (v T, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return v, false, err
	}
	if !cur.Next() {
		return v, false, cur.Err()
	}
	v, err = mapper(cur)
	if err != nil {
		var zero T
		return zero, false, &MappingError{Err: err}
	}
	return v, true, nil
}

// Drain reads and discards every remaining row of every remaining result
// set, surfacing any error the procedure raised along the way.
func Drain(ctx context.Context, cur driver.Cursor) error {
	for {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !cur.Next() {
				break
			}
		}
		if err := cur.Err(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !cur.NextResultSet() {
			return cur.Err()
		}
	}
}
