package materialize

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"reflect"
	"sync"

	"github.com/roach88/sproc/internal/driver"
)

// maxPooledCap bounds the scratch buffers kept for reuse.
const maxPooledCap = 1 << 16

// pools holds one *sync.Pool of *[]T per element type.
var pools sync.Map

func poolFor[T any]() *sync.Pool {
	t := reflect.TypeFor[T]()
	if p, ok := pools.Load(t); ok {
		return p.(*sync.Pool)
	}
	p, _ := pools.LoadOrStore(t, &sync.Pool{})
	return p.(*sync.Pool)
}

// checkout returns an empty scratch buffer with capacity of at least hint.
func checkout[T any](hint int) *[]T {
	if v := poolFor[T]().Get(); v != nil {
		bp := v.(*[]T)
		if cap(*bp) < hint {
			*bp = make([]T, 0, hint)
		}
		return bp
	}
	b := make([]T, 0, hint)
	return &b
}

// release clears bp and returns it to its pool.
func release[T any](bp *[]T) {
	if cap(*bp) > maxPooledCap {
		return
	}
	clear((*bp)[:cap(*bp)])
	*bp = (*bp)[:0]
	poolFor[T]().Put(bp)
}

// ErrSealed is returned when decoding into a Snapshot that already holds a
// value.
var ErrSealed = errors.New("materialize: snapshot is sealed")

// Snapshot is a sealed, read-only sequence. The zero value is empty and can
// be decoded into exactly once.
type Snapshot[T any] struct {
	items  []T
	sealed bool
}

// ToSnapshot maps every remaining row of the current result set into a
// Snapshot. Rows are collected in a pooled scratch buffer sized to hint,
// then copied into exact-size storage; the scratch buffer is returned to
// the pool on every path.
func ToSnapshot[T any](ctx context.Context, cur driver.Cursor, mapper Mapper[T], hint int) (*Snapshot[T], error) {
	bp := checkout[T](initialCap(hint))
	defer release(bp)

	buf, err := fill(ctx, cur, mapper, 0, *bp)
	if err != nil {
		return nil, err
	}
	// fill may have outgrown the scratch buffer; keep the larger one pooled.
	*bp = buf

	return NewSnapshot(buf), nil
}

// NewSnapshot seals a copy of items.
func NewSnapshot[T any](items []T) *Snapshot[T] {
	sealed := make([]T, len(items))
	copy(sealed, items)
	return &Snapshot[T]{items: sealed, sealed: true}
}

// Len returns the number of items.
func (s *Snapshot[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// At returns the i'th item. It panics if i is out of range.
func (s *Snapshot[T]) At(i int) T { return s.items[i] }

// All iterates index/value pairs in order.
func (s *Snapshot[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if s == nil {
			return
		}
		for i, v := range s.items {
			if !yield(i, v) {
				return
			}
		}
	}
}

// Slice returns a mutable copy of the items.
func (s *Snapshot[T]) Slice() []T {
	out := make([]T, s.Len())
	if s != nil {
		copy(out, s.items)
	}
	return out
}

// MarshalJSON encodes the snapshot as a JSON array.
func (s *Snapshot[T]) MarshalJSON() ([]byte, error) {
	if s == nil || s.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.items)
}

// UnmarshalJSON decodes a JSON array into a zero Snapshot and seals it. It
// returns ErrSealed for a Snapshot that was built or decoded before.
func (s *Snapshot[T]) UnmarshalJSON(data []byte) error {
	if s.sealed {
		return ErrSealed
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	s.items, s.sealed = items, true
	return nil
}
