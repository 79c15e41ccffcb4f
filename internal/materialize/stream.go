package materialize

import (
	"context"
	"io"
	"iter"
	"sync"

	"github.com/roach88/sproc/internal/driver"
)

// Stream lazily maps the rows of the current result set, one per Next.
//
// A Stream is finite and single-pass: once exhausted, failed or closed it
// yields nothing further and never re-executes the call. It closes its owner
// as soon as it ends, so callers that drain it need not Close it, though
// doing so is always safe.
//
// Streams are not safe for concurrent use.
type Stream[T any] struct {
	cur    driver.Cursor
	mapper Mapper[T]
	owner  io.Closer

	value T
	row   int
	done  bool
	err   error

	wrap  func(error) error
	onEnd func(error)
	ended bool

	once     sync.Once
	closeErr error
}

// StreamOption configures a Stream.
type StreamOption func(*streamOptions)

type streamOptions struct {
	wrap  func(error) error
	onEnd func(error)
}

// WithErrorWrap rewrites every error that ends the stream before Err reports
// it.
func WithErrorWrap(wrap func(error) error) StreamOption {
	return func(o *streamOptions) { o.wrap = wrap }
}

// OnEnd registers fn to run once when the stream ends: exhausted, failed or
// closed early. fn receives the error Err will report, or nil.
func OnEnd(fn func(error)) StreamOption {
	return func(o *streamOptions) { o.onEnd = fn }
}

// NewStream returns a Stream over cur. owner is closed when the stream ends;
// if nil, cur itself is closed.
func NewStream[T any](cur driver.Cursor, mapper Mapper[T], owner io.Closer, opts ...StreamOption) *Stream[T] {
	if owner == nil {
		owner = cur
	}
	var o streamOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Stream[T]{cur: cur, mapper: mapper, owner: owner, wrap: o.wrap, onEnd: o.onEnd}
}

// Next advances to the next value. It returns false when the result set is
// exhausted, on error, on cancellation and after Close; check Err.
func (s *Stream[T]) Next(ctx context.Context) bool {
	if s.done {
		return false
	}
	if err := ctx.Err(); err != nil {
		s.finish(err)
		return false
	}
	if !s.cur.Next() {
		s.finish(s.cur.Err())
		return false
	}
	v, err := s.mapper(s.cur)
	if err != nil {
		s.finish(&MappingError{Row: s.row, Err: err})
		return false
	}
	s.value = v
	s.row++
	return true
}

// Value returns the value produced by the last successful Next.
func (s *Stream[T]) Value() T { return s.value }

// Err returns the error that ended the stream, if any.
func (s *Stream[T]) Err() error { return s.err }

// Close ends the stream and closes its owner. It is idempotent.
func (s *Stream[T]) Close() error {
	s.done = true
	var zero T
	s.value = zero
	err := s.closeOwner()
	if err != nil && s.wrap != nil {
		err = s.wrap(err)
	}
	s.end(err)
	return err
}

// All adapts the stream to a range-over-func iterator. Breaking out of the
// loop closes the stream.
func (s *Stream[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for s.Next(ctx) {
			if !yield(s.value) {
				s.Close()
				return
			}
		}
	}
}

func (s *Stream[T]) finish(err error) {
	s.done = true
	var zero T
	s.value = zero
	closeErr := s.closeOwner()
	if err == nil {
		err = closeErr
	}
	if err != nil && s.wrap != nil {
		err = s.wrap(err)
	}
	s.err = err
	s.end(err)
}

// end runs the OnEnd hook the first time the stream ends.
func (s *Stream[T]) end(err error) {
	if s.ended {
		return
	}
	s.ended = true
	if s.onEnd != nil {
		s.onEnd(err)
	}
}

func (s *Stream[T]) closeOwner() error {
	s.once.Do(func() { s.closeErr = s.owner.Close() })
	return s.closeErr
}
