package params

import (
	"bytes"
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCapacityHint is the capacity hint used when none is given.
const DefaultCapacityHint = 1

// Set is the immutable descriptor of one procedure call.
//
// Build Sets with NewBuilder. The zero Set is invalid; Validate reports why.
type Set struct {
	schema       string
	procedure    string
	params       []Param
	capacityHint int
	cache        CacheDirective
	hasCache     bool
}

// Schema returns the schema part of the qualified name.
func (s Set) Schema() string { return s.schema }

// Procedure returns the procedure part of the qualified name.
func (s Set) Procedure() string { return s.procedure }

// QualifiedName returns schema + "." + procedure, used verbatim as the
// executable unit name. There is no implicit schema defaulting.
func (s Set) QualifiedName() string { return s.schema + "." + s.procedure }

// Params returns a copy of the parameters in declared order.
func (s Set) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// CapacityHint returns the caller's row-count estimate (at least 1).
func (s Set) CapacityHint() int {
	if s.capacityHint < 1 {
		return DefaultCapacityHint
	}
	return s.capacityHint
}

// Cache returns the cache directive, if one is attached.
func (s Set) Cache() (CacheDirective, bool) { return s.cache, s.hasCache }

// Validate checks the invariants every executable Set must satisfy.
// The returned error is an *ArgumentError.
func (s Set) Validate() error {
	if strings.TrimSpace(s.schema) == "" {
		return argErrorf("schema", "must not be empty")
	}
	if strings.TrimSpace(s.procedure) == "" {
		return argErrorf("procedure", "must not be empty")
	}

	seen := make(map[string]struct{}, len(s.params))
	for i, p := range s.params {
		field := fmt.Sprintf("param[%d]", i)
		if p.Name == "" {
			return argErrorf(field, "name must not be empty")
		}
		if !p.Type.Valid() {
			return argErrorf(field, "unknown type %q for %q", p.Type, p.Name)
		}
		key := strings.ToLower(p.Name)
		if _, dup := seen[key]; dup {
			return argErrorf(field, "duplicate parameter %q", p.Name)
		}
		seen[key] = struct{}{}
	}

	if s.hasCache {
		if err := s.cache.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality of two Sets.
func (s Set) Equal(o Set) bool {
	if s.schema != o.schema || s.procedure != o.procedure ||
		s.CapacityHint() != o.CapacityHint() ||
		s.hasCache != o.hasCache || s.cache != o.cache ||
		len(s.params) != len(o.params) {
		return false
	}
	for i := range s.params {
		if !paramEqual(s.params[i], o.params[i]) {
			return false
		}
	}
	return true
}

func paramEqual(a, b Param) bool {
	if a.Name != b.Name || a.Type != b.Type {
		return false
	}
	switch av := a.Value.(type) {
	case []byte:
		bv, ok := b.Value.([]byte)
		return ok && bytes.Equal(av, bv)
	case time.Time:
		bv, ok := b.Value.(time.Time)
		return ok && av.Equal(bv)
	case *big.Rat:
		bv, ok := b.Value.(*big.Rat)
		return ok && av.Cmp(bv) == 0
	}
	return reflect.DeepEqual(a.Value, b.Value)
}

// Builder assembles a Set. Builders are not safe for concurrent use; the Set
// they build is immutable.
type Builder struct {
	set Set
}

// NewBuilder starts a Set for schema.procedure.
func NewBuilder(schema, procedure string) *Builder {
	return &Builder{set: Set{schema: schema, procedure: procedure, capacityHint: DefaultCapacityHint}}
}

// Param appends a parameter with an explicit type tag.
func (b *Builder) Param(name string, t Type, value any) *Builder {
	b.set.params = append(b.set.params, Param{Name: name, Type: t, Value: value})
	return b
}

// Bool appends a bool parameter.
func (b *Builder) Bool(name string, v bool) *Builder { return b.Param(name, TypeBool, v) }

// Int32 appends an int32 parameter.
func (b *Builder) Int32(name string, v int32) *Builder { return b.Param(name, TypeInt32, v) }

// Int64 appends an int64 parameter.
func (b *Builder) Int64(name string, v int64) *Builder { return b.Param(name, TypeInt64, v) }

// Float64 appends a float64 parameter.
func (b *Builder) Float64(name string, v float64) *Builder { return b.Param(name, TypeFloat64, v) }

// Decimal appends a decimal parameter given in its exact decimal text form.
func (b *Builder) Decimal(name string, v string) *Builder { return b.Param(name, TypeDecimal, v) }

// Text appends a string parameter.
func (b *Builder) Text(name string, v string) *Builder { return b.Param(name, TypeString, v) }

// Bytes appends a binary parameter.
func (b *Builder) Bytes(name string, v []byte) *Builder { return b.Param(name, TypeBytes, v) }

// Time appends a timestamp parameter. It binds in UTC.
func (b *Builder) Time(name string, v time.Time) *Builder { return b.Param(name, TypeTime, v) }

// UUID appends a uuid parameter. It binds in canonical string form.
func (b *Builder) UUID(name string, v uuid.UUID) *Builder { return b.Param(name, TypeUUID, v) }

// Null appends a parameter that binds SQL NULL.
func (b *Builder) Null(name string, t Type) *Builder { return b.Param(name, t, nil) }

// Capacity sets the capacity hint. Values below 1 fall back to the default.
func (b *Builder) Capacity(n int) *Builder {
	b.set.capacityHint = n
	return b
}

// Cache attaches a cache directive.
func (b *Builder) Cache(d CacheDirective) *Builder {
	b.set.cache, b.set.hasCache = d, true
	return b
}

// Build validates and returns the Set.
func (b *Builder) Build() (Set, error) {
	s := b.set
	s.params = append([]Param(nil), b.set.params...)
	if s.capacityHint < 1 {
		s.capacityHint = DefaultCapacityHint
	}
	if err := s.Validate(); err != nil {
		return Set{}, err
	}
	return s, nil
}

// MustBuild is like Build but panics on an invalid Set. Intended for
// package-level call descriptors built from literals.
func (b *Builder) MustBuild() Set {
	s, err := b.Build()
	if err != nil {
		panic(err.Error())
	}
	return s
}
