package params

import (
	"database/sql/driver"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Type is the declared type tag of a procedure parameter.
type Type string

const (
	TypeBool    Type = "bool"
	TypeInt32   Type = "int32"
	TypeInt64   Type = "int64"
	TypeFloat64 Type = "float64"
	TypeDecimal Type = "decimal"
	TypeString  Type = "string"
	TypeBytes   Type = "bytes"
	TypeTime    Type = "time"
	TypeUUID    Type = "uuid"
)

// ValidTypes lists every supported parameter type tag.
var ValidTypes = []Type{
	TypeBool, TypeInt32, TypeInt64, TypeFloat64, TypeDecimal,
	TypeString, TypeBytes, TypeTime, TypeUUID,
}

// Valid reports whether t is a known type tag.
func (t Type) Valid() bool {
	for _, v := range ValidTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Param is one named, typed procedure argument.
//
// A nil Value binds SQL NULL regardless of Type.
type Param struct {
	Name  string
	Type  Type
	Value any
}

// Bind converts the parameter value into a database/sql driver value
// according to its declared type.
//
// The conversion is strict: a value that does not fit the declared type is an
// error, never a silent coercion.
func (p Param) Bind() (driver.Value, error) {
	if p.Value == nil {
		return nil, nil
	}

	switch p.Type {
	case TypeBool:
		if v, ok := p.Value.(bool); ok {
			return v, nil
		}
	case TypeInt32:
		switch v := p.Value.(type) {
		case int32:
			return int64(v), nil
		case int:
			if v >= -1<<31 && v <= 1<<31-1 {
				return int64(v), nil
			}
			return nil, fmt.Errorf("param %q: %d overflows int32", p.Name, v)
		}
	case TypeInt64:
		switch v := p.Value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		}
	case TypeFloat64:
		switch v := p.Value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		}
	case TypeDecimal:
		// Decimals travel as their exact string form.
		switch v := p.Value.(type) {
		case string:
			if _, ok := new(big.Rat).SetString(v); !ok {
				return nil, fmt.Errorf("param %q: %q is not a decimal", p.Name, v)
			}
			return v, nil
		case *big.Rat:
			return v.FloatString(decimalScale(v)), nil
		}
	case TypeString:
		if v, ok := p.Value.(string); ok {
			return v, nil
		}
	case TypeBytes:
		if v, ok := p.Value.([]byte); ok {
			return v, nil
		}
	case TypeTime:
		if v, ok := p.Value.(time.Time); ok {
			return v.UTC(), nil
		}
	case TypeUUID:
		switch v := p.Value.(type) {
		case uuid.UUID:
			return v.String(), nil
		case string:
			u, err := uuid.Parse(v)
			if err != nil {
				return nil, fmt.Errorf("param %q: %w", p.Name, err)
			}
			return u.String(), nil
		}
	default:
		return nil, fmt.Errorf("param %q: unknown type %q", p.Name, p.Type)
	}

	return nil, fmt.Errorf("param %q: value of type %T does not match declared type %s", p.Name, p.Value, p.Type)
}

// decimalScale picks the smallest number of fractional digits that renders r
// exactly, capped at 38 (the widest common SQL decimal precision).
func decimalScale(r *big.Rat) int {
	scaled := new(big.Int)
	for scale := 0; scale < 38; scale++ {
		scaled.Mul(r.Num(), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(scale)), nil))
		if new(big.Int).Mod(scaled, r.Denom()).Sign() == 0 {
			return scale
		}
	}
	return 38
}

// ParseValue parses the textual form of a parameter value for type t.
// Used by the CLI and config surfaces; library callers pass typed values.
func ParseValue(t Type, s string) (any, error) {
	switch t {
	case TypeBool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("invalid bool %q: %w", s, err)
		}
		return v, nil
	case TypeInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid int32 %q: %w", s, err)
		}
		return int32(v), nil
	case TypeInt64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid int64 %q: %w", s, err)
		}
		return v, nil
	case TypeFloat64:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float64 %q: %w", s, err)
		}
		return v, nil
	case TypeDecimal, TypeString:
		return s, nil
	case TypeBytes:
		return []byte(s), nil
	case TypeTime:
		v, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", s, err)
		}
		return v, nil
	case TypeUUID:
		v, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", s, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}
