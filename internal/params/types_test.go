package params

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParam_Bind(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	local := time.Date(2024, 5, 6, 7, 8, 9, 0, time.FixedZone("X", 3600))

	tests := []struct {
		name  string
		param Param
		want  any
	}{
		{"bool", Param{"b", TypeBool, true}, true},
		{"int32", Param{"i", TypeInt32, int32(5)}, int64(5)},
		{"int32 from int", Param{"i", TypeInt32, 5}, int64(5)},
		{"int64", Param{"i", TypeInt64, int64(1) << 40}, int64(1) << 40},
		{"float64", Param{"f", TypeFloat64, 1.5}, 1.5},
		{"decimal string", Param{"d", TypeDecimal, "12.50"}, "12.50"},
		{"decimal rat", Param{"d", TypeDecimal, big.NewRat(5, 4)}, "1.25"},
		{"string", Param{"s", TypeString, "x"}, "x"},
		{"bytes", Param{"b", TypeBytes, []byte("x")}, []byte("x")},
		{"time is UTC", Param{"t", TypeTime, local}, local.UTC()},
		{"uuid", Param{"u", TypeUUID, id}, id.String()},
		{"uuid string", Param{"u", TypeUUID, "6BA7B810-9DAD-11D1-80B4-00C04FD430C8"}, id.String()},
		{"null", Param{"n", TypeInt64, nil}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.param.Bind()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParam_Bind_Mismatch(t *testing.T) {
	tests := []Param{
		{"b", TypeBool, "true"},
		{"i", TypeInt32, 1 << 40},
		{"i", TypeInt64, "1"},
		{"d", TypeDecimal, "twelve"},
		{"u", TypeUUID, "not-a-uuid"},
		{"x", Type("money"), 1},
	}

	for _, p := range tests {
		_, err := p.Bind()
		assert.Error(t, err, "param %+v", p)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(TypeInt32, "42")
	require.NoError(t, err)
	assert.Equal(t, int32(42), v)

	v, err = ParseValue(TypeBool, "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = ParseValue(TypeTime, "2024-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), v)

	_, err = ParseValue(TypeInt64, "12abc")
	assert.Error(t, err)

	_, err = ParseValue(Type("money"), "1")
	assert.Error(t, err)
}

func TestDeriveKey(t *testing.T) {
	a := NewBuilder("dbo", "GetUsers").Int64("id", 1).Text("name", "café").MustBuild()
	b := NewBuilder("dbo", "GetUsers").Int32("id", 1).Text("name", "café").MustBuild()
	c := NewBuilder("dbo", "GetUsers").Int64("id", 2).Text("name", "café").MustBuild()

	ka, err := DeriveKey(a)
	require.NoError(t, err)
	kc, err := DeriveKey(c)
	require.NoError(t, err)

	assert.Len(t, ka, 64)
	assert.NotEqual(t, ka, kc)

	// Same bound value, different tag: the tag is part of the key.
	kb, err := DeriveKey(b)
	require.NoError(t, err)
	assert.NotEqual(t, ka, kb)

	again, err := DeriveKey(a)
	require.NoError(t, err)
	assert.Equal(t, ka, again)
}

func TestDeriveKey_BindError(t *testing.T) {
	s := NewBuilder("dbo", "p").Param("x", TypeInt64, "nope").MustBuild()
	_, err := DeriveKey(s)
	assert.Error(t, err)
}
