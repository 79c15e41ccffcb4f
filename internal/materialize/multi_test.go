package materialize

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sproc/internal/testutil"
)

func TestReadAll(t *testing.T) {
	f := testutil.NewFakeConnector(
		testutil.ResultSet{Columns: []string{"id", "name"}, Rows: [][]any{{int64(1), "alice"}}},
		testutil.Rows("admin", "auditor"),
	)
	users := Into(mapUser)
	roles := Into(Scalar[string]())

	require.NoError(t, ReadAll(context.Background(), open(t, f), 1, users, roles))
	assert.Equal(t, []user{{1, "alice"}}, users.Rows)
	assert.Equal(t, []string{"admin", "auditor"}, roles.Rows)
}

func TestReadAll_Shortfall(t *testing.T) {
	f := testutil.NewFakeConnector(testutil.Rows(int64(1), int64(2)))
	a := Into(Scalar[int64]())
	b := Into(Scalar[int64]())
	c := Into(Scalar[string]())

	require.NoError(t, ReadAll(context.Background(), open(t, f), 1, a, b, c))
	assert.Equal(t, []int64{1, 2}, a.Rows)
	assert.NotNil(t, b.Rows)
	assert.Empty(t, b.Rows)
	assert.NotNil(t, c.Rows)
	assert.Empty(t, c.Rows)
}

func TestReadAll_IgnoresExtraSets(t *testing.T) {
	f := testutil.NewFakeConnector(testutil.Rows(int64(1)), testutil.Rows("unread"))
	var reached []int
	f.OnRow = func(set, _ int) { reached = append(reached, set) }
	a := Into(Scalar[int64]())

	require.NoError(t, ReadAll(context.Background(), open(t, f), 1, a))
	assert.Equal(t, []int64{1}, a.Rows)
	assert.Equal(t, []int{0}, reached)
}

func TestReadAll_ErrorDiscardsEverything(t *testing.T) {
	f := testutil.NewFakeConnector(testutil.Rows(int64(1)), testutil.Rows("not a number"))
	a := Into(Scalar[int64]())
	b := Into(Scalar[int64]())

	err := ReadAll(context.Background(), open(t, f), 1, a, b)
	var me *MappingError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 1, me.Set)
	assert.Nil(t, a.Rows)
	assert.Nil(t, b.Rows)
}

func TestReadAll_CancelledBetweenSets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := testutil.NewFakeConnector(testutil.Rows(int64(1)), testutil.Rows(int64(2)))
	f.OnRow = func(set, _ int) {
		if set == 0 {
			cancel()
		}
	}
	a := Into(Scalar[int64]())
	b := Into(Scalar[int64]())

	err := ReadAll(ctx, open(t, f), 1, a, b)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, a.Rows)
}

func TestReadTables(t *testing.T) {
	f := testutil.NewFakeConnector(
		testutil.ResultSet{Columns: []string{"id", "name"}, Rows: [][]any{{int64(1), "alice"}}},
		testutil.ResultSet{Columns: []string{"total"}},
	)

	tables, err := ReadTables(context.Background(), open(t, f), 1)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, []string{"id", "name"}, tables[0].Columns)
	assert.Equal(t, [][]any{{int64(1), "alice"}}, tables[0].Rows)
	assert.Equal(t, []string{"total"}, tables[1].Columns)
	assert.Empty(t, tables[1].Rows)
}

func TestTarget_RowsRoundTrip(t *testing.T) {
	src := Into(mapUser)
	src.Rows = []user{{1, "alice"}}
	assert.Equal(t, "[]materialize.user", src.Tag())

	data, err := src.MarshalRows()
	require.NoError(t, err)

	dst := Into(mapUser)
	require.NoError(t, dst.UnmarshalRows(data))
	assert.Equal(t, src.Rows, dst.Rows)

	require.NoError(t, dst.UnmarshalRows([]byte("null")))
	assert.NotNil(t, dst.Rows)
	assert.Empty(t, dst.Rows)
}
