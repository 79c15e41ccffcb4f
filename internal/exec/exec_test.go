package exec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sproc/internal/driver"
	"github.com/roach88/sproc/internal/params"
	"github.com/roach88/sproc/internal/testutil"
)

func getUsers(t *testing.T) params.Set {
	t.Helper()
	set, err := params.NewBuilder("dbo", "GetUsers").Int64("tenant_id", 7).Build()
	require.NoError(t, err)
	return set
}

func TestExecute_RunsProcedure(t *testing.T) {
	f := testutil.NewFakeConnector(testutil.Rows(int64(1), int64(2)))
	x, err := New(f).Execute(context.Background(), getUsers(t))
	require.NoError(t, err)
	assert.Equal(t, "dbo.GetUsers", x.Procedure())

	var got []int64
	for x.Next() {
		var v int64
		require.NoError(t, x.Scan(&v))
		got = append(got, v)
	}
	require.NoError(t, x.Err())
	assert.Equal(t, []int64{1, 2}, got)

	require.NoError(t, x.Close())
	require.NoError(t, x.Close())
	assert.Equal(t, 0, f.OpenConns())
	assert.Equal(t, 0, f.OpenCursors())
	assert.True(t, f.ClosedExactlyOnce())

	calls := f.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "dbo", calls[0].Schema)
	assert.Equal(t, "GetUsers", calls[0].Procedure)
	require.Len(t, calls[0].Params, 1)
	assert.Equal(t, "tenant_id", calls[0].Params[0].Name)
}

func TestExecute_InvalidSetFailsBeforeIO(t *testing.T) {
	f := testutil.NewFakeConnector()

	_, err := New(f).Execute(context.Background(), params.Set{})
	require.Error(t, err)
	assert.True(t, params.IsArgumentError(err))
	assert.False(t, IsExecutionError(err))
	assert.Equal(t, 0, f.Connects())
}

func TestExecute_ConnectFailure(t *testing.T) {
	boom := errors.New("connection refused")
	f := testutil.NewFakeConnector()
	f.ConnectErr = boom

	_, err := New(f).Execute(context.Background(), getUsers(t))
	require.Error(t, err)
	assert.True(t, IsConnectFailed(err))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "dbo.GetUsers")
}

func TestExecute_CallFailureReleasesConnection(t *testing.T) {
	boom := errors.New("procedure raised error 50000")
	f := testutil.NewFakeConnector()
	f.CallErr = boom

	_, err := New(f).Execute(context.Background(), getUsers(t))
	require.Error(t, err)

	var ee *ExecutionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, ErrCodeExecutionFailed, ee.Code)
	assert.Equal(t, "dbo.GetUsers", ee.Procedure)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 1, f.Connects())
	assert.Equal(t, 0, f.OpenConns())
	assert.True(t, f.ClosedExactlyOnce())
}

func TestExecute_CancelledBeforeConnect(t *testing.T) {
	f := testutil.NewFakeConnector()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f).Execute(ctx, getUsers(t))
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, f.Connects())
}

// cancellingConnector cancels the call's context once a connection is handed
// out, so the cancellation lands between connect and call.
type cancellingConnector struct {
	*testutil.FakeConnector
	cancel context.CancelFunc
}

func (c cancellingConnector) Connect(ctx context.Context) (driver.Conn, error) {
	conn, err := c.FakeConnector.Connect(ctx)
	c.cancel()
	return conn, err
}

func TestExecute_CancelledAfterConnectReleasesConnection(t *testing.T) {
	f := testutil.NewFakeConnector()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := New(cancellingConnector{FakeConnector: f, cancel: cancel}).Execute(ctx, getUsers(t))
	require.Error(t, err)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, 1, f.Connects())
	assert.Equal(t, 0, f.OpenConns())
	assert.Empty(t, f.Calls())
}

func TestAttribute(t *testing.T) {
	assert.NoError(t, Attribute(ErrCodeExecutionFailed, "dbo.P", nil))

	boom := errors.New("boom")
	err := Attribute(ErrCodeMappingFailed, "dbo.P", boom)
	assert.True(t, IsMappingFailed(err))
	assert.ErrorIs(t, err, boom)

	// Already attributed errors pass through untouched.
	assert.Same(t, err, Attribute(ErrCodeExecutionFailed, "dbo.Q", err))

	err = Attribute(ErrCodeExecutionFailed, "dbo.P", context.DeadlineExceeded)
	assert.True(t, IsCancelled(err))
}
