package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/monynha/botecopro/platform/go/events"
	"github.com/monynha/botecopro/platform/go/tenant"
)

type mockDB struct {
	ensureFn func(ctx context.Context, space tenant.Space) (bool, error)
	checkFn  func(ctx context.Context, space tenant.Space) (bool, error)
}

func (m *mockDB) Ensure(ctx context.Context, space tenant.Space) (bool, error) {
	if m.ensureFn == nil {
		panic("ensureFn not configured")
	}
	return m.ensureFn(ctx, space)
}

func (m *mockDB) Check(ctx context.Context, space tenant.Space) (bool, error) {
	if m.checkFn == nil {
		panic("checkFn not configured")
	}
	return m.checkFn(ctx, space)
}

func TestProvision(t *testing.T) {
	t.Parallel()

	var ensured tenant.Space
	db := &mockDB{ensureFn: func(_ context.Context, space tenant.Space) (bool, error) {
		ensured = space
		return true, nil
	}}
	recorder := &events.Recorder{}
	svc := New(db, zaptest.NewLogger(t), WithPublisher(recorder))

	status, err := svc.Provision(context.Background(), "Bar_Da_Ana")
	require.NoError(t, err)
	require.Equal(t, Status{Handle: "Bar_Da_Ana", Schema: "boteco_bar_da_ana", Role: "boteco_bar_da_ana_role", Ready: true}, status)
	require.Equal(t, "boteco_bar_da_ana", ensured.SchemaName)

	published := recorder.Events()
	require.Len(t, published, 1)
	require.Equal(t, EventBotecoProvisioned, published[0].Type)
	require.Equal(t, "Bar_Da_Ana", published[0].Key)
}

func TestProvisionRejectsInvalidHandle(t *testing.T) {
	t.Parallel()

	svc := New(&mockDB{}, zaptest.NewLogger(t))
	for _, handle := range []string{"", "ab", "bar-da-ana", "bar da ana"} {
		_, err := svc.Provision(context.Background(), handle)
		require.True(t, IsInvalidHandle(err), handle)
	}
}

func TestProvisionDatabaseFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("permission denied")
	db := &mockDB{ensureFn: func(context.Context, tenant.Space) (bool, error) { return false, boom }}
	recorder := &events.Recorder{}

	_, err := New(db, zaptest.NewLogger(t), WithPublisher(recorder)).Provision(context.Background(), "bardoze")
	require.ErrorIs(t, err, boom)
	require.False(t, IsInvalidHandle(err))
	require.Empty(t, recorder.Events())
}

func TestProvisionPublishFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	db := &mockDB{ensureFn: func(context.Context, tenant.Space) (bool, error) { return true, nil }}
	recorder := &events.Recorder{}
	recorder.FailWith(errors.New("broker down"))

	status, err := New(db, zaptest.NewLogger(t), WithPublisher(recorder)).Provision(context.Background(), "bardoze")
	require.NoError(t, err)
	require.True(t, status.Ready)
}

func TestCheck(t *testing.T) {
	t.Parallel()

	db := &mockDB{checkFn: func(_ context.Context, space tenant.Space) (bool, error) {
		return space.SchemaName == "boteco_bardoze", nil
	}}
	svc := New(db, zaptest.NewLogger(t))

	status, err := svc.Check(context.Background(), "bardoze")
	require.NoError(t, err)
	require.True(t, status.Ready)

	status, err = svc.Check(context.Background(), "outro")
	require.NoError(t, err)
	require.False(t, status.Ready)
}
