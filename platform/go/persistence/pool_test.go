package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewPoolRequiresConnString(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{ConnString: "  "})
	require.ErrorIs(t, err, errConnString)
}

func TestNewPoolRejectsMalformedConnString(t *testing.T) {
	_, err := NewPool(context.Background(), PoolConfig{ConnString: "postgres://%zz"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse pgx pool config")
}

func TestPingWithRetryRecovers(t *testing.T) {
	calls := 0
	ping := func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}

	require.NoError(t, pingWithRetry(context.Background(), ping, 5, time.Millisecond))
	require.Equal(t, 3, calls)
}

func TestPingWithRetryGivesUp(t *testing.T) {
	calls := 0
	refused := errors.New("connection refused")
	ping := func(context.Context) error {
		calls++
		return refused
	}

	err := pingWithRetry(context.Background(), ping, 2, time.Millisecond)
	require.ErrorIs(t, err, refused)
	require.Equal(t, 2, calls)
}

func TestPingWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	refused := errors.New("connection refused")
	ping := func(context.Context) error {
		cancel()
		return refused
	}

	err := pingWithRetry(ctx, ping, 10, time.Hour)
	require.ErrorIs(t, err, refused)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClosePoolNil(t *testing.T) {
	require.NotPanics(t, func() { ClosePool(nil) })
}
