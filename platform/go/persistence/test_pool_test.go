package persistence

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/monynha/botecopro/platform/go/persistence/pgtest"
)

// newTestPool returns a pool on a throwaway database with the core DDL applied.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	pool := pgtest.NewPool(t)
	ctx := context.Background()

	require.NoError(t, BootstrapCoreSchema(ctx, pool))
	// Second run proves the DDL is idempotent.
	require.NoError(t, BootstrapCoreSchema(ctx, pool))

	return pool
}
