package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monynha/botecopro/platform/go/tenant"
)

// txBeginner exposes the minimal pgx pool behaviour needed by SpaceDB.
type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// SpaceDB runs work inside a boteco schema under that boteco's role.
type SpaceDB struct {
	pool         txBeginner
	sharedSchema string
}

type SpaceDBConfig struct {
	Pool *pgxpool.Pool
	// SharedSchema holds users/boteco/user_boteco. Empty means "public".
	SharedSchema string
}

func NewSpaceDB(cfg SpaceDBConfig) *SpaceDB {
	if cfg.Pool == nil {
		panic("SpaceDB requires pool")
	}

	shared := strings.TrimSpace(cfg.SharedSchema)
	if shared == "" {
		shared = "public"
	}
	return &SpaceDB{pool: cfg.Pool, sharedSchema: shared}
}

// SharedSchema returns the schema that holds the onboarding tables.
func (db *SpaceDB) SharedSchema() string {
	return db.sharedSchema
}

// WithSpace executes fn in a transaction with SET LOCAL ROLE to the space role and
// search_path set to the space schema followed by the shared schema.
func (db *SpaceDB) WithSpace(ctx context.Context, space tenant.Space, fn func(tx pgx.Tx) error) error {
	if strings.TrimSpace(space.RoleName) == "" || strings.TrimSpace(space.SchemaName) == "" {
		return fmt.Errorf("space role and schema are required")
	}

	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err = tx.Exec(ctx, fmt.Sprintf("SET LOCAL ROLE %s", pgx.Identifier{space.RoleName}.Sanitize())); err != nil {
		return fmt.Errorf("set role: %w", err)
	}

	searchPath := fmt.Sprintf("%s, %s", pgx.Identifier{space.SchemaName}.Sanitize(), pgx.Identifier{db.sharedSchema}.Sanitize())
	if _, err = tx.Exec(ctx, `SELECT set_config('search_path', $1, true)`, searchPath); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
