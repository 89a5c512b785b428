package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/monynha/botecopro/database"
)

// BootstrapCoreSchema applies the embedded users/boteco/user_boteco DDL in a single
// transaction. The statements are idempotent so the helper is safe for CLI bootstrap and tests.
func BootstrapCoreSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("bootstrap core schema: pool is required")
	}

	statements := SplitStatements(sqlassets.CoreSQL)
	if len(statements) == 0 {
		return fmt.Errorf("bootstrap core schema: ddl is empty")
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// SplitStatements breaks a DDL script into statements on ';'. Scripts must not
// contain semicolons inside literals or function bodies.
func SplitStatements(script string) []string {
	raw := strings.Split(script, ";")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
