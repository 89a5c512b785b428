package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/monynha/botecopro/database"
	"github.com/monynha/botecopro/domains/provisioning/be/service"
	"github.com/monynha/botecopro/platform/go/persistence"
	"github.com/monynha/botecopro/platform/go/tenant"
)

// spaceTables are created by BotecoSpaceSQL; Check expects all of them.
var spaceTables = []string{"settings", "staff", "menu_items"}

// DBProvisioner creates the per-boteco role, schema, grants and base tables.
type DBProvisioner struct {
	pool    *pgxpool.Pool
	spaceDB *persistence.SpaceDB
}

func NewDBProvisioner(pool *pgxpool.Pool, sharedSchema string) *DBProvisioner {
	if pool == nil {
		panic("db provisioner requires pool")
	}

	return &DBProvisioner{
		pool: pool,
		spaceDB: persistence.NewSpaceDB(persistence.SpaceDBConfig{
			Pool:         pool,
			SharedSchema: sharedSchema,
		}),
	}
}

func (p *DBProvisioner) Ensure(ctx context.Context, space tenant.Space) (bool, error) {
	ready, err := p.ensureRoleSchemaAndGrants(ctx, space)
	if err != nil {
		return false, err
	}
	if err := p.ensureBaseTables(ctx, space); err != nil {
		return false, err
	}
	return ready, nil
}

func (p *DBProvisioner) Check(ctx context.Context, space tenant.Space) (bool, error) {
	if space.RoleName == "" || space.SchemaName == "" {
		return false, fmt.Errorf("role and schema required")
	}

	usable, err := p.roleUsable(ctx, space.RoleName)
	if err != nil || !usable {
		return false, err
	}

	ready := true
	err = p.spaceDB.WithSpace(ctx, space, func(tx pgx.Tx) error {
		var dummy int
		if err := tx.QueryRow(ctx, "SELECT 1 FROM information_schema.schemata WHERE schema_name = $1", space.SchemaName).Scan(&dummy); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				ready = false
				return nil
			}
			return fmt.Errorf("check schema: %w", err)
		}

		for _, table := range spaceTables {
			exists, err := tableExists(ctx, tx, space.SchemaName, table)
			if err != nil {
				return err
			}
			if !exists {
				ready = false
				return nil
			}
		}

		// Read probe to confirm SELECT privilege under the space role.
		if err := tx.QueryRow(ctx, "SELECT 1 FROM "+pgx.Identifier{space.SchemaName, "settings"}.Sanitize()+" LIMIT 1").Scan(&dummy); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read settings table: %w", err)
		}

		// The space reads its own boteco row from the shared schema.
		if err := tx.QueryRow(ctx, "SELECT 1 FROM "+pgx.Identifier{p.spaceDB.SharedSchema(), persistence.BotecoTable}.Sanitize()+" LIMIT 1").Scan(&dummy); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("read shared boteco table: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	return ready, nil
}

// roleUsable reports whether the role exists and the app user may SET ROLE to it.
func (p *DBProvisioner) roleUsable(ctx context.Context, roleName string) (bool, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	var roleExists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", roleName).Scan(&roleExists); err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	if !roleExists {
		return false, nil
	}

	var member bool
	if err := conn.QueryRow(ctx, "SELECT pg_has_role(current_user, $1, 'MEMBER')", roleName).Scan(&member); err != nil {
		return false, fmt.Errorf("check role membership: %w", err)
	}
	return member, nil
}

func (p *DBProvisioner) ensureRoleSchemaAndGrants(ctx context.Context, space tenant.Space) (bool, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	role := pgx.Identifier{space.RoleName}.Sanitize()
	schema := pgx.Identifier{space.SchemaName}.Sanitize()
	shared := pgx.Identifier{p.spaceDB.SharedSchema()}.Sanitize()

	// Create the role only if missing to avoid aborting the transaction.
	var roleExists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = $1)", space.RoleName).Scan(&roleExists); err != nil {
		return false, fmt.Errorf("check role existence: %w", err)
	}
	if !roleExists {
		if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE ROLE %s NOLOGIN", role)); err != nil {
			return false, fmt.Errorf("create role: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s AUTHORIZATION %s", schema, role)); err != nil {
		return false, fmt.Errorf("create schema: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("GRANT %s TO CURRENT_USER", role)); err != nil {
		return false, fmt.Errorf("grant space role to app user: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", schema, role)); err != nil {
		return false, fmt.Errorf("grant usage space schema: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("GRANT USAGE ON SCHEMA %s TO %s", shared, role)); err != nil {
		return false, fmt.Errorf("grant usage shared schema: %w", err)
	}
	botecoTable := pgx.Identifier{p.spaceDB.SharedSchema(), persistence.BotecoTable}.Sanitize()
	if _, err := tx.Exec(ctx, fmt.Sprintf("GRANT SELECT, REFERENCES ON %s TO %s", botecoTable, role)); err != nil {
		return false, fmt.Errorf("grant select boteco: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ROLE %s", role)); err != nil {
		return false, fmt.Errorf("set local role: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT ALL ON TABLES TO %s", schema, role)); err != nil {
		return false, fmt.Errorf("default privs tables: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA %s GRANT ALL ON SEQUENCES TO %s", schema, role)); err != nil {
		return false, fmt.Errorf("default privs sequences: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	return true, nil
}

func (p *DBProvisioner) ensureBaseTables(ctx context.Context, space tenant.Space) error {
	return p.spaceDB.WithSpace(ctx, space, func(tx pgx.Tx) error {
		for _, stmt := range persistence.SplitStatements(sqlassets.BotecoSpaceSQL) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure base tables: %w", err)
			}
		}
		return nil
	})
}

func tableExists(ctx context.Context, tx pgx.Tx, schema, table string) (bool, error) {
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM pg_class c
			JOIN pg_namespace n ON n.oid = c.relnamespace
			WHERE n.nspname = $1 AND c.relname = $2
		)`, schema, table).Scan(&exists); err != nil {
		return false, fmt.Errorf("check %s table: %w", table, err)
	}
	return exists, nil
}

var _ service.DBProvisioner = (*DBProvisioner)(nil)
