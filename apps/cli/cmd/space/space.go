package spacecmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/monynha/botecopro/domains/provisioning/be/provisioning"
	"github.com/monynha/botecopro/domains/provisioning/be/service"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// Command groups boteco space helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Boteco space utilities (provision/check)",
	}

	cmd.AddCommand(provisionCommand())
	cmd.AddCommand(checkCommand())
	return cmd
}

type spaceFlags struct {
	databaseURL  string
	sharedSchema string
	username     string
}

func (f *spaceFlags) bind(c *cobra.Command) {
	c.Flags().StringVar(&f.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&f.sharedSchema, "shared-schema", "public", "Schema holding the shared boteco table")
	c.Flags().StringVar(&f.username, "username", "", "Boteco username")
	_ = c.MarkFlagRequired("username")
}

func provisionCommand() *cobra.Command {
	var flags spaceFlags

	c := &cobra.Command{
		Use:   "provision",
		Short: "Create (or repair) the role, schema, grants and base tables of a boteco",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), flags, func(ctx context.Context, svc *service.Service) error {
				status, err := svc.Provision(ctx, flags.username)
				if err != nil {
					return fmt.Errorf("provision %s: %w", flags.username, err)
				}
				return printStatus(cmd, status)
			})
		},
	}

	flags.bind(c)
	return c
}

func checkCommand() *cobra.Command {
	var flags spaceFlags

	c := &cobra.Command{
		Use:   "check",
		Short: "Report whether a boteco space exists and is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), flags, func(ctx context.Context, svc *service.Service) error {
				status, err := svc.Check(ctx, flags.username)
				if err != nil {
					return fmt.Errorf("check %s: %w", flags.username, err)
				}
				if err := printStatus(cmd, status); err != nil {
					return err
				}
				if !status.Ready {
					return fmt.Errorf("space %s is not ready", status.Schema)
				}
				return nil
			})
		},
	}

	flags.bind(c)
	return c
}

func withService(ctx context.Context, flags spaceFlags, fn func(context.Context, *service.Service) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: flags.databaseURL})
	if err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	defer persistence.ClosePool(pool)

	svc := service.New(provisioning.NewDBProvisioner(pool, flags.sharedSchema), nil)
	return fn(ctx, svc)
}

func printStatus(cmd *cobra.Command, status service.Status) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
