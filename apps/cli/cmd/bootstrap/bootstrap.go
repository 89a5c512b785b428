package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	onboardingrepo "github.com/monynha/botecopro/domains/onboarding/be/repo"
	onboardingservice "github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/domains/provisioning/be/provisioning"
	provisioningservice "github.com/monynha/botecopro/domains/provisioning/be/service"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/persistence"
	"github.com/monynha/botecopro/platform/go/requesttrace"
	"github.com/monynha/botecopro/platform/go/validation"
)

// Notes/constraints:
// - `core` applies the shared DDL (users, boteco, user_boteco). It is idempotent.
// - `boteco` attaches a boteco to an existing user and provisions its space in-process,
//   without going through the HTTP provisioning endpoint. A failed provisioning deletes the boteco.

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap database resources (shared tables, first boteco)",
	}

	cmd.AddCommand(coreCommand())
	cmd.AddCommand(botecoCommand())
	return cmd
}

func coreCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "core",
		Short: "Create the shared users, boteco and user_boteco tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.BootstrapCoreSchema(ctx, pool); err != nil {
				return fmt.Errorf("bootstrap core schema: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Core schema ready.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
	return c
}

func botecoCommand() *cobra.Command {
	var (
		databaseURL  string
		sharedSchema string
		ownerEmail   string
		username     string
		publicName   string
		category     string
		plan         string
	)

	c := &cobra.Command{
		Use:   "boteco",
		Short: "Create a boteco for an existing user and provision its space",
		RunE: func(cmd *cobra.Command, args []string) error {
			ownerEmail = strings.TrimSpace(ownerEmail)
			username = strings.TrimSpace(username)
			publicName = strings.TrimSpace(publicName)
			if ownerEmail == "" || publicName == "" {
				return errors.New("owner email and public name are required")
			}
			if !validation.ValidHandle(username) {
				return fmt.Errorf("invalid username %q (3 to 30 letters, digits or _)", username)
			}

			ctx := requesttrace.IntoContext(context.Background(), requesttrace.System(""))

			logger, err := logging.NewLogger(logging.Config{
				Component: "botecopro-cli",
				Level:     "warn",
				Output:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			repo, err := onboardingrepo.NewPostgresRepository(pool)
			if err != nil {
				return fmt.Errorf("init repository: %w", err)
			}

			provisioner := localProvisioner{
				svc: provisioningservice.New(provisioning.NewDBProvisioner(pool, sharedSchema), logger),
			}
			gw := gateway.New(repo, provisioner, logger)

			users, err := gw.FindUserByEmail(ctx, ownerEmail)
			if err != nil {
				return fmt.Errorf("lookup owner: %w", err)
			}
			if len(users) == 0 {
				return fmt.Errorf("no user registered with %s", ownerEmail)
			}
			owner := users[0]
			ctx = requesttrace.WithUserID(ctx, owner.ID.String())

			boteco, _, err := gw.CreateBotecoAndAssociate(ctx,
				persistence.CreateBotecoParams{
					PublicName:      publicName,
					Username:        username,
					ServiceCategory: category,
					Country:         owner.Country,
					PostalCode:      owner.PostalCode,
					OwnerTaxNumber:  owner.TaxNumber,
					CreatedByEmail:  owner.Email,
					CreatedByUserID: &owner.ID,
				},
				persistence.CreateMembershipParams{
					UserID:       owner.ID,
					AssignedRole: onboardingservice.OwnerRole,
					Plan:         plan,
				},
			)
			if err != nil {
				return fmt.Errorf("create boteco: %w", err)
			}

			if err := gw.ProvisionBoteco(ctx, boteco.Username); err != nil {
				gw.CompensateBoteco(ctx, boteco.ID, err)
				return fmt.Errorf("provision boteco (boteco removed): %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Bootstrap complete. Boteco: %s (%s) | Owner: %s (%s)\n", boteco.Username, boteco.ID, owner.Email, owner.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&sharedSchema, "shared-schema", "public", "Schema holding the shared boteco table")
	c.Flags().StringVar(&ownerEmail, "owner-email", "", "Email of the registered owner")
	c.Flags().StringVar(&username, "username", "", "Public boteco username")
	c.Flags().StringVar(&publicName, "public-name", "", "Public boteco name")
	c.Flags().StringVar(&category, "category", "bar", "Service category")
	c.Flags().StringVar(&plan, "plan", "", "Subscription plan recorded on the membership")

	_ = c.MarkFlagRequired("owner-email")
	_ = c.MarkFlagRequired("username")
	_ = c.MarkFlagRequired("public-name")

	return c
}

// localProvisioner provisions spaces in-process through the provisioning service.
type localProvisioner struct {
	svc *provisioningservice.Service
}

func (p localProvisioner) Provision(ctx context.Context, handle string) error {
	status, err := p.svc.Provision(ctx, handle)
	if err != nil {
		return err
	}
	if !status.Ready {
		return fmt.Errorf("space %s provisioned but not ready", status.Schema)
	}
	return nil
}

var _ gateway.Provisioner = localProvisioner{}
