package usercmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	onboardingrepo "github.com/monynha/botecopro/domains/onboarding/be/repo"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// Command groups user helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User utilities (lookup)",
	}

	cmd.AddCommand(lookupCommand())
	return cmd
}

// lookupResult is what `user lookup` prints. The password hash never leaves the store.
type lookupResult struct {
	persistence.User
	HasBoteco   bool                     `json:"hasBoteco"`
	Memberships []persistence.Membership `json:"memberships"`
}

type userFinder interface {
	FindUserByEmail(ctx context.Context, email string) ([]persistence.User, error)
}

type membershipLister interface {
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

func lookupCommand() *cobra.Command {
	var (
		databaseURL string
		email       string
	)

	c := &cobra.Command{
		Use:   "lookup",
		Short: "Show the user registered with an email and the botecos they belong to",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			repo, err := onboardingrepo.NewPostgresRepository(pool)
			if err != nil {
				return fmt.Errorf("init repository: %w", err)
			}

			results, err := lookup(ctx, gateway.New(repo, nil, nil), repo, email)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (defaults to $DATABASE_URL)")
	c.Flags().StringVar(&email, "email", "", "Email to look up")
	_ = c.MarkFlagRequired("email")

	return c
}

func lookup(ctx context.Context, users userFinder, memberships membershipLister, email string) ([]lookupResult, error) {
	found, err := users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no user registered with %s", email)
	}

	results := make([]lookupResult, 0, len(found))
	for _, u := range found {
		linked, err := memberships.ListMembershipsByUser(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("list memberships: %w", err)
		}
		if linked == nil {
			linked = []persistence.Membership{}
		}
		results = append(results, lookupResult{User: u, HasBoteco: len(linked) > 0, Memberships: linked})
	}
	return results, nil
}
