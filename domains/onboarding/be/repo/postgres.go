package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// PostgresRepository implements the gateway repository on top of the shared persistence stores.
type PostgresRepository struct {
	users       *persistence.UserStore
	botecos     *persistence.BotecoStore
	memberships *persistence.MembershipStore
}

// NewPostgresRepository wires the three stores onto one pool.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	users, err := persistence.NewUserStore(pool)
	if err != nil {
		return nil, err
	}
	botecos, err := persistence.NewBotecoStore(pool)
	if err != nil {
		return nil, err
	}
	memberships, err := persistence.NewMembershipStore(pool)
	if err != nil {
		return nil, err
	}
	return &PostgresRepository{users: users, botecos: botecos, memberships: memberships}, nil
}

func (r *PostgresRepository) UpsertUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error) {
	return r.users.UpsertUser(ctx, params)
}

func (r *PostgresRepository) CreateUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error) {
	return r.users.CreateUser(ctx, params)
}

func (r *PostgresRepository) FindUsersByEmail(ctx context.Context, email string) ([]persistence.User, error) {
	return r.users.FindUsersByEmail(ctx, email)
}

func (r *PostgresRepository) CreateBoteco(ctx context.Context, params persistence.CreateBotecoParams) ([]persistence.Boteco, error) {
	return r.botecos.CreateBoteco(ctx, params)
}

func (r *PostgresRepository) CreateMembership(ctx context.Context, params persistence.CreateMembershipParams) ([]persistence.Membership, error) {
	return r.memberships.CreateMembership(ctx, params)
}

func (r *PostgresRepository) DeleteBoteco(ctx context.Context, id uuid.UUID) error {
	return r.botecos.DeleteBoteco(ctx, id)
}

func (r *PostgresRepository) CountMembershipsByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.memberships.CountMembershipsByUser(ctx, userID)
}

// ListMembershipsByUser returns every boteco link of the user, newest first.
func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	return r.memberships.ListMembershipsByUser(ctx, userID)
}

var _ gateway.Repository = (*PostgresRepository)(nil)
