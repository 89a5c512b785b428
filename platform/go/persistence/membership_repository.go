package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const MembershipTable = "user_boteco"

const membershipColumns = `id, user_id, boteco_id, assigned_role, plan, created_at`

// Membership links a user to a boteco with a role and a subscription plan.
type Membership struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"userId"`
	BotecoID     uuid.UUID `db:"boteco_id" json:"botecoId"`
	AssignedRole string    `db:"assigned_role" json:"assignedRole"`
	Plan         string    `db:"plan" json:"plan"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

type CreateMembershipParams struct {
	UserID       uuid.UUID
	BotecoID     uuid.UUID
	AssignedRole string
	Plan         string
}

// MembershipStore exposes persistence helpers for the user_boteco table.
type MembershipStore struct {
	pool *pgxpool.Pool
}

func NewMembershipStore(pool *pgxpool.Pool) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MembershipStore{pool: pool}, nil
}

// CreateMembership inserts the link row. A missing user or boteco yields ErrReferenceMissing.
func (s *MembershipStore) CreateMembership(ctx context.Context, params CreateMembershipParams) ([]Membership, error) {
	if params.UserID == uuid.Nil || params.BotecoID == uuid.Nil {
		return nil, errors.New("user id and boteco id are required")
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, user_id, boteco_id, assigned_role, plan)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, MembershipTable, membershipColumns),
		uuid.New(),
		params.UserID,
		params.BotecoID,
		strings.TrimSpace(params.AssignedRole),
		strings.TrimSpace(params.Plan),
	)
	if err == nil {
		var memberships []Membership
		if memberships, err = pgx.CollectRows(rows, pgx.RowToStructByName[Membership]); err == nil {
			return memberships, nil
		}
	}
	switch {
	case isUniqueViolation(err):
		return nil, ErrMembershipConflict
	case isForeignKeyViolation(err):
		return nil, ErrReferenceMissing
	}
	return nil, fmt.Errorf("create membership: %w", err)
}

// CountMembershipsByUser returns how many botecos the user is linked to.
func (s *MembershipStore) CountMembershipsByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var total int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE user_id = $1`, MembershipTable), userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count memberships: %w", err)
	}
	return total, nil
}

// ListMembershipsByUser returns the user's memberships, newest first.
func (s *MembershipStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC
    `, membershipColumns, MembershipTable), userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	memberships, err := pgx.CollectRows(rows, pgx.RowToStructByName[Membership])
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	return memberships, nil
}
