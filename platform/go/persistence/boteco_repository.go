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

const BotecoTable = "boteco"

const botecoColumns = `id, public_name, username, service_category, vibe_tags, establishment_tax_number,
        country, postal_code, owner_tax_number, created_by_email, created_by_user_id, created_at`

// Boteco represents a row in the boteco (tenant) table.
type Boteco struct {
	ID                     uuid.UUID  `db:"id" json:"id"`
	PublicName             string     `db:"public_name" json:"publicName"`
	Username               string     `db:"username" json:"username"`
	ServiceCategory        string     `db:"service_category" json:"serviceCategory"`
	VibeTags               []string   `db:"vibe_tags" json:"vibeTags"`
	EstablishmentTaxNumber string     `db:"establishment_tax_number" json:"establishmentTaxNumber"`
	Country                string     `db:"country" json:"country"`
	PostalCode             string     `db:"postal_code" json:"postalCode"`
	OwnerTaxNumber         string     `db:"owner_tax_number" json:"ownerTaxNumber"`
	CreatedByEmail         string     `db:"created_by_email" json:"createdByEmail"`
	CreatedByUserID        *uuid.UUID `db:"created_by_user_id" json:"createdByUserId,omitempty"`
	CreatedAt              time.Time  `db:"created_at" json:"createdAt"`
}

// CreateBotecoParams captures the fields required to insert a new boteco.
type CreateBotecoParams struct {
	PublicName             string
	Username               string
	ServiceCategory        string
	VibeTags               []string
	EstablishmentTaxNumber string
	Country                string
	PostalCode             string
	OwnerTaxNumber         string
	CreatedByEmail         string
	CreatedByUserID        *uuid.UUID
}

// BotecoStore exposes persistence helpers for the boteco table.
type BotecoStore struct {
	pool *pgxpool.Pool
}

func NewBotecoStore(pool *pgxpool.Pool) (*BotecoStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &BotecoStore{pool: pool}, nil
}

// CreateBoteco inserts a boteco and returns the persisted rows. A taken username yields ErrBotecoConflict.
func (s *BotecoStore) CreateBoteco(ctx context.Context, params CreateBotecoParams) ([]Boteco, error) {
	tags := params.VibeTags
	if tags == nil {
		tags = []string{}
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, public_name, username, service_category, vibe_tags, establishment_tax_number,
            country, postal_code, owner_tax_number, created_by_email, created_by_user_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING %s
    `, BotecoTable, botecoColumns),
		uuid.New(),
		strings.TrimSpace(params.PublicName),
		strings.TrimSpace(params.Username),
		strings.TrimSpace(params.ServiceCategory),
		tags,
		strings.TrimSpace(params.EstablishmentTaxNumber),
		strings.TrimSpace(params.Country),
		strings.TrimSpace(params.PostalCode),
		strings.TrimSpace(params.OwnerTaxNumber),
		strings.ToLower(strings.TrimSpace(params.CreatedByEmail)),
		params.CreatedByUserID,
	)
	if err == nil {
		var botecos []Boteco
		if botecos, err = pgx.CollectRows(rows, pgx.RowToStructByName[Boteco]); err == nil {
			return botecos, nil
		}
	}
	if isUniqueViolation(err) {
		return nil, ErrBotecoConflict
	}
	return nil, fmt.Errorf("create boteco: %w", err)
}

// GetBotecoByUsername returns the boteco owning the public username, ignoring case.
func (s *BotecoStore) GetBotecoByUsername(ctx context.Context, username string) (Boteco, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE lower(username) = lower($1)
    `, botecoColumns, BotecoTable), strings.TrimSpace(username))
	if err != nil {
		return Boteco{}, fmt.Errorf("get boteco: %w", err)
	}

	boteco, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Boteco])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Boteco{}, ErrBotecoNotFound
		}
		return Boteco{}, fmt.Errorf("get boteco: %w", err)
	}
	return boteco, nil
}

// DeleteBoteco removes a boteco by identifier. Memberships go with it through the cascade.
func (s *BotecoStore) DeleteBoteco(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrBotecoNotFound
	}

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, BotecoTable), id)
	if err != nil {
		return fmt.Errorf("delete boteco: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrBotecoNotFound
	}

	return nil
}
