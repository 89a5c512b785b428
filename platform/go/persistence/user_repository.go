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

const UsersTable = "users"

const userColumns = `id, email, username, tax_number, first_name, last_name, birth_date, country,
        postal_code, house_number, is_owner, password_hash, created_at, updated_at`

// User represents a row in the users table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	Username     string    `db:"username" json:"username"`
	TaxNumber    string    `db:"tax_number" json:"taxNumber"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	BirthDate    string    `db:"birth_date" json:"birthDate"`
	Country      string    `db:"country" json:"country"`
	PostalCode   string    `db:"postal_code" json:"postalCode"`
	HouseNumber  string    `db:"house_number" json:"houseNumber"`
	IsOwner      bool      `db:"is_owner" json:"isOwner"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store bound to the shared pool.
func NewUserStore(pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}

	return &UserStore{pool: pool}, nil
}

// UserParams captures the profile fields written by both the upsert and the plain insert.
type UserParams struct {
	Email        string
	Username     string
	TaxNumber    string
	FirstName    string
	LastName     string
	BirthDate    string
	Country      string
	PostalCode   string
	HouseNumber  string
	IsOwner      bool
	PasswordHash *string
}

func (p UserParams) args(id uuid.UUID) []any {
	return []any{
		id,
		strings.ToLower(strings.TrimSpace(p.Email)),
		strings.TrimSpace(p.Username),
		strings.TrimSpace(p.TaxNumber),
		strings.TrimSpace(p.FirstName),
		strings.TrimSpace(p.LastName),
		strings.TrimSpace(p.BirthDate),
		strings.TrimSpace(p.Country),
		strings.TrimSpace(p.PostalCode),
		strings.TrimSpace(p.HouseNumber),
		p.IsOwner,
		p.PasswordHash,
	}
}

// UpsertUser inserts the user or, when the email already exists, updates the profile
// fields in place. The stored password hash is kept unless a new one is provided.
func (s *UserStore) UpsertUser(ctx context.Context, params UserParams) ([]User, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, errors.New("email is required")
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, email, username, tax_number, first_name, last_name, birth_date, country,
            postal_code, house_number, is_owner, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (email) DO UPDATE SET
            username = EXCLUDED.username,
            tax_number = EXCLUDED.tax_number,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            birth_date = EXCLUDED.birth_date,
            country = EXCLUDED.country,
            postal_code = EXCLUDED.postal_code,
            house_number = EXCLUDED.house_number,
            is_owner = EXCLUDED.is_owner,
            password_hash = COALESCE(EXCLUDED.password_hash, %s.password_hash),
            updated_at = NOW()
        RETURNING %s
    `, UsersTable, UsersTable, userColumns), params.args(uuid.New())...)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[User])
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return users, nil
}

// CreateUser inserts a new user. A duplicated email yields ErrUserConflict.
func (s *UserStore) CreateUser(ctx context.Context, params UserParams) ([]User, error) {
	if strings.TrimSpace(params.Email) == "" {
		return nil, errors.New("email is required")
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, email, username, tax_number, first_name, last_name, birth_date, country,
            postal_code, house_number, is_owner, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING %s
    `, UsersTable, userColumns), params.args(uuid.New())...)
	if err == nil {
		var users []User
		if users, err = pgx.CollectRows(rows, pgx.RowToStructByName[User]); err == nil {
			return users, nil
		}
	}
	if isUniqueViolation(err) {
		return nil, ErrUserConflict
	}
	return nil, fmt.Errorf("create user: %w", err)
}

// FindUsersByEmail returns the users whose email matches case-insensitively.
// An empty slice means no match.
func (s *UserStore) FindUsersByEmail(ctx context.Context, email string) ([]User, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE email = $1
    `, userColumns, UsersTable), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}

	users, err := pgx.CollectRows(rows, pgx.RowToStructByName[User])
	if err != nil {
		return nil, fmt.Errorf("find users by email: %w", err)
	}
	return users, nil
}

// GetUser returns a single user by identifier.
func (s *UserStore) GetUser(ctx context.Context, id uuid.UUID) (User, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1
    `, userColumns, UsersTable), id)
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}

	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
