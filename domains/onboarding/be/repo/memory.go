package repo

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// MemoryRepository is an in-memory gateway repository for tests and local development.
// It mirrors the Postgres constraints: unique email, unique boteco username, membership
// foreign keys and the membership cascade on boteco delete.
type MemoryRepository struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]persistence.User
	byEmail     map[string]uuid.UUID
	botecos     map[uuid.UUID]persistence.Boteco
	byUsername  map[string]uuid.UUID
	memberships map[uuid.UUID]persistence.Membership
	now         func() time.Time
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:       make(map[uuid.UUID]persistence.User),
		byEmail:     make(map[string]uuid.UUID),
		botecos:     make(map[uuid.UUID]persistence.Boteco),
		byUsername:  make(map[string]uuid.UUID),
		memberships: make(map[uuid.UUID]persistence.Membership),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// usernameKey folds case: boteco usernames share a schema name when they differ only in case.
func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryRepository) UpsertUser(_ context.Context, params persistence.UserParams) ([]persistence.User, error) {
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byEmail[email]; ok {
		existing := r.users[id]
		updated := userFromParams(params, id, existing.CreatedAt, now)
		if updated.PasswordHash == nil {
			updated.PasswordHash = existing.PasswordHash
		}
		r.users[id] = updated
		return []persistence.User{updated}, nil
	}

	user := userFromParams(params, uuid.New(), now, now)
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	return []persistence.User{user}, nil
}

func (r *MemoryRepository) CreateUser(_ context.Context, params persistence.UserParams) ([]persistence.User, error) {
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, errors.New("email is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[email]; exists {
		return nil, persistence.ErrUserConflict
	}

	now := r.now()
	user := userFromParams(params, uuid.New(), now, now)
	r.users[user.ID] = user
	r.byEmail[email] = user.ID
	return []persistence.User{user}, nil
}

func (r *MemoryRepository) FindUsersByEmail(_ context.Context, email string) ([]persistence.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[normalizeEmail(email)]
	if !ok {
		return []persistence.User{}, nil
	}
	return []persistence.User{r.users[id]}, nil
}

func (r *MemoryRepository) CreateBoteco(_ context.Context, params persistence.CreateBotecoParams) ([]persistence.Boteco, error) {
	username := strings.TrimSpace(params.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[usernameKey(username)]; exists {
		return nil, persistence.ErrBotecoConflict
	}

	tags := slices.Clone(params.VibeTags)
	if tags == nil {
		tags = []string{}
	}

	boteco := persistence.Boteco{
		ID:                     uuid.New(),
		PublicName:             strings.TrimSpace(params.PublicName),
		Username:               username,
		ServiceCategory:        strings.TrimSpace(params.ServiceCategory),
		VibeTags:               tags,
		EstablishmentTaxNumber: strings.TrimSpace(params.EstablishmentTaxNumber),
		Country:                strings.TrimSpace(params.Country),
		PostalCode:             strings.TrimSpace(params.PostalCode),
		OwnerTaxNumber:         strings.TrimSpace(params.OwnerTaxNumber),
		CreatedByEmail:         normalizeEmail(params.CreatedByEmail),
		CreatedByUserID:        params.CreatedByUserID,
		CreatedAt:              r.now(),
	}
	r.botecos[boteco.ID] = boteco
	r.byUsername[usernameKey(username)] = boteco.ID
	return []persistence.Boteco{boteco}, nil
}

func (r *MemoryRepository) CreateMembership(_ context.Context, params persistence.CreateMembershipParams) ([]persistence.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[params.UserID]; !ok {
		return nil, persistence.ErrReferenceMissing
	}
	if _, ok := r.botecos[params.BotecoID]; !ok {
		return nil, persistence.ErrReferenceMissing
	}
	for _, m := range r.memberships {
		if m.UserID == params.UserID && m.BotecoID == params.BotecoID {
			return nil, persistence.ErrMembershipConflict
		}
	}

	membership := persistence.Membership{
		ID:           uuid.New(),
		UserID:       params.UserID,
		BotecoID:     params.BotecoID,
		AssignedRole: strings.TrimSpace(params.AssignedRole),
		Plan:         strings.TrimSpace(params.Plan),
		CreatedAt:    r.now(),
	}
	r.memberships[membership.ID] = membership
	return []persistence.Membership{membership}, nil
}

func (r *MemoryRepository) DeleteBoteco(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	boteco, ok := r.botecos[id]
	if !ok {
		return persistence.ErrBotecoNotFound
	}
	delete(r.botecos, id)
	delete(r.byUsername, usernameKey(boteco.Username))
	for mid, m := range r.memberships {
		if m.BotecoID == id {
			delete(r.memberships, mid)
		}
	}
	return nil
}

func (r *MemoryRepository) CountMembershipsByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, m := range r.memberships {
		if m.UserID == userID {
			total++
		}
	}
	return total, nil
}

// BotecoByUsername looks up a boteco by public username.
func (r *MemoryRepository) BotecoByUsername(username string) (persistence.Boteco, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[usernameKey(username)]
	if !ok {
		return persistence.Boteco{}, false
	}
	return r.botecos[id], true
}

// BotecoCount returns how many botecos are stored.
func (r *MemoryRepository) BotecoCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.botecos)
}

func userFromParams(p persistence.UserParams, id uuid.UUID, createdAt, updatedAt time.Time) persistence.User {
	return persistence.User{
		ID:           id,
		Email:        normalizeEmail(p.Email),
		Username:     strings.TrimSpace(p.Username),
		TaxNumber:    strings.TrimSpace(p.TaxNumber),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		BirthDate:    strings.TrimSpace(p.BirthDate),
		Country:      strings.TrimSpace(p.Country),
		PostalCode:   strings.TrimSpace(p.PostalCode),
		HouseNumber:  strings.TrimSpace(p.HouseNumber),
		IsOwner:      p.IsOwner,
		PasswordHash: p.PasswordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}
}

var _ gateway.Repository = (*MemoryRepository)(nil)
