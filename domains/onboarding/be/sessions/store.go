package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/monynha/botecopro/domains/onboarding/be/service"
)

// DefaultTTL bounds how long an idle wizard is kept.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Store persists wizard sessions between requests.
type Store interface {
	Get(ctx context.Context, id string) (*service.Session, error)
	Save(ctx context.Context, s *service.Session) error
	Delete(ctx context.Context, id string) error
}

// New returns an unsaved session with a fresh random id.
func New() *service.Session {
	return service.NewSession(uuid.NewString())
}

// Create starts a new session on step 1 and saves it.
func Create(ctx context.Context, store Store) (*service.Session, error) {
	s := New()
	if err := store.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
