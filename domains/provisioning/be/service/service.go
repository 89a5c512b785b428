package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/monynha/botecopro/platform/go/events"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/tenant"
)

// EventBotecoProvisioned is published after a space is ensured.
const EventBotecoProvisioned = "boteco.provisioned"

// ErrInvalidHandle is returned for usernames that cannot name a space.
var ErrInvalidHandle = tenant.ErrInvalidHandle

// DBProvisioner creates and inspects the database space of a boteco. Ensure is idempotent.
type DBProvisioner interface {
	Ensure(ctx context.Context, space tenant.Space) (bool, error)
	Check(ctx context.Context, space tenant.Space) (bool, error)
}

// Status describes a boteco space.
type Status struct {
	Handle string `json:"boteco_username"`
	Schema string `json:"schema"`
	Role   string `json:"role"`
	Ready  bool   `json:"ready"`
}

// Service provisions boteco spaces.
type Service struct {
	db        DBProvisioner
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func New(db DBProvisioner, logger *zap.Logger, opts ...Option) *Service {
	if db == nil {
		panic("provisioning service requires db provisioner")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, publisher: events.Nop{}, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provision ensures the role, schema, grants and base tables of the boteco named by handle.
func (s *Service) Provision(ctx context.Context, handle string) (Status, error) {
	space, err := tenant.Derive(handle)
	if err != nil {
		return Status{}, err
	}

	ready, err := s.db.Ensure(ctx, space)
	if err != nil {
		return Status{}, fmt.Errorf("ensure space %s: %w", space.SchemaName, err)
	}

	status := statusFor(space, ready)
	logger := logging.Ctx(ctx, s.logger)
	logger.Info("boteco space provisioned",
		zap.String("boteco_username", space.Handle),
		zap.String("schema", space.SchemaName),
		zap.Bool("ready", ready),
	)

	if err := s.publisher.Publish(ctx, events.Event{
		Type:       EventBotecoProvisioned,
		Key:        space.Handle,
		OccurredAt: s.now().UTC(),
		Payload:    status,
	}); err != nil {
		logger.Warn("publish boteco provisioned", zap.String("boteco_username", space.Handle), zap.Error(err))
	}

	return status, nil
}

// Check reports whether the space exists and is usable, without changing anything.
func (s *Service) Check(ctx context.Context, handle string) (Status, error) {
	space, err := tenant.Derive(handle)
	if err != nil {
		return Status{}, err
	}

	ready, err := s.db.Check(ctx, space)
	if err != nil {
		return Status{}, fmt.Errorf("check space %s: %w", space.SchemaName, err)
	}
	return statusFor(space, ready), nil
}

// IsInvalidHandle reports whether err was caused by a bad username.
func IsInvalidHandle(err error) bool {
	return errors.Is(err, ErrInvalidHandle)
}

func statusFor(space tenant.Space, ready bool) Status {
	return Status{
		Handle: space.Handle,
		Schema: space.SchemaName,
		Role:   space.RoleName,
		Ready:  ready,
	}
}
