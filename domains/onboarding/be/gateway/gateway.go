package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/onboarding/be/metrics"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// Repository is the data-store surface the gateway wraps.
type Repository interface {
	UpsertUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error)
	CreateUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error)
	FindUsersByEmail(ctx context.Context, email string) ([]persistence.User, error)
	CreateBoteco(ctx context.Context, params persistence.CreateBotecoParams) ([]persistence.Boteco, error)
	CreateMembership(ctx context.Context, params persistence.CreateMembershipParams) ([]persistence.Membership, error)
	DeleteBoteco(ctx context.Context, id uuid.UUID) error
	CountMembershipsByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

// Provisioner triggers setup of the backend resources of a boteco.
type Provisioner interface {
	Provision(ctx context.Context, handle string) error
}

const compensationTimeout = 10 * time.Second

// Gateway normalizes data-store and provisioning failures for the onboarding flow
// and owns the insert-then-compensate sequence.
type Gateway struct {
	repo        Repository
	provisioner Provisioner
	logger      *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*Gateway)

// WithMetrics records compensations and provisioning latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// New builds a Gateway. A nil repo or provisioner is allowed: the operations that need
// it fail with *ConfigurationError instead of calling out.
func New(repo Repository, provisioner Provisioner, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{repo: repo, provisioner: provisioner, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) repository() (Repository, error) {
	if g.repo == nil {
		return nil, &ConfigurationError{Missing: "DATABASE_URL"}
	}
	return g.repo, nil
}

// UpsertUser inserts or updates the user keyed by email.
func (g *Gateway) UpsertUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error) {
	repo, err := g.repository()
	if err != nil {
		return nil, err
	}
	users, err := repo.UpsertUser(ctx, params)
	if err != nil {
		return nil, &GatewayError{Op: "upsert_user", Err: err}
	}
	return users, nil
}

// CreateUser inserts a new user; a duplicated email surfaces persistence.ErrUserConflict inside the *GatewayError.
func (g *Gateway) CreateUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error) {
	repo, err := g.repository()
	if err != nil {
		return nil, err
	}
	users, err := repo.CreateUser(ctx, params)
	if err != nil {
		return nil, &GatewayError{Op: "create_user", Err: err}
	}
	return users, nil
}

// FindUserByEmail returns every user registered with the email. Empty means none.
func (g *Gateway) FindUserByEmail(ctx context.Context, email string) ([]persistence.User, error) {
	repo, err := g.repository()
	if err != nil {
		return nil, err
	}
	users, err := repo.FindUsersByEmail(ctx, email)
	if err != nil {
		return nil, &GatewayError{Op: "find_user_by_email", Err: err}
	}
	return users, nil
}

// UserHasBoteco reports whether the user is linked to at least one boteco.
func (g *Gateway) UserHasBoteco(ctx context.Context, userID uuid.UUID) (bool, error) {
	repo, err := g.repository()
	if err != nil {
		return false, err
	}
	count, err := repo.CountMembershipsByUser(ctx, userID)
	if err != nil {
		return false, &GatewayError{Op: "user_has_tenant", Err: err}
	}
	return count > 0, nil
}

// CreateBotecoAndAssociate inserts the boteco, then the membership pointing at it.
// When the membership insert fails or returns nothing, the boteco is deleted before the
// error is returned. The membership BotecoID is always taken from the created boteco.
func (g *Gateway) CreateBotecoAndAssociate(
	ctx context.Context,
	boteco persistence.CreateBotecoParams,
	membership persistence.CreateMembershipParams,
) (persistence.Boteco, persistence.Membership, error) {
	repo, err := g.repository()
	if err != nil {
		return persistence.Boteco{}, persistence.Membership{}, err
	}

	botecos, err := repo.CreateBoteco(ctx, boteco)
	if err != nil {
		return persistence.Boteco{}, persistence.Membership{}, &GatewayError{Op: "create_tenant", Err: err}
	}
	if len(botecos) == 0 {
		return persistence.Boteco{}, persistence.Membership{}, &GatewayError{Op: "create_tenant", Err: errTenantNoData}
	}
	created := botecos[0]

	membership.BotecoID = created.ID
	memberships, err := repo.CreateMembership(ctx, membership)
	if err == nil && len(memberships) == 0 {
		err = errMembershipNoData
	}
	if err != nil {
		g.compensate(ctx, created.ID, "membership", err)
		return persistence.Boteco{}, persistence.Membership{}, &GatewayError{Op: "associate_user", Err: err}
	}

	return created, memberships[0], nil
}

// DeleteBoteco removes the boteco and, through the cascade, its memberships.
func (g *Gateway) DeleteBoteco(ctx context.Context, id uuid.UUID) error {
	repo, err := g.repository()
	if err != nil {
		return err
	}
	if err := repo.DeleteBoteco(ctx, id); err != nil {
		return &GatewayError{Op: "delete_tenant", Err: err}
	}
	return nil
}

// ProvisionBoteco asks the provisioning endpoint to set up the boteco.
func (g *Gateway) ProvisionBoteco(ctx context.Context, handle string) error {
	if g.provisioner == nil {
		return &ConfigurationError{Missing: "PROVISIONING_URL"}
	}

	start := time.Now()
	err := g.provisioner.Provision(ctx, handle)
	g.metrics.ObserveProvisioning(start, err)
	if err == nil {
		return nil
	}

	var provErr *ProvisioningError
	if errors.As(err, &provErr) {
		return err
	}
	return &ProvisioningError{Handle: handle, Err: err}
}

// CompensateBoteco deletes a boteco whose setup could not be completed.
// Delete failures are logged and swallowed so the caller keeps reporting the primary failure.
func (g *Gateway) CompensateBoteco(ctx context.Context, id uuid.UUID, cause error) {
	g.compensate(ctx, id, "provisioning", cause)
}

func (g *Gateway) compensate(ctx context.Context, id uuid.UUID, reason string, cause error) {
	// The caller's context may already be done; the delete still has to run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	logger := logging.Ctx(ctx, g.logger).With(
		zap.String("boteco_id", id.String()),
		zap.String("reason", reason),
		zap.NamedError("cause", cause),
	)

	err := g.DeleteBoteco(ctx, id)
	g.metrics.ObserveCompensation(reason, err)
	if err != nil {
		logger.Error("compensating delete failed", zap.Error(err))
		return
	}
	logger.Warn("boteco deleted after failed setup")
}
