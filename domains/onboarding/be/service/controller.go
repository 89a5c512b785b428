package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/domains/onboarding/be/metrics"
	"github.com/monynha/botecopro/platform/go/events"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/persistence"
	"github.com/monynha/botecopro/platform/go/validation"
)

// EventOnboardingCompleted is published once a boteco is created and provisioned.
const EventOnboardingCompleted = "onboarding.completed"

// OwnerRole is the membership role given to the person completing the wizard.
const OwnerRole = "owner"

// defaultPublishTimeout bounds the completion event so a slow broker cannot hold the request.
const defaultPublishTimeout = 2 * time.Second

// Gateway is the persistence surface the wizard needs.
type Gateway interface {
	UpsertUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error)
	CreateBotecoAndAssociate(ctx context.Context, boteco persistence.CreateBotecoParams, membership persistence.CreateMembershipParams) (persistence.Boteco, persistence.Membership, error)
	ProvisionBoteco(ctx context.Context, handle string) error
	CompensateBoteco(ctx context.Context, id uuid.UUID, cause error)
}

// OnboardingCompleted is the payload of EventOnboardingCompleted.
type OnboardingCompleted struct {
	UserID         uuid.UUID `json:"userId"`
	BotecoID       uuid.UUID `json:"botecoId"`
	BotecoUsername string    `json:"botecoUsername"`
	Plan           string    `json:"plan"`
}

// Controller drives the four-step onboarding wizard over an explicit Session.
type Controller struct {
	gateway        Gateway
	validator      *validation.Validator
	publisher      events.Publisher
	publishTimeout time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

type Option func(*Controller)

func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		if p != nil {
			c.publisher = p
		}
	}
}

// WithPublishTimeout caps how long SubmitPayment waits on the completion event.
func WithPublishTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.publishTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

func WithValidator(v *validation.Validator) Option {
	return func(c *Controller) {
		if v != nil {
			c.validator = v
		}
	}
}

func New(gw Gateway, logger *zap.Logger, opts ...Option) *Controller {
	if gw == nil {
		panic("onboarding controller requires gateway")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Controller{
		gateway:        gw,
		validator:      validation.New(),
		publisher:      events.Nop{},
		publishTimeout: defaultPublishTimeout,
		logger:         logger,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Route returns the page the session should currently be on.
func (c *Controller) Route(s *Session) Route {
	return RouteForStep(s.CurrentStep)
}

// SubmitPersonal stores the personal fields, validates them and upserts the user.
func (c *Controller) SubmitPersonal(ctx context.Context, s *Session, form PersonalInfo) (Route, error) {
	if err := c.guard(s, StepPersonal); err != nil {
		return "", err
	}

	s.Personal = PersonalInfo{
		FirstName:   strings.TrimSpace(form.FirstName),
		LastName:    strings.TrimSpace(form.LastName),
		Email:       strings.TrimSpace(form.Email),
		TaxNumber:   strings.TrimSpace(form.TaxNumber),
		BirthDate:   strings.TrimSpace(form.BirthDate),
		Country:     orDefaultCountry(form.Country),
		PostalCode:  strings.TrimSpace(form.PostalCode),
		HouseNumber: strings.TrimSpace(form.HouseNumber),
	}

	if err := c.checkPersonal(s.Personal); err != nil {
		return c.reject(StepPersonal, err)
	}

	s.IsLoading = true
	defer func() { s.IsLoading = false }()

	p := s.Personal
	users, err := c.gateway.UpsertUser(ctx, persistence.UserParams{
		Email:       p.Email,
		Username:    UsernameHint(p.FirstName, p.LastName, p.TaxNumber),
		TaxNumber:   p.TaxNumber,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		BirthDate:   p.BirthDate,
		Country:     p.Country,
		PostalCode:  p.PostalCode,
		HouseNumber: p.HouseNumber,
		IsOwner:     true,
	})
	if err == nil && len(users) == 0 {
		return c.fail(ctx, &StepError{
			Step:    StepPersonal,
			Message: "Erro ao salvar dados: " + msgNoUserData,
			Err:     gateway.ErrNoData,
		})
	}
	if err != nil {
		return c.fail(ctx, &StepError{
			Step:    StepPersonal,
			Message: fmt.Sprintf("Erro ao salvar dados: %v", err),
			Err:     err,
		})
	}

	id := users[0].ID
	s.UserID = &id
	s.advanceTo(StepBusiness)
	c.metrics.ObserveStep(StepPersonal, metrics.OutcomeSuccess)
	return RouteBusiness, nil
}

// BusinessForm carries the step 2 fields. A nil field keeps the value already on the session.
type BusinessForm struct {
	PublicName      *string `json:"publicName,omitempty"`
	Username        *string `json:"username,omitempty"`
	TaxNumber       *string `json:"taxNumber,omitempty"`
	ServiceCategory *string `json:"serviceCategory,omitempty"`
	Country         *string `json:"country,omitempty"`
	PostalCode      *string `json:"postalCode,omitempty"`
	VibeTags        *string `json:"vibeTags,omitempty"`
}

// SubmitBusiness merges the form into the session and validates it locally.
func (c *Controller) SubmitBusiness(_ context.Context, s *Session, form BusinessForm) (Route, error) {
	if err := c.guard(s, StepBusiness); err != nil {
		return "", err
	}

	b := &s.Business
	merge(&b.PublicName, form.PublicName)
	merge(&b.Username, form.Username)
	merge(&b.TaxNumber, form.TaxNumber)
	merge(&b.ServiceCategory, form.ServiceCategory)
	merge(&b.Country, form.Country)
	merge(&b.PostalCode, form.PostalCode)
	merge(&b.VibeTags, form.VibeTags)
	b.Country = orDefaultCountry(b.Country)

	if err := c.checkBusiness(*b); err != nil {
		return c.reject(StepBusiness, err)
	}

	s.advanceTo(StepPlan)
	c.metrics.ObserveStep(StepBusiness, metrics.OutcomeSuccess)
	return RoutePlan, nil
}

func merge(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

// SelectPlan records the plan picked on the plan page.
func (c *Controller) SelectPlan(s *Session, plan string) {
	s.SelectedPlan = strings.TrimSpace(plan)
}

// SubmitPlan confirms the selected plan.
func (c *Controller) SubmitPlan(_ context.Context, s *Session) (Route, error) {
	if err := c.guard(s, StepPlan); err != nil {
		return "", err
	}
	if strings.TrimSpace(s.SelectedPlan) == "" {
		return c.reject(StepPlan, invalid(ErrMissingPlan, "selectedPlan", msgMissingPlan))
	}

	s.advanceTo(StepPayment)
	c.metrics.ObserveStep(StepPlan, metrics.OutcomeSuccess)
	return RoutePayment, nil
}

// SubmitPayment creates the boteco with its owner membership, then provisions it.
// When provisioning fails the boteco is deleted before the error is returned.
// Payment details are not collected; the step only finalizes the account.
func (c *Controller) SubmitPayment(ctx context.Context, s *Session) (Route, error) {
	if s.IsLoading {
		return c.reject(StepPayment, invalid(ErrSubmissionInFlight, "", msgInFlight))
	}
	if s.UserID == nil || *s.UserID == uuid.Nil {
		return c.reject(StepPayment, invalid(ErrMissingUser, "userId", msgMissingUser))
	}
	if err := c.guard(s, StepPayment); err != nil {
		return "", err
	}

	s.IsLoading = true
	defer func() { s.IsLoading = false }()

	userID := *s.UserID
	b := s.Business
	boteco, _, err := c.gateway.CreateBotecoAndAssociate(ctx,
		persistence.CreateBotecoParams{
			PublicName:             b.PublicName,
			Username:               b.Username,
			ServiceCategory:        b.ServiceCategory,
			VibeTags:               b.Tags(),
			EstablishmentTaxNumber: b.TaxNumber,
			Country:                b.Country,
			PostalCode:             b.PostalCode,
			OwnerTaxNumber:         s.Personal.TaxNumber,
			CreatedByEmail:         s.Personal.Email,
			CreatedByUserID:        &userID,
		},
		persistence.CreateMembershipParams{
			UserID:       userID,
			AssignedRole: OwnerRole,
			Plan:         s.SelectedPlan,
		},
	)
	if err != nil {
		return c.fail(ctx, finalizeError(err))
	}

	if err := c.gateway.ProvisionBoteco(ctx, b.Username); err != nil {
		c.gateway.CompensateBoteco(ctx, boteco.ID, err)
		return c.fail(ctx, finalizeError(err))
	}

	plan := s.SelectedPlan
	s.CurrentStep = StepPersonal
	s.SelectedPlan = ""

	c.metrics.ObserveStep(StepPayment, metrics.OutcomeSuccess)
	c.metrics.IncrementCompleted()
	c.publishCompleted(ctx, OnboardingCompleted{
		UserID:         userID,
		BotecoID:       boteco.ID,
		BotecoUsername: boteco.Username,
		Plan:           plan,
	})

	return RouteSuccess, nil
}

func finalizeError(err error) *StepError {
	return &StepError{
		Step:    StepPayment,
		Message: fmt.Sprintf("Erro na finalização: %v. Tente novamente.", err),
		Err:     err,
	}
}

func (c *Controller) publishCompleted(ctx context.Context, payload OnboardingCompleted) {
	event := events.Event{
		Type:       EventOnboardingCompleted,
		Key:        payload.BotecoID.String(),
		OccurredAt: c.now().UTC(),
		Payload:    payload,
	}

	// The boteco is committed: the event must not depend on the caller's deadline.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.publishTimeout)
	defer cancel()

	if err := c.publisher.Publish(publishCtx, event); err != nil {
		logging.Ctx(ctx, c.logger).Warn("publish onboarding completed",
			zap.String("boteco_id", payload.BotecoID.String()),
			zap.Error(err),
		)
	}
}

// guard rejects a submit while another one is pending or before the previous steps are done.
func (c *Controller) guard(s *Session, step int) error {
	if s.IsLoading {
		_, err := c.reject(step, invalid(ErrSubmissionInFlight, "", msgInFlight))
		return err
	}
	if s.CurrentStep < step {
		_, err := c.reject(step, invalid(ErrStepOutOfOrder, "", msgOutOfOrder))
		return err
	}
	return nil
}

func (c *Controller) reject(step int, err *ValidationError) (Route, error) {
	outcome := metrics.OutcomeInvalid
	if errors.Is(err, ErrSubmissionInFlight) || errors.Is(err, ErrStepOutOfOrder) {
		outcome = metrics.OutcomeRejected
	}
	c.metrics.ObserveStep(step, outcome)
	return "", err
}

func (c *Controller) fail(ctx context.Context, err *StepError) (Route, error) {
	c.metrics.ObserveStep(err.Step, metrics.OutcomeFailed)
	logging.Ctx(ctx, c.logger).Error("onboarding step failed",
		zap.Int("step", err.Step),
		zap.Error(err.Err),
	)
	return "", err
}

func (c *Controller) checkPersonal(p PersonalInfo) *ValidationError {
	violations := c.validator.Check(p)
	if v, ok := validation.First(violations, validation.RuleRequired); ok {
		return invalid(ErrMissingField, v.Field, msgMissingField)
	}
	for _, v := range violations {
		switch v.Rule {
		case validation.RuleTaxID:
			return invalid(ErrInvalidTaxID, v.Field, msgInvalidTaxID)
		case validation.RulePostalCode:
			return invalid(ErrInvalidPostalCode, v.Field, msgInvalidPostalCode)
		}
	}
	return nil
}

func (c *Controller) checkBusiness(b BusinessInfo) *ValidationError {
	violations := c.validator.Check(b)
	if v, ok := validation.First(violations, validation.RuleRequired); ok {
		return invalid(ErrMissingField, v.Field, msgMissingField)
	}
	for _, v := range violations {
		switch v.Rule {
		case validation.RuleHandle:
			return invalid(ErrInvalidHandle, v.Field, msgInvalidHandle)
		case validation.RuleTaxID:
			return invalid(ErrInvalidTaxID, v.Field, msgInvalidBusinessTaxID)
		case validation.RulePostalCode:
			return invalid(ErrInvalidPostalCode, v.Field, msgInvalidBusinessCEP)
		}
	}
	return nil
}
