package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/sessions"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/problemdetails"
)

type operation string

const (
	startOperation     operation = "onboardingStart"
	getOperation       operation = "onboardingGet"
	personalOperation  operation = "onboardingSubmitPersonal"
	businessOperation  operation = "onboardingSubmitBusiness"
	planOperation      operation = "onboardingSubmitPlan"
	paymentOperation   operation = "onboardingSubmitPayment"
	hasBotecoOperation operation = "usersHasBoteco"
)

const (
	msgSessionSaveFailed = "could not save onboarding session"
	msgInvalidBody       = "request body must be a JSON object"
	msgInvalidUserID     = "userId must be a UUID"
	msgUnexpected        = "an unexpected error occurred"
)

// Wizard is the controller surface exposed over HTTP.
type Wizard interface {
	Route(s *service.Session) service.Route
	SubmitPersonal(ctx context.Context, s *service.Session, form service.PersonalInfo) (service.Route, error)
	SubmitBusiness(ctx context.Context, s *service.Session, form service.BusinessForm) (service.Route, error)
	SelectPlan(s *service.Session, plan string)
	SubmitPlan(ctx context.Context, s *service.Session) (service.Route, error)
	SubmitPayment(ctx context.Context, s *service.Session) (service.Route, error)
}

// MembershipChecker answers whether a user already owns a boteco.
type MembershipChecker interface {
	UserHasBoteco(ctx context.Context, userID uuid.UUID) (bool, error)
}

// PlanRequest is the body of the plan step.
type PlanRequest struct {
	Plan *string `json:"plan,omitempty"`
}

// Handler wires the onboarding wizard to HTTP, loading and saving the session around each step.
type Handler struct {
	wizard  Wizard
	members MembershipChecker
	store   sessions.Store
	logger  *zap.Logger
}

// New constructs a Handler instance.
func New(wizard Wizard, members MembershipChecker, store sessions.Store, logger *zap.Logger) *Handler {
	if wizard == nil {
		panic("onboarding wizard is required")
	}
	if members == nil {
		panic("membership checker is required")
	}
	if store == nil {
		panic("session store is required")
	}
	if logger == nil {
		panic("logger is required")
	}

	return &Handler{wizard: wizard, members: members, store: store, logger: logger}
}

// Register mounts the wizard routes on r. Step routes require the session header.
func (h *Handler) Register(r chi.Router) {
	r.Post("/onboarding/sessions", h.StartSession)
	r.Get("/users/{userId}/boteco", h.HasBoteco)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware(h.store, problemdetails.WriteStatus))
		r.Get("/onboarding/session", h.GetSession)
		r.Post("/onboarding/personal", h.SubmitPersonal)
		r.Post("/onboarding/business", h.SubmitBusiness)
		r.Post("/onboarding/plan", h.SubmitPlan)
		r.Post("/onboarding/payment", h.SubmitPayment)
	})
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	s, err := sessions.Create(r.Context(), h.store)
	if err != nil {
		h.loggerFrom(r.Context()).Error("create onboarding session", zap.String("operation", string(startOperation)), zap.Error(err))
		problemdetails.WriteStatus(w, r, http.StatusInternalServerError, msgSessionSaveFailed)
		return
	}
	sessions.WriteEnvelope(w, http.StatusCreated, s, h.wizard.Route(s))
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	sessions.WriteEnvelope(w, http.StatusOK, s, h.wizard.Route(s))
}

func (h *Handler) SubmitPersonal(w http.ResponseWriter, r *http.Request) {
	var form service.PersonalInfo
	if !h.decode(w, r, &form) {
		return
	}
	s := h.session(r)
	route, err := h.wizard.SubmitPersonal(r.Context(), s, form)
	h.finish(w, r, personalOperation, s, route, err)
}

func (h *Handler) SubmitBusiness(w http.ResponseWriter, r *http.Request) {
	var form service.BusinessForm
	if !h.decode(w, r, &form) {
		return
	}
	s := h.session(r)
	route, err := h.wizard.SubmitBusiness(r.Context(), s, form)
	h.finish(w, r, businessOperation, s, route, err)
}

func (h *Handler) SubmitPlan(w http.ResponseWriter, r *http.Request) {
	var body PlanRequest
	if !h.decode(w, r, &body) {
		return
	}
	s := h.session(r)
	if body.Plan != nil {
		h.wizard.SelectPlan(s, *body.Plan)
	}
	route, err := h.wizard.SubmitPlan(r.Context(), s)
	h.finish(w, r, planOperation, s, route, err)
}

func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	route, err := h.wizard.SubmitPayment(r.Context(), s)
	h.finish(w, r, paymentOperation, s, route, err)
}

func (h *Handler) HasBoteco(w http.ResponseWriter, r *http.Request) {
	var userID uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "userId", chi.URLParam(r, "userId"), &userID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		problemdetails.WriteStatus(w, r, http.StatusBadRequest, msgInvalidUserID)
		return
	}

	has, err := h.members.UserHasBoteco(r.Context(), userID)
	if err != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), err, hasBotecoOperation))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]bool{"hasBoteco": has})
}

// finish saves the session whatever the outcome, so trimmed fields and a cleared loading
// flag survive failed steps, then renders the result.
func (h *Handler) finish(w http.ResponseWriter, r *http.Request, op operation, s *service.Session, route service.Route, stepErr error) {
	if err := h.store.Save(r.Context(), s); err != nil {
		h.loggerFrom(r.Context()).Error("save onboarding session",
			zap.String("operation", string(op)),
			zap.Error(err),
		)
		problemdetails.WriteStatus(w, r, http.StatusInternalServerError, msgSessionSaveFailed)
		return
	}

	if stepErr != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), stepErr, op))
		return
	}

	sessions.WriteEnvelope(w, http.StatusOK, s, route)
}

func (h *Handler) session(r *http.Request) *service.Session {
	s, ok := sessions.FromContext(r.Context())
	if !ok {
		panic("onboarding handler mounted without session middleware")
	}
	return s
}

// decode reads an optional JSON object body. An empty body leaves dst untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	problemdetails.WriteStatus(w, r, http.StatusBadRequest, msgInvalidBody)
	return false
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problemdetails.ProblemDetails {
	status, title, detail, problemType, fields := classifyError(err)

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("onboarding operation failed", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("onboarding request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problemdetails.New(title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fields map[string][]string) {
	detail = userMessage(err)

	var validationErr *service.ValidationError
	var configErr *gateway.ConfigurationError
	var provisioningErr *gateway.ProvisioningError
	var gatewayErr *gateway.GatewayError

	switch {
	case errors.Is(err, service.ErrSubmissionInFlight), errors.Is(err, service.ErrStepOutOfOrder):
		return http.StatusConflict, "Conflict", detail, problemdetails.TypeConflict, nil
	case errors.As(err, &validationErr):
		if validationErr.Field != "" {
			fields = map[string][]string{validationErr.Field: {validationErr.Message}}
		}
		return http.StatusUnprocessableEntity, "Validation failed", detail, problemdetails.TypeValidation, fields
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, "Service unavailable", detail, problemdetails.TypeUnavailable, nil
	case errors.As(err, &provisioningErr):
		return http.StatusBadGateway, "Provisioning failed", detail, problemdetails.TypeUpstream, nil
	case errors.As(err, &gatewayErr), errors.Is(err, gateway.ErrNoData):
		return http.StatusBadGateway, "Persistence failed", detail, problemdetails.TypeUpstream, nil
	default:
		return http.StatusInternalServerError, "Internal server error", detail, problemdetails.TypeInternal, nil
	}
}

func userMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return msgUnexpected
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := logging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
