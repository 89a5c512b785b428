package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/auth/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	onboarding "github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/sessions"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/problemdetails"
)

type operation string

const (
	registerOperation operation = "authRegister"
	signInOperation   operation = "authSignIn"
)

// Accounts is the auth service surface exposed over HTTP.
type Accounts interface {
	Register(ctx context.Context, session *onboarding.Session, form service.RegisterForm) (onboarding.Route, error)
	SignIn(ctx context.Context, session *onboarding.Session, form service.SignInForm) (onboarding.Route, error)
}

// Handler serves registration and sign-in. Each success opens a new onboarding session
// seeded with the account.
type Handler struct {
	accounts Accounts
	store    sessions.Store
	logger   *zap.Logger
}

// New constructs a Handler instance.
func New(accounts Accounts, store sessions.Store, logger *zap.Logger) *Handler {
	if accounts == nil {
		panic("auth service is required")
	}
	if store == nil {
		panic("session store is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{accounts: accounts, store: store, logger: logger}
}

// Register mounts the auth routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/signin", h.HandleSignIn)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var form service.RegisterForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		problemdetails.WriteStatus(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	session := sessions.New()
	route, err := h.accounts.Register(r.Context(), session, form)
	h.respond(w, r, registerOperation, http.StatusCreated, session, route, err)
}

func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var form service.SignInForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		problemdetails.WriteStatus(w, r, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	session := sessions.New()
	route, err := h.accounts.SignIn(r.Context(), session, form)
	h.respond(w, r, signInOperation, http.StatusOK, session, route, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op operation, status int, session *onboarding.Session, route onboarding.Route, authErr error) {
	if authErr != nil {
		problemdetails.Write(w, h.problemForError(r.Context(), authErr, op))
		return
	}

	if err := h.store.Save(r.Context(), session); err != nil {
		h.loggerFrom(r.Context()).Error("save onboarding session", zap.String("operation", string(op)), zap.Error(err))
		problemdetails.WriteStatus(w, r, http.StatusInternalServerError, "could not save onboarding session")
		return
	}

	sessions.WriteEnvelope(w, status, session, route)
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problemdetails.ProblemDetails {
	status, title, problemType := classifyError(err)

	detail := "an unexpected error occurred"
	var authErr *service.AuthError
	if errors.As(err, &authErr) && authErr.UserMessage() != "" {
		detail = authErr.UserMessage()
	}

	fields := []zap.Field{zap.String("operation", string(op)), zap.Int("status", status), zap.Error(err)}
	if status >= http.StatusInternalServerError {
		h.loggerFrom(ctx).Error("auth operation failed", fields...)
	} else {
		h.loggerFrom(ctx).Warn("auth request rejected", fields...)
	}

	return problemdetails.New(title, detail, problemType, status, nil)
}

func classifyError(err error) (status int, title, problemType string) {
	var configErr *gateway.ConfigurationError
	var gatewayErr *gateway.GatewayError

	switch {
	case errors.Is(err, service.ErrMissingCredentials), errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrPasswordTooLong), errors.Is(err, service.ErrMissingEmail):
		return http.StatusUnprocessableEntity, "Validation failed", problemdetails.TypeValidation
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict, "Conflict", problemdetails.TypeConflict
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "Resource not found", problemdetails.TypeNotFound
	case errors.Is(err, service.ErrInvalidPassword):
		return http.StatusUnauthorized, "Unauthorized", problemdetails.TypeUnauthorized
	case errors.As(err, &configErr):
		return http.StatusServiceUnavailable, "Service unavailable", problemdetails.TypeUnavailable
	case errors.As(err, &gatewayErr), errors.Is(err, service.ErrNoUserCreated):
		return http.StatusBadGateway, "Persistence failed", problemdetails.TypeUpstream
	default:
		return http.StatusInternalServerError, "Internal server error", problemdetails.TypeInternal
	}
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := logging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
