package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/monynha/botecopro/domains/auth/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/gateway"
	"github.com/monynha/botecopro/domains/onboarding/be/repo"
	onboarding "github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/domains/onboarding/be/sessions"
	"github.com/monynha/botecopro/platform/go/problemdetails"
)

type mockAccounts struct {
	registerFn func(ctx context.Context, session *onboarding.Session, form service.RegisterForm) (onboarding.Route, error)
	signInFn   func(ctx context.Context, session *onboarding.Session, form service.SignInForm) (onboarding.Route, error)
}

func (m *mockAccounts) Register(ctx context.Context, session *onboarding.Session, form service.RegisterForm) (onboarding.Route, error) {
	if m.registerFn == nil {
		panic("registerFn not configured")
	}
	return m.registerFn(ctx, session, form)
}

func (m *mockAccounts) SignIn(ctx context.Context, session *onboarding.Session, form service.SignInForm) (onboarding.Route, error) {
	if m.signInFn == nil {
		panic("signInFn not configured")
	}
	return m.signInFn(ctx, session, form)
}

func newRouter(t *testing.T, accounts Accounts, store sessions.Store) http.Handler {
	t.Helper()

	r := chi.NewRouter()
	New(accounts, store, zaptest.NewLogger(t)).Register(r)
	return r
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegisterThenSignIn(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	gw := gateway.New(repo.NewMemoryRepository(), nil, logger)
	store := sessions.NewMemoryStore(0)
	router := newRouter(t, service.New(gw, logger, service.WithBcryptCost(bcrypt.MinCost)), store)

	rec := post(t, router, "/auth/register", `{"firstName":"Ana","lastName":"Silva","email":"ana@x.com",
		"password":"segura123","taxNumber":"12345678901","postalCode":"12345678","houseNumber":"100"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env sessions.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, onboarding.RoutePersonal, env.Route)
	require.Equal(t, "Ana", env.Session.Personal.FirstName)
	require.Equal(t, "Silva", env.Session.Personal.LastName)
	require.Equal(t, "ana@x.com", env.Session.Personal.Email)
	require.NotContains(t, rec.Body.String(), "segura123")

	stored, err := store.Get(context.Background(), env.SessionID)
	require.NoError(t, err)
	require.Equal(t, env.Session.UserID, stored.UserID)

	rec = post(t, router, "/auth/register", `{"firstName":"Ana","lastName":"Silva","email":"ana@x.com","password":"segura123"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = post(t, router, "/auth/signin", `{"email":"ana@x.com","password":"segura123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var signedIn sessions.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &signedIn))
	require.NotEqual(t, env.SessionID, signedIn.SessionID)
	require.Equal(t, env.Session.UserID, signedIn.Session.UserID)
}

func TestRegisterRejectsPasswordOverBcryptLimit(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	gw := gateway.New(repo.NewMemoryRepository(), nil, logger)
	router := newRouter(t, service.New(gw, logger, service.WithBcryptCost(bcrypt.MinCost)), sessions.NewMemoryStore(0))

	body := `{"firstName":"Ana","lastName":"Silva","email":"ana@x.com","password":"` + strings.Repeat("a", 100) + `"}`
	rec := post(t, router, "/auth/register", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	var problem problemdetails.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "A senha deve ter no máximo 72 bytes.", *problem.Detail)
}

func TestSignInUnknownUser(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	gw := gateway.New(repo.NewMemoryRepository(), nil, logger)
	router := newRouter(t, service.New(gw, logger), sessions.NewMemoryStore(0))

	rec := post(t, router, "/auth/signin", `{"email":"missing@x.com"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var problem problemdetails.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "Usuário não encontrado. Por favor registre-se.", *problem.Detail)
}

func TestErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "missing fields", err: &service.AuthError{Reason: service.ErrMissingCredentials, Message: "x"}, status: http.StatusUnprocessableEntity},
		{name: "weak password", err: &service.AuthError{Reason: service.ErrWeakPassword, Message: "x"}, status: http.StatusUnprocessableEntity},
		{name: "password too long", err: &service.AuthError{Reason: service.ErrPasswordTooLong, Message: "x"}, status: http.StatusUnprocessableEntity},
		{name: "wrong password", err: &service.AuthError{Reason: service.ErrInvalidPassword, Message: "x"}, status: http.StatusUnauthorized},
		{name: "no database", err: &service.AuthError{Reason: &gateway.ConfigurationError{Missing: "DATABASE_URL"}, Message: "x"}, status: http.StatusServiceUnavailable},
		{name: "gateway", err: &service.AuthError{Reason: &gateway.GatewayError{Op: "create_user", Err: context.DeadlineExceeded}, Message: "x"}, status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			accounts := &mockAccounts{registerFn: func(context.Context, *onboarding.Session, service.RegisterForm) (onboarding.Route, error) {
				return "", tt.err
			}}
			rec := post(t, newRouter(t, accounts, sessions.NewMemoryStore(0)), "/auth/register", `{}`)
			require.Equal(t, tt.status, rec.Code)
			require.Equal(t, problemdetails.ContentType, rec.Header().Get("Content-Type"))
		})
	}
}

func TestMalformedBody(t *testing.T) {
	t.Parallel()

	rec := post(t, newRouter(t, &mockAccounts{}, sessions.NewMemoryStore(0)), "/auth/signin", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
