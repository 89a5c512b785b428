package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	onboarding "github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/persistence"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// Registration defaults for fields the sign-up form leaves blank.
const (
	DefaultTaxNumber = "N/A"
	DefaultBirthDate = "1900-01-01"
)

// Domain sentinel errors.
var (
	ErrMissingCredentials = errors.New("missing registration fields")
	ErrWeakPassword       = errors.New("password too short")
	ErrPasswordTooLong    = errors.New("password too long")
	ErrMissingEmail       = errors.New("missing email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrNoUserCreated      = errors.New("no user returned")
)

const (
	msgMissingCredentials = "Preencha nome, sobrenome, email e senha para continuar."
	msgWeakPassword       = "A senha deve ter pelo menos 6 caracteres."
	msgPasswordTooLong    = "A senha deve ter no máximo 72 bytes."
	msgNoUserCreated      = "Não foi possível criar a conta. Tente novamente."
	msgEmailTaken         = "Este email já está cadastrado. Faça login."
	msgMissingEmail       = "Forneça um email para entrar."
	msgUserNotFound       = "Usuário não encontrado. Por favor registre-se."
	msgInvalidPassword    = "Email ou senha incorretos."
	msgSignInFailed       = "Erro no login. Tente novamente."
)

// AuthError carries the message shown on the sign-up or sign-in page.
type AuthError struct {
	Reason  error
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth: %v: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth: %v", e.Reason)
}

// Unwrap exposes both the reason sentinel and the underlying failure.
func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}

func (e *AuthError) UserMessage() string { return e.Message }

// Gateway is the subset of the persistence gateway used for accounts.
type Gateway interface {
	CreateUser(ctx context.Context, params persistence.UserParams) ([]persistence.User, error)
	FindUserByEmail(ctx context.Context, email string) ([]persistence.User, error)
}

// RegisterForm is the sign-up payload.
type RegisterForm struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	TaxNumber   string `json:"taxNumber"`
	BirthDate   string `json:"birthDate"`
	Country     string `json:"country"`
	PostalCode  string `json:"postalCode"`
	HouseNumber string `json:"houseNumber"`
}

// SignInForm is the sign-in payload. Password is optional; accounts created without one
// sign in by email alone.
type SignInForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service registers and signs in owners, seeding the onboarding session on success.
type Service struct {
	gateway    Gateway
	logger     *zap.Logger
	bcryptCost int
}

type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func New(gw Gateway, logger *zap.Logger, opts ...Option) *Service {
	if gw == nil {
		panic("auth service requires gateway")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{gateway: gw, logger: logger, bcryptCost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account, prefills the session with it and returns the step 1 route.
func (s *Service) Register(ctx context.Context, session *onboarding.Session, form RegisterForm) (onboarding.Route, error) {
	params, err := s.buildUser(form)
	if err != nil {
		return "", err
	}

	created, err := s.gateway.CreateUser(ctx, params)
	if err != nil {
		if errors.Is(err, persistence.ErrUserConflict) {
			return "", &AuthError{Reason: ErrEmailTaken, Message: msgEmailTaken, Err: err}
		}
		logging.Ctx(ctx, s.logger).Error("register user", zap.Error(err))
		return "", &AuthError{Reason: err, Message: fmt.Sprintf("Falha ao criar conta: %v", err)}
	}
	if len(created) == 0 {
		return "", &AuthError{Reason: ErrNoUserCreated, Message: msgNoUserCreated}
	}

	session.Prefill(created[0])
	return onboarding.RoutePersonal, nil
}

// SignIn looks the account up by email and prefills the session with it.
func (s *Service) SignIn(ctx context.Context, session *onboarding.Session, form SignInForm) (onboarding.Route, error) {
	email := strings.TrimSpace(form.Email)
	if email == "" {
		return "", &AuthError{Reason: ErrMissingEmail, Message: msgMissingEmail}
	}

	users, err := s.gateway.FindUserByEmail(ctx, email)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error("sign in lookup", zap.Error(err))
		return "", &AuthError{Reason: err, Message: msgSignInFailed}
	}
	if len(users) == 0 {
		return "", &AuthError{Reason: ErrUserNotFound, Message: msgUserNotFound}
	}

	user := users[0]
	if password := strings.TrimSpace(form.Password); password != "" && user.PasswordHash != nil {
		if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
			return "", &AuthError{Reason: ErrInvalidPassword, Message: msgInvalidPassword}
		}
	}

	session.Prefill(user)
	return onboarding.RoutePersonal, nil
}

func (s *Service) buildUser(form RegisterForm) (persistence.UserParams, error) {
	firstName := strings.TrimSpace(form.FirstName)
	lastName := strings.TrimSpace(form.LastName)
	email := strings.TrimSpace(form.Email)
	password := strings.TrimSpace(form.Password)
	taxNumber := strings.TrimSpace(form.TaxNumber)
	birthDate := strings.TrimSpace(form.BirthDate)
	country := strings.TrimSpace(form.Country)

	if firstName == "" || lastName == "" || email == "" || password == "" {
		return persistence.UserParams{}, &AuthError{Reason: ErrMissingCredentials, Message: msgMissingCredentials}
	}
	if len(password) < MinPasswordLength {
		return persistence.UserParams{}, &AuthError{Reason: ErrWeakPassword, Message: msgWeakPassword}
	}
	if len(password) > MaxPasswordBytes {
		return persistence.UserParams{}, &AuthError{Reason: ErrPasswordTooLong, Message: msgPasswordTooLong}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return persistence.UserParams{}, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)

	if taxNumber == "" {
		taxNumber = DefaultTaxNumber
	}
	if birthDate == "" {
		birthDate = DefaultBirthDate
	}
	if country == "" {
		country = onboarding.DefaultCountry
	}

	return persistence.UserParams{
		Email:        email,
		Username:     onboarding.UsernameHint(firstName, lastName, strings.TrimSpace(form.TaxNumber)),
		TaxNumber:    taxNumber,
		FirstName:    firstName,
		LastName:     lastName,
		BirthDate:    birthDate,
		Country:      country,
		PostalCode:   strings.TrimSpace(form.PostalCode),
		HouseNumber:  strings.TrimSpace(form.HouseNumber),
		IsOwner:      true,
		PasswordHash: &hashed,
	}, nil
}
