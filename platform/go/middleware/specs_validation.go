package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	oapimiddleware "github.com/oapi-codegen/nethttp-middleware"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/platform/go/problemdetails"
)

// SessionSecurityScheme is the contract's apiKey scheme carried by SessionHeader.
const SessionSecurityScheme = "onboardingSession"

// ValidateSessionViaContract is the AuthenticationFunc for the contract validator.
// Operations that declare onboardingSession must carry a non-empty session header; whether
// the session exists is decided later by the session middleware.
func ValidateSessionViaContract(_ context.Context, input *openapi3filter.AuthenticationInput) error {
	if input == nil || input.SecuritySchemeName != SessionSecurityScheme {
		return nil
	}
	r := input.RequestValidationInput.Request
	if r == nil {
		return fmt.Errorf("no request in validation input")
	}
	if strings.TrimSpace(r.Header.Get(SessionHeader)) == "" {
		return fmt.Errorf("missing %s header", SessionHeader)
	}
	return nil
}

// ContractValidator validates requests against spec and renders failures as problem documents.
// Servers are cleared so paths match regardless of the host the API is exposed on.
func ContractValidator(spec *openapi3.T, logger *zap.Logger) func(http.Handler) http.Handler {
	if spec == nil {
		panic("contract validator: spec is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	spec.Servers = nil

	return oapimiddleware.OapiRequestValidatorWithOptions(spec, &oapimiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: ValidateSessionViaContract,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			logger.Debug("request rejected by contract", zap.Int("status", statusCode), zap.String("reason", message))
			problemdetails.Write(w, problemdetails.New(
				http.StatusText(statusCode),
				message,
				problemTypeForContract(statusCode),
				statusCode,
				nil,
			))
		},
	})
}

func problemTypeForContract(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return problemdetails.TypeUnauthorized
	case http.StatusNotFound:
		return problemdetails.TypeNotFound
	default:
		return problemdetails.TypeBadRequest
	}
}
