package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/requesttrace"
)

// RequestTrace stores an anonymous AuditInfo carrying the request id. Session resolution
// upgrades it later in the chain once the wizard session is known.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		audit := requesttrace.Anonymous(requestID)

		ctx := requesttrace.IntoContext(r.Context(), audit)
		if logger, ok := logging.FromContext(ctx); ok {
			ctx = logging.WithLogger(ctx, logger.With(zap.String("actor_kind", string(audit.ActorKind))))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
