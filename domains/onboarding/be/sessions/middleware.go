package sessions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/monynha/botecopro/domains/onboarding/be/service"
	"github.com/monynha/botecopro/platform/go/logging"
	"github.com/monynha/botecopro/platform/go/requesttrace"
)

// HeaderName carries the session id on every wizard request.
const HeaderName = "X-Onboarding-Session"

type ctxKey struct{}

// WithSession returns a derived context carrying the session.
func WithSession(ctx context.Context, s *service.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext extracts the session attached by Middleware.
func FromContext(ctx context.Context) (*service.Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*service.Session)
	return s, ok && s != nil
}

// Middleware loads the session named by the X-Onboarding-Session header and attaches it
// to the request context, along with session and user ids on the audit info and logger.
// Unknown ids get 404; a missing header gets 400.
func Middleware(store Store, writeError func(w http.ResponseWriter, r *http.Request, status int, detail string)) func(http.Handler) http.Handler {
	if store == nil {
		panic("session middleware: store is required")
	}
	if writeError == nil {
		writeError = func(w http.ResponseWriter, _ *http.Request, status int, detail string) {
			http.Error(w, detail, status)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(HeaderName))
			if id == "" {
				writeError(w, r, http.StatusBadRequest, HeaderName+" header is required")
				return
			}

			s, err := store.Get(r.Context(), id)
			if errors.Is(err, ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "onboarding session not found")
				return
			}
			if err != nil {
				logging.Ctx(r.Context(), nil).Error("load onboarding session", zap.Error(err))
				writeError(w, r, http.StatusInternalServerError, "could not load onboarding session")
				return
			}

			ctx := WithSession(r.Context(), s)
			ctx = requesttrace.WithSessionID(ctx, s.ID)
			if s.UserID != nil {
				ctx = requesttrace.WithUserID(ctx, s.UserID.String())
			}
			if logger, ok := logging.FromContext(ctx); ok {
				ctx = logging.WithLogger(ctx, logger.With(zap.String("session_id", s.ID)))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
