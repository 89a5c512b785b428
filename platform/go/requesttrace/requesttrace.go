package requesttrace

import (
	"context"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "BOTECOPRO_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo captures request-scoped metadata for traceability.
// SessionID is set once an onboarding session is resolved; UserID once that session
// is bound to a stored user.
type AuditInfo struct {
	ActorKind ActorKind
	UserID    *string
	SessionID string
	RequestID string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	audit, ok := ctx.Value(ctxAuditInfo).(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// WithSessionID records the onboarding session on the request's AuditInfo.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	audit := FromContextOrAnonymous(ctx)
	audit.SessionID = sessionID
	return IntoContext(ctx, audit)
}

// WithUserID marks the request as issued by a known user.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	audit := FromContextOrAnonymous(ctx)
	audit.ActorKind = ActorKindUser
	audit.UserID = &userID
	return IntoContext(ctx, audit)
}

// Anonymous builds an AuditInfo for requests where no user is known yet (register, new session).
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for CLI and background operations.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
