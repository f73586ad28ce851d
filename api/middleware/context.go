package middleware

import (
	"context"

	"github.com/kingshoppers/storefront/internal/access"
)

type contextKey string

const (
	ctxSessionID contextKey = "cart_session_id"
	ctxIdentity  contextKey = "identity"
)

// SessionIDFromContext returns the cart session bound to the request.
func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// IdentityFromContext returns the resolved identity, or nil for guests and
// routes that never resolved one.
func IdentityFromContext(ctx context.Context) *access.Identity {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxIdentity).(*access.Identity); ok {
		return v
	}
	return nil
}

// UserIDFromContext returns the signed-in user's id when known.
func UserIDFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// WithSessionID injects the cart session id into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

// WithIdentity injects the resolved identity into the context.
func WithIdentity(ctx context.Context, identity *access.Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxIdentity, identity)
}
