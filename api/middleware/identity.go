package middleware

import (
	"context"
	"net/http"

	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/internal/access"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
)

type identitySource interface {
	Me(ctx context.Context) (*kingapi.User, error)
}

// ResolveIdentity asks the remote API who the forwarded cookies belong to.
// Requests without remote cookies are guests and skip the lookup.
func ResolveIdentity(source identitySource, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if source == nil || kingapi.CookieFromContext(ctx) == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := source.Me(ctx)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			identity, err := access.IdentityFromUser(user)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve identity"))
				return
			}
			if identity != nil {
				ctx = WithIdentity(ctx, identity)
				if logg != nil {
					ctx = logg.WithUserID(ctx, identity.UserID)
					ctx = logg.WithUserType(ctx, string(identity.UserType))
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireArea gates a route group on the access decision for area.
// Guests are told to sign in; signed-in users without access are refused.
func RequireArea(area access.Area, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if access.CanAccess(identity, area) {
				next.ServeHTTP(w, r)
				return
			}
			if identity == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in required"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "access denied for "+string(area)))
		})
	}
}
