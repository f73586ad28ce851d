package controllers

import (
	"context"
	"net/http"

	"github.com/kingshoppers/storefront/api/middleware"
	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/internal/access"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/logger"
)

// LogoutAPI ends the remote session.
type LogoutAPI interface {
	Logout(ctx context.Context) ([]*http.Cookie, error)
}

type meResponse struct {
	Authenticated bool             `json:"authenticated"`
	Identity      *access.Identity `json:"identity,omitempty"`
	LandingPath   string           `json:"landing_path"`
	CanCheckout   bool             `json:"can_checkout"`
}

// AuthMe reports who is signed in and where they belong. Guests get an
// unauthenticated answer, not an error.
func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity := middleware.IdentityFromContext(r.Context())
		responses.WriteSuccess(w, meResponse{
			Authenticated: identity != nil,
			Identity:      identity,
			LandingPath:   access.LandingPath(identity),
			CanCheckout:   access.CanAccess(identity, access.AreaCheckout),
		})
	}
}

// AuthLogout ends the remote session and relays its cookies to the browser.
// The cart session cookie is kept so the guest cart survives sign-out.
func AuthLogout(api LogoutAPI, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if api == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth api unavailable"))
			return
		}
		cookies, err := api.Logout(r.Context())
		if err != nil && !pkgerrors.Is(err, pkgerrors.CodeSessionExpired) {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		for _, c := range cookies {
			http.SetCookie(w, c)
		}
		responses.WriteSuccess(w, map[string]string{"redirect": access.PathLogin})
	}
}
