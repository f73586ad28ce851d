package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/kingshoppers/storefront/api/responses"
	"github.com/kingshoppers/storefront/pkg/auth"
	"github.com/kingshoppers/storefront/pkg/config"
	pkgerrors "github.com/kingshoppers/storefront/pkg/errors"
	"github.com/kingshoppers/storefront/pkg/kingapi"
	"github.com/kingshoppers/storefront/pkg/logger"
)

// CartSession binds every request to a shopping session. The session id
// travels in a signed cookie; a missing, expired or tampered cookie starts
// a fresh session. The remaining cookies are forwarded to the remote API.
func CartSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := ""
			if c, err := r.Cookie(cfg.CookieName); err == nil && c.Value != "" {
				claims, parseErr := auth.ParseCartSession(cfg, c.Value)
				if parseErr == nil {
					sessionID = claims.SessionID
				} else if logg != nil {
					logg.Debug(logg.WithField(ctx, "reason", parseErr.Error()), "cart_session.rejected")
				}
			}

			if sessionID == "" {
				sessionID = auth.NewSessionID()
				now := time.Now()
				token, err := auth.MintCartSession(cfg, now, sessionID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint cart session"))
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    token,
					Path:     "/",
					Expires:  now.Add(cfg.TTL),
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx = WithSessionID(ctx, sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			if forwarded := forwardedCookies(r, cfg.CookieName); forwarded != "" {
				ctx = kingapi.WithCookie(ctx, forwarded)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func forwardedCookies(r *http.Request, exclude string) string {
	cookies := r.Cookies()
	parts := make([]string, 0, len(cookies))
	for _, c := range cookies {
		if c.Name == exclude {
			continue
		}
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}
