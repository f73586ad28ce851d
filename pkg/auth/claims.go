package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// CartSessionClaims identify the anonymous-or-signed-in shopping session
// a cart belongs to. The JWT subject is the session id.
type CartSessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}
