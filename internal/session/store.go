package session

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/eduvoyage/admin-gateway/internal/models"
)

// ErrNoSession is returned when no admin is logged in.
var ErrNoSession = errors.New("no active session")

// Store is the single narrow capability for session access. Effect handlers
// resolve bearer tokens through it instead of reading storage directly.
type Store interface {
	// Token returns the active bearer token or ErrNoSession.
	Token(ctx context.Context) (string, error)
	// CurrentUser returns the logged-in administrator or ErrNoSession.
	CurrentUser(ctx context.Context) (*models.AdminUser, error)
	// SaveLogin persists the user profile and bearer token.
	SaveLogin(ctx context.Context, user models.AdminUser, token string) error
	// Clear removes the session. Clearing an absent session is a no-op.
	Clear(ctx context.Context) error
}

// Info assembles the local view of the session, decoding the token's expiry
// when it is a JWT. The upstream owns the signature; the claims are parsed
// unverified purely for display.
func Info(ctx context.Context, store Store) models.SessionInfo {
	user, err := store.CurrentUser(ctx)
	if err != nil {
		return models.SessionInfo{}
	}
	token, err := store.Token(ctx)
	if err != nil {
		return models.SessionInfo{}
	}

	info := models.SessionInfo{User: *user, Token: token, LoggedIn: true}
	if expiry, ok := tokenExpiry(token); ok {
		info.ExpiresAt = expiry
	}
	return info
}

func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
