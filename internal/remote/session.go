package remote

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sessions are refreshed this long before the token's exp claim to
// avoid racing the backend's clock.
const expiryLeeway = 30 * time.Second

// User is the account the device authenticated as, echoed by login.
type User struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	FullName       string  `json:"full_name"`
	Role           string  `json:"role"`
	Mode           string  `json:"mode"`
	AssignedSites  []int64 `json:"assigned_sites"`
	OrganizationID int64   `json:"organization_id"`
}

// Session holds the bearer token from one login plus its decoded
// expiry. It is a value the client swaps atomically on re-login, never
// a bag of globals.
type Session struct {
	Token     string
	TokenType string
	User      User
	ExpiresAt time.Time
}

// newSession decodes the token's exp claim without verifying the
// signature. The agent only needs to know when to log in again; trust
// stays server-side.
func newSession(token, tokenType string, user User) Session {
	s := Session{Token: token, TokenType: tokenType, User: user}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			s.ExpiresAt = exp.Time
		}
	}
	return s
}

// Valid reports whether the session can still authenticate requests.
// A token with no decodable expiry is trusted until the backend
// rejects it with a 401.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(expiryLeeway).Before(s.ExpiresAt)
}
