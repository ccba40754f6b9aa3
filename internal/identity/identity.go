// Package identity verifies session tokens issued by the identity provider.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrMissingSecret means the server has no key material to verify with.
	ErrMissingSecret = errors.New("identity: secret key not configured")
	// ErrInvalidToken wraps every reason a token is rejected.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// Claims is the verified identity carried by a session token.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	AvatarURL string
	SessionID string
	OrgID     string
}

// Verifier checks a bearer token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}
