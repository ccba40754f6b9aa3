package identity

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tjfontaine/edgestack/internal/pkg/safehttp"
)

// ClerkConfig holds the provider credentials.
type ClerkConfig struct {
	SecretKey      string
	PublishableKey string
	// JWTKey is the PEM encoded instance public key. When set, tokens are
	// verified without calling the provider.
	JWTKey string
	APIURL string

	// HTTPClient fetches the JWKS. Defaults to a client that refuses
	// private network addresses.
	HTTPClient *http.Client
}

// ClerkVerifier verifies RS256 session tokens against a static PEM key or
// the provider's JWKS endpoint.
type ClerkVerifier struct {
	secret    string
	issuer    string
	staticKey *rsa.PublicKey
	jwks      *jwksCache
	leeway    time.Duration
}

var _ Verifier = (*ClerkVerifier)(nil)

// sessionClaims are the claims found in session tokens.
type sessionClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	ImageURL  string `json:"image_url,omitempty"`
	SessionID string `json:"sid,omitempty"`
	OrgID     string `json:"org_id,omitempty"`
}

// NewClerkVerifier creates a verifier. It only fails on an unparseable PEM
// key; a missing secret surfaces as ErrMissingSecret on each Verify.
func NewClerkVerifier(cfg ClerkConfig) (*ClerkVerifier, error) {
	v := &ClerkVerifier{
		secret: cfg.SecretKey,
		leeway: 5 * time.Second,
	}
	if iss, ok := IssuerFromPublishableKey(cfg.PublishableKey); ok {
		v.issuer = iss
	}

	if cfg.JWTKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.JWTKey))
		if err != nil {
			return nil, fmt.Errorf("parse jwt key: %w", err)
		}
		v.staticKey = key
	}

	client := cfg.HTTPClient
	if client == nil {
		client = safehttp.NewClient(10 * time.Second)
	}
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = "https://api.clerk.com"
	}
	v.jwks = newJWKSCache(apiURL, cfg.SecretKey, client)

	return v, nil
}

// Verify checks the signature, the time claims and, when known, the issuer.
func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*Claims, error) {
	if v.staticKey == nil && v.secret == "" {
		return nil, ErrMissingSecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		if v.staticKey != nil {
			return v.staticKey, nil
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid")
		}
		return v.jwks.key(ctx, kid)
	}, opts...)
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) {
			return nil, fe
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.ImageURL,
		SessionID: claims.SessionID,
		OrgID:     claims.OrgID,
	}, nil
}
