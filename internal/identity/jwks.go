package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"
)

// minRefreshInterval bounds how often an unknown kid may trigger a refetch.
const minRefreshInterval = 30 * time.Second

// fetchError marks a failure to obtain keys, as opposed to a bad token.
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return "identity: fetch jwks: " + e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// jwksCache holds the provider's signing keys by kid.
type jwksCache struct {
	url      string
	secret   string
	client   *http.Client
	interval time.Duration
	now      func() time.Time

	group singleflight.Group

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastFetched time.Time
}

func newJWKSCache(apiURL, secret string, client *http.Client) *jwksCache {
	return &jwksCache{
		url:      strings.TrimRight(apiURL, "/") + "/v1/jwks",
		secret:   secret,
		client:   client,
		interval: minRefreshInterval,
		now:      time.Now,
		keys:     make(map[string]*rsa.PublicKey),
	}
}

// key returns the key for kid. An unknown kid refetches the set at most
// once per interval; concurrent refetches share one request.
func (c *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	k, ok := c.keys[kid]
	fresh := !c.lastFetched.IsZero() && c.now().Sub(c.lastFetched) < c.interval
	c.mu.RUnlock()
	if ok {
		return k, nil
	}
	if fresh {
		return nil, fmt.Errorf("no signing key for kid %q", kid)
	}

	if _, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.refresh(ctx)
	}); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if k, ok := c.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("no signing key for kid %q", kid)
}

func (c *jwksCache) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return &fetchError{err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &fetchError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &fetchError{err: fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var set jose.JSONWebKeySet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return &fetchError{err: fmt.Errorf("decode: %w", err)}
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, ok := k.Key.(*rsa.PublicKey)
		if !ok {
			continue
		}
		keys[k.KeyID] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.lastFetched = c.now()
	c.mu.Unlock()
	return nil
}
