package storage

import (
	"context"
	"fmt"

	"github.com/tjfontaine/edgestack/internal/core/ports"
)

// Provider hands out a store for the duration of one request.
// The returned release func must be called when the request is done.
type Provider interface {
	Acquire(ctx context.Context) (ports.Store, func(), error)
	Close() error
}

// SingletonProvider serves one store opened at process start. It suits
// long-lived runtimes where the connection pool outlives requests.
type SingletonProvider struct {
	store ports.Store
}

// NewSingletonProvider wraps an already opened store.
func NewSingletonProvider(store ports.Store) *SingletonProvider {
	return &SingletonProvider{store: store}
}

func (p *SingletonProvider) Acquire(context.Context) (ports.Store, func(), error) {
	return p.store, func() {}, nil
}

// Close closes the wrapped store.
func (p *SingletonProvider) Close() error {
	return p.store.Close()
}

// OpenFunc opens a new store.
type OpenFunc func(ctx context.Context) (ports.Store, error)

// PerRequestProvider opens a fresh store for every request and closes it on
// release. Edge runtimes cannot keep sockets across invocations, so the
// reconnect cost is paid on each request.
type PerRequestProvider struct {
	open OpenFunc
}

// NewPerRequestProvider creates a provider that calls open once per Acquire.
func NewPerRequestProvider(open OpenFunc) *PerRequestProvider {
	return &PerRequestProvider{open: open}
}

func (p *PerRequestProvider) Acquire(ctx context.Context) (ports.Store, func(), error) {
	s, err := p.open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open per-request store: %w", err)
	}
	return s, func() { _ = s.Close() }, nil
}

// Close is a no-op; every store is closed on release.
func (p *PerRequestProvider) Close() error { return nil }
