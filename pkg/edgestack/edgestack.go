// Package edgestack provides the public API for embedding the service.
// This is the stable API for external consumers.
package edgestack

import (
	"github.com/tjfontaine/edgestack/internal/config"
	"github.com/tjfontaine/edgestack/internal/runtime"
	"github.com/tjfontaine/edgestack/internal/storage"
	"github.com/tjfontaine/edgestack/internal/storage/sqldb"
)

// App is the API plus frontend server.
// See internal/runtime.App for full documentation.
type App = runtime.App

// Option is a functional option for configuring an App.
type Option = runtime.Option

// Config is the resolved service configuration.
type Config = config.Config

// New creates a new App with the given options.
// Example:
//
//	cfg, _ := edgestack.LoadConfig(edgestack.DefaultConfigSources()...)
//	store, _ := edgestack.OpenStore(ctx, cfg.DatabaseURL(), edgestack.StoreOptions{})
//	app, err := edgestack.New(
//	    edgestack.WithConfig(cfg),
//	    edgestack.WithStoreProvider(edgestack.NewSingletonProvider(store)),
//	)
var New = runtime.New

// Configuration
var (
	LoadConfig           = config.Load
	DefaultConfigSources = config.DefaultSources
)

// Storage
type StoreOptions = sqldb.Options

var (
	OpenStore             = sqldb.Open
	NewSingletonProvider  = storage.NewSingletonProvider
	NewPerRequestProvider = storage.NewPerRequestProvider
)

// Options
var (
	WithConfig         = runtime.WithConfig
	WithLogger         = runtime.WithLogger
	WithStoreProvider  = runtime.WithStoreProvider
	WithVerifier       = runtime.WithVerifier
	WithFrontend       = runtime.WithFrontend
	WithTracerShutdown = runtime.WithTracerShutdown
)
