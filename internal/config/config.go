// Package config resolves the service configuration from an ordered list of
// sources: platform bindings, then process environment, then defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	ModeProcess = "process"
	ModeEdge    = "edge"
)

type Config struct {
	Environment string           `koanf:"environment"`
	Server      ServerConfig     `koanf:"server"`
	Runtime     RuntimeConfig    `koanf:"runtime"`
	Database    DatabaseConfig   `koanf:"database"`
	Auth        AuthConfig       `koanf:"auth"`
	Middleware  MiddlewareConfig `koanf:"middleware"`

	warnings []string
}

type ServerConfig struct {
	Port              int           `koanf:"port"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
}

// RuntimeConfig selects the lifetime model: "process" keeps one database
// client for the life of the process, "edge" opens one per request.
type RuntimeConfig struct {
	Mode string `koanf:"mode"`
}

type DatabaseConfig struct {
	PoolURL   string `koanf:"pool_url"`   // managed pooler (DATABASE_URL)
	DirectURL string `koanf:"direct_url"` // direct socket (DIRECT_URL)
}

type AuthConfig struct {
	SecretKey      string `koanf:"secret_key"`
	PublishableKey string `koanf:"publishable_key"`
	JWTKey         string `koanf:"jwt_key"` // optional PEM public key for networkless verification
	APIURL         string `koanf:"api_url"`
}

type MiddlewareConfig struct {
	RequestID   RequestIDConfig   `koanf:"request_id"`
	Logging     LoggingConfig     `koanf:"logging"`
	Tracing     TracingConfig     `koanf:"tracing"`
	CORS        CORSConfig        `koanf:"cors"`
	Security    SecurityConfig    `koanf:"security"`
	Compression CompressionConfig `koanf:"compression"`
	Metrics     MetricsConfig     `koanf:"metrics"`
}

type RequestIDConfig struct {
	Enabled bool   `koanf:"enabled"`
	Header  string `koanf:"header"`
}

type LoggingConfig struct {
	Enabled bool   `koanf:"enabled"`
	Level   string `koanf:"level"`  // debug, info, warn, error
	Format  string `koanf:"format"` // json, text
}

type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio"`
}

type CORSConfig struct {
	Enabled       bool     `koanf:"enabled"`
	Origins       []string `koanf:"origins"`
	Credentials   bool     `koanf:"credentials"`
	Methods       []string `koanf:"methods"`
	Headers       []string `koanf:"headers"`
	ExposeHeaders []string `koanf:"expose_headers"`
	MaxAge        int      `koanf:"max_age"`
}

type SecurityConfig struct {
	Enabled bool `koanf:"enabled"`
	Strict  bool `koanf:"strict"`
}

type CompressionConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Encoding string `koanf:"encoding"` // gzip, deflate
	Level    int    `koanf:"level"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

// envKeys maps the well-known platform variable names to config paths.
var envKeys = map[string]string{
	"ENVIRONMENT":           "environment",
	"PORT":                  "server.port",
	"RUNTIME_MODE":          "runtime.mode",
	"DATABASE_URL":          "database.pool_url",
	"DIRECT_URL":            "database.direct_url",
	"CLERK_SECRET_KEY":      "auth.secret_key",
	"CLERK_PUBLISHABLE_KEY": "auth.publishable_key",
	"CLERK_JWT_KEY":         "auth.jwt_key",
	"CLERK_API_URL":         "auth.api_url",
	"CORS_ORIGIN":           "middleware.cors.origins",
	"LOG_LEVEL":             "middleware.logging.level",
	"LOG_FORMAT":            "middleware.logging.format",
	"OTEL_SERVICE_NAME":     "middleware.tracing.service_name",
}

// EnvPrefix addresses any config path from the environment, with "__"
// separating levels: EDGESTACK_MIDDLEWARE__CORS__ENABLED=false.
const EnvPrefix = "EDGESTACK_"

// BindingsEnv names the variable that overrides the bindings file path.
const BindingsEnv = "EDGESTACK_BINDINGS"

// Source loads one layer of configuration into k.
type Source struct {
	Name string
	Load func(k *koanf.Koanf) error
}

// DefaultSources returns the bindings file and the process environment, in
// priority order.
func DefaultSources() []Source {
	path := os.Getenv(BindingsEnv)
	if path == "" {
		path = "bindings.yaml"
	}
	return []Source{Bindings(path), Env()}
}

// Bindings reads a YAML file of platform variables. Top-level keys use the
// well-known names (DATABASE_URL, ...); any other key is taken as a config
// path. A missing file is not an error.
func Bindings(path string) Source {
	return Source{
		Name: "bindings:" + path,
		Load: func(k *koanf.Koanf) error {
			raw := koanf.New(".")
			if err := raw.Load(file.Provider(path), yaml.Parser()); err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return fmt.Errorf("load bindings %s: %w", path, err)
			}
			for key, val := range raw.All() {
				if s, ok := val.(string); ok {
					val = substituteEnvVars(s)
				}
				if mapped, ok := envKeys[key]; ok {
					key = mapped
				}
				k.Set(key, val)
			}
			return nil
		},
	}
}

// Env reads the well-known variables and EDGESTACK_ prefixed paths.
func Env() Source {
	return Source{
		Name: "env",
		Load: func(k *koanf.Koanf) error {
			return k.Load(env.Provider("", ".", envKey), nil)
		},
	}
}

func envKey(s string) string {
	if mapped, ok := envKeys[s]; ok {
		return mapped
	}
	if strings.HasPrefix(s, EnvPrefix) && s != BindingsEnv {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}
	return "" // skip
}

// Load builds the configuration. Sources are listed highest priority first;
// defaults fill whatever none of them set.
func Load(sources ...Source) (*Config, error) {
	k := koanf.New(".")
	for i := len(sources) - 1; i >= 0; i-- {
		if err := sources[i].Load(k); err != nil {
			return nil, fmt.Errorf("config source %s: %w", sources[i].Name, err)
		}
	}
	return Resolve(k)
}

// Resolve applies defaults to a copy of k and decodes it. Production flips
// the strict security headers, the trace sample ratio and the log level.
func Resolve(k *koanf.Koanf) (*Config, error) {
	k = k.Copy()

	if !k.Exists("environment") || k.String("environment") == "" {
		k.Set("environment", EnvDevelopment)
	}
	prod := k.String("environment") == EnvProduction

	defaults := map[string]any{
		"server.port":                     8787,
		"server.read_header_timeout":      10 * time.Second,
		"runtime.mode":                    ModeProcess,
		"auth.api_url":                    "https://api.clerk.com",
		"middleware.request_id.enabled":   true,
		"middleware.request_id.header":    "X-Request-ID",
		"middleware.logging.enabled":      true,
		"middleware.logging.format":       "json",
		"middleware.tracing.enabled":      true,
		"middleware.tracing.service_name": "edgestack-api",
		"middleware.cors.enabled":         true,
		"middleware.cors.credentials":     true,
		"middleware.cors.methods":         []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		"middleware.cors.headers":         []string{"Content-Type", "Authorization", "X-Request-ID"},
		"middleware.cors.expose_headers":  []string{"X-Request-ID"},
		"middleware.cors.max_age":         86400,
		"middleware.security.enabled":     true,
		"middleware.security.strict":      prod,
		"middleware.compression.enabled":  true,
		"middleware.compression.encoding": "gzip",
		"middleware.compression.level":    5,
		"middleware.metrics.enabled":      true,
		"middleware.logging.level":        "debug",
		"middleware.tracing.sample_ratio": 1.0,
		"middleware.cors.origins":         []string{"http://localhost:3000"},
	}
	if prod {
		defaults["middleware.logging.level"] = "info"
		defaults["middleware.tracing.sample_ratio"] = 0.1
		defaults["middleware.cors.origins"] = []string{}
	}
	for path, v := range defaults {
		if !k.Exists(path) {
			k.Set(path, v)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	c := &cfg.Middleware.CORS
	c.Origins = splitList(c.Origins)
	c.Methods = splitList(c.Methods)
	c.Headers = splitList(c.Headers)
	c.ExposeHeaders = splitList(c.ExposeHeaders)
	cfg.Middleware.Logging.Level = strings.ToLower(cfg.Middleware.Logging.Level)
	cfg.Middleware.Logging.Format = strings.ToLower(cfg.Middleware.Logging.Format)
	cfg.normalize(prod)

	return &cfg, nil
}

// normalize replaces unusable values with their defaults and records a
// warning for each one. Unknown environment tags behave like development.
func (c *Config) normalize(prod bool) {
	warn := func(format string, args ...any) {
		c.warnings = append(c.warnings, fmt.Sprintf(format, args...))
	}

	switch c.Environment {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		warn("environment: unknown value %q, using development settings", c.Environment)
	}
	switch c.Runtime.Mode {
	case ModeProcess, ModeEdge:
	default:
		warn("runtime.mode: unknown value %q, using %q", c.Runtime.Mode, ModeProcess)
		c.Runtime.Mode = ModeProcess
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		warn("server.port: %d out of range, using 8787", c.Server.Port)
		c.Server.Port = 8787
	}
	switch c.Middleware.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		level := "debug"
		if prod {
			level = "info"
		}
		warn("middleware.logging.level: unknown level %q, using %q", c.Middleware.Logging.Level, level)
		c.Middleware.Logging.Level = level
	}
	switch c.Middleware.Logging.Format {
	case "json", "text":
	default:
		warn("middleware.logging.format: unknown format %q, using json", c.Middleware.Logging.Format)
		c.Middleware.Logging.Format = "json"
	}
	switch c.Middleware.Compression.Encoding {
	case "gzip", "deflate":
	default:
		warn("middleware.compression.encoding: unsupported %q, using gzip", c.Middleware.Compression.Encoding)
		c.Middleware.Compression.Encoding = "gzip"
	}
	if r := c.Middleware.Tracing.SampleRatio; r < 0 || r > 1 {
		clamped := min(max(r, 0), 1)
		warn("middleware.tracing.sample_ratio: %v not in [0,1], using %v", r, clamped)
		c.Middleware.Tracing.SampleRatio = clamped
	}
}

// IsProduction reports whether the environment tag is "production".
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// DatabaseURL returns the pooled URL when set, else the direct URL.
func (c *Config) DatabaseURL() string {
	if c.Database.PoolURL != "" {
		return c.Database.PoolURL
	}
	return c.Database.DirectURL
}

// Validate reports the settings the service cannot start without. Only a
// database URL is required; everything else has a usable default.
func (c *Config) Validate() error {
	if c.DatabaseURL() == "" {
		return errors.New("database: DATABASE_URL or DIRECT_URL is required")
	}
	return nil
}

// Warnings lists the values that were replaced by defaults during Resolve,
// plus settings whose absence degrades the service without stopping it.
func (c *Config) Warnings() []string {
	out := append([]string(nil), c.warnings...)
	if c.Auth.SecretKey == "" && c.Auth.JWTKey == "" {
		out = append(out, "auth: CLERK_SECRET_KEY is not set, authenticated routes will answer 401")
	}
	return out
}

// splitList flattens comma separated entries, as produced by env values
// like CORS_ORIGIN=https://a.example,https://b.example.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnvVars expands ${VAR} references in binding values.
func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
