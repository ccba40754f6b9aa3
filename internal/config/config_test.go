package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knadh/koanf/v2"
)

// clearEnv unsets every variable the loader reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for name := range envKeys {
		if v, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, v) })
		}
	}
}

func writeBindings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bindings.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Bindings(filepath.Join(t.TempDir(), "missing.yaml")), Env())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %v, want %v", cfg.Environment, EnvDevelopment)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Port = %v, want 8787", cfg.Server.Port)
	}
	if cfg.Runtime.Mode != ModeProcess {
		t.Errorf("Runtime.Mode = %v, want %v", cfg.Runtime.Mode, ModeProcess)
	}

	mw := cfg.Middleware
	if !mw.RequestID.Enabled || mw.RequestID.Header != "X-Request-ID" {
		t.Errorf("RequestID = %+v", mw.RequestID)
	}
	if mw.Tracing.ServiceName != "edgestack-api" || mw.Tracing.SampleRatio != 1.0 {
		t.Errorf("Tracing = %+v", mw.Tracing)
	}
	if mw.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", mw.Logging.Level)
	}
	if len(mw.CORS.Origins) != 1 || mw.CORS.Origins[0] != "http://localhost:3000" {
		t.Errorf("CORS.Origins = %v", mw.CORS.Origins)
	}
	if !mw.CORS.Credentials || mw.CORS.MaxAge != 86400 {
		t.Errorf("CORS = %+v", mw.CORS)
	}
	if strings.Join(mw.CORS.Methods, ",") != "GET,POST,PUT,DELETE,OPTIONS,PATCH" {
		t.Errorf("CORS.Methods = %v", mw.CORS.Methods)
	}
	if mw.Security.Strict {
		t.Error("Security.Strict should be false outside production")
	}
	if mw.Compression.Encoding != "gzip" || mw.Compression.Level != 5 {
		t.Errorf("Compression = %+v", mw.Compression)
	}
}

func TestLoad_ProductionDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load(Env())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Fatal("IsProduction() = false")
	}
	if !cfg.Middleware.Security.Strict {
		t.Error("Security.Strict should be true in production")
	}
	if cfg.Middleware.Tracing.SampleRatio != 0.1 {
		t.Errorf("SampleRatio = %v, want 0.1", cfg.Middleware.Tracing.SampleRatio)
	}
	if cfg.Middleware.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Middleware.Logging.Level)
	}
	if len(cfg.Middleware.CORS.Origins) != 0 {
		t.Errorf("CORS.Origins = %v, want none", cfg.Middleware.CORS.Origins)
	}
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://env-host/db")
	t.Setenv("DIRECT_URL", "postgres://env-direct/db")
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGIN", "https://a.example.com, https://b.example.com")
	t.Setenv("EDGESTACK_MIDDLEWARE__METRICS__ENABLED", "false")

	path := writeBindings(t, `
DATABASE_URL: postgres://binding-host/db
CLERK_SECRET_KEY: ${TEST_CLERK_SECRET}
middleware.compression.level: 9
`)
	t.Setenv("TEST_CLERK_SECRET", "sk_test_123")

	cfg, err := Load(Bindings(path), Env())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Database.PoolURL != "postgres://binding-host/db" {
		t.Errorf("PoolURL = %v, want the binding value", cfg.Database.PoolURL)
	}
	if cfg.Database.DirectURL != "postgres://env-direct/db" {
		t.Errorf("DirectURL = %v, want the env value", cfg.Database.DirectURL)
	}
	if cfg.DatabaseURL() != "postgres://binding-host/db" {
		t.Errorf("DatabaseURL() = %v, want the pooled URL", cfg.DatabaseURL())
	}
	if cfg.Auth.SecretKey != "sk_test_123" {
		t.Errorf("SecretKey = %v, want substituted value", cfg.Auth.SecretKey)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Port = %v, want 9000", cfg.Server.Port)
	}
	if cfg.Middleware.Compression.Level != 9 {
		t.Errorf("Compression.Level = %v, want 9", cfg.Middleware.Compression.Level)
	}
	if cfg.Middleware.Metrics.Enabled {
		t.Error("Metrics.Enabled should be overridden to false")
	}
	origins := cfg.Middleware.CORS.Origins
	if len(origins) != 2 || origins[0] != "https://a.example.com" || origins[1] != "https://b.example.com" {
		t.Errorf("CORS.Origins = %v", origins)
	}
}

func TestLoad_MalformedBindings(t *testing.T) {
	clearEnv(t)
	path := writeBindings(t, "DATABASE_URL: [unterminated")

	if _, err := Load(Bindings(path)); err == nil {
		t.Error("Load() should fail on malformed YAML")
	}
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	k := koanf.New(".")
	if _, err := Resolve(k); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if k.Exists("server.port") {
		t.Error("Resolve() should not write defaults into its argument")
	}
}

func TestConfig_Validate(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Env())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("Validate() error = %v, want a DATABASE_URL problem", err)
	}

	// A missing secret is a warning; requests then fail with 401.
	cfg.Database.DirectURL = "postgres://localhost/db"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if w := strings.Join(cfg.Warnings(), "\n"); !strings.Contains(w, "CLERK_SECRET_KEY") {
		t.Errorf("Warnings() = %q, want a CLERK_SECRET_KEY warning", w)
	}

	cfg.Auth.SecretKey = "sk_test"
	if w := cfg.Warnings(); len(w) != 0 {
		t.Errorf("Warnings() = %q, want none", w)
	}
}

func TestResolve_UnknownEnvironment(t *testing.T) {
	k := koanf.New(".")
	k.Set("environment", "staging")
	k.Set("database.pool_url", "postgres://pooler.example.com:6543/db")
	k.Set("auth.secret_key", "sk_test")

	cfg, err := Resolve(k)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for staging")
	}
	if cfg.Middleware.Security.Strict {
		t.Error("Security.Strict = true, want development settings")
	}
	if cfg.Middleware.Logging.Level != "debug" || cfg.Middleware.Tracing.SampleRatio != 1.0 {
		t.Errorf("logging.level = %q, sample_ratio = %v, want development defaults",
			cfg.Middleware.Logging.Level, cfg.Middleware.Tracing.SampleRatio)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
	if w := strings.Join(cfg.Warnings(), "\n"); !strings.Contains(w, "staging") {
		t.Errorf("Warnings() = %q, want the unknown environment reported", w)
	}
}

func TestResolve_InvalidValuesFallBack(t *testing.T) {
	k := koanf.New(".")
	k.Set("runtime.mode", "lambda")
	k.Set("server.port", 70000)
	k.Set("middleware.logging.level", "loud")
	k.Set("middleware.logging.format", "xml")
	k.Set("middleware.compression.encoding", "br")
	k.Set("middleware.tracing.sample_ratio", 3.0)

	cfg, err := Resolve(k)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	tests := []struct {
		name      string
		got, want any
	}{
		{"runtime.mode", cfg.Runtime.Mode, ModeProcess},
		{"server.port", cfg.Server.Port, 8787},
		{"logging.level", cfg.Middleware.Logging.Level, "debug"},
		{"logging.format", cfg.Middleware.Logging.Format, "json"},
		{"compression.encoding", cfg.Middleware.Compression.Encoding, "gzip"},
		{"tracing.sample_ratio", cfg.Middleware.Tracing.SampleRatio, 1.0},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
	// six replaced values plus the missing secret
	if got := len(cfg.Warnings()); got != 7 {
		t.Errorf("Warnings() has %d entries, want 7: %q", got, cfg.Warnings())
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "${TEST_VAR}", "test-value"},
		{"substitution in string", "prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"no substitution", "plain-string", "plain-string"},
		{"undefined var", "${UNDEFINED_VAR_FOR_TEST}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
