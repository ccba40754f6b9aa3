package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"go.opentelemetry.io/otel"

	"github.com/tjfontaine/edgestack/internal/config"
)

func TestInitTracer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{Environment: config.EnvTest}
		shutdown, err := InitTracer(cfg, logger)
		if err != nil {
			t.Fatalf("InitTracer() error = %v", err)
		}
		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		var out bytes.Buffer
		spanOutput = &out
		t.Cleanup(func() { spanOutput = os.Stderr })

		cfg := &config.Config{Environment: config.EnvProduction}
		cfg.Middleware.Tracing = config.TracingConfig{Enabled: true, ServiceName: "edgestack-test", SampleRatio: 1}

		shutdown, err := InitTracer(cfg, logger)
		if err != nil {
			t.Fatalf("InitTracer() error = %v", err)
		}

		_, span := otel.Tracer("test").Start(context.Background(), "op")
		if !span.SpanContext().IsSampled() {
			t.Error("span should be sampled at ratio 1")
		}
		span.End()

		if err := shutdown(context.Background()); err != nil {
			t.Errorf("shutdown() error = %v", err)
		}
		if !bytes.Contains(out.Bytes(), []byte(`"Name":"op"`)) {
			t.Errorf("exported spans = %q, want the op span on the span writer", out.String())
		}
	})
}
