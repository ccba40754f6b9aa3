package middleware

import (
	"compress/flate"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tjfontaine/edgestack/internal/config"
)

var compressibleTypes = []string{
	"application/json",
	"text/html",
	"text/css",
	"text/plain",
	"text/javascript",
	"application/javascript",
	"image/svg+xml",
}

// Compress negotiates response compression with chi's compressor. Both gzip
// and deflate are offered; encoding "deflate" gives deflate precedence when
// the client accepts both.
func Compress(cfg config.CompressionConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	level := cfg.Level
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.DefaultCompression
	}

	c := chimw.NewCompressor(level, compressibleTypes...)
	if cfg.Encoding == "deflate" {
		c.SetEncoder("deflate", func(w io.Writer, level int) io.Writer {
			fw, err := flate.NewWriter(w, level)
			if err != nil {
				return nil
			}
			return fw
		})
	}
	return c.Handler
}
