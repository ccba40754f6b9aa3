// Package web serves the frontend bundle for every path outside /api.
package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed dist
var distFS embed.FS

// Assets returns the embedded bundle rooted at dist/.
func Assets() fs.FS {
	assets, _ := fs.Sub(distFS, "dist")
	return assets
}

// Handler serves files from assets and falls back to index.html so client
// side routes resolve.
type Handler struct {
	assets fs.FS
}

// New creates a Handler. A nil assets uses the embedded bundle.
func New(assets fs.FS) *Handler {
	if assets == nil {
		assets = Assets()
	}
	return &Handler{assets: assets}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" || strings.HasSuffix(r.URL.Path, "/") {
		path = "index.html"
	}

	if !strings.Contains(path, "..") && h.serveAsset(w, r, path) {
		return
	}

	if h.serveAsset(w, r, "index.html") {
		return
	}

	http.NotFound(w, r)
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, path string) bool {
	info, err := fs.Stat(h.assets, path)
	if err != nil || info.IsDir() {
		return false
	}

	data, err := fs.ReadFile(h.assets, path)
	if err != nil {
		return false
	}

	http.ServeContent(w, r, path, info.ModTime(), bytes.NewReader(data))
	return true
}
