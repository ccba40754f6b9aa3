package middleware

import (
	"fmt"
	"net/http"
)

// Capabilities stages provide to the ones after them.
const (
	CapRequestID = "request_id"
	CapLogFields = "log_fields"
	CapSpan      = "span"
	CapRecovery  = "recovery"
	CapStore     = "store"
)

// Stage is one named step of the request pipeline.
type Stage struct {
	Name       string
	Requires   []string
	Provides   []string
	Middleware func(http.Handler) http.Handler
}

// Builder assembles stages in order and checks that every stage's
// requirements are provided by a stage before it.
type Builder struct {
	stages []Stage
}

// NewBuilder creates an empty pipeline.
func NewBuilder() *Builder {
	return &Builder{}
}

// Use appends a stage.
func (b *Builder) Use(s Stage) *Builder {
	b.stages = append(b.stages, s)
	return b
}

// Build returns the middleware in the order they wrap the handler, or an
// error naming the first misplaced or duplicated stage.
func (b *Builder) Build() ([]func(http.Handler) http.Handler, error) {
	seen := make(map[string]bool, len(b.stages))
	provided := make(map[string]bool)
	chain := make([]func(http.Handler) http.Handler, 0, len(b.stages))

	for i, s := range b.stages {
		if s.Name == "" {
			return nil, fmt.Errorf("pipeline stage %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("pipeline stage %q registered twice", s.Name)
		}
		if s.Middleware == nil {
			return nil, fmt.Errorf("pipeline stage %q has no middleware", s.Name)
		}
		for _, req := range s.Requires {
			if !provided[req] {
				return nil, fmt.Errorf("pipeline stage %q requires %q, which no earlier stage provides", s.Name, req)
			}
		}
		seen[s.Name] = true
		for _, p := range s.Provides {
			provided[p] = true
		}
		chain = append(chain, s.Middleware)
	}
	return chain, nil
}

// Names lists the stage names in order.
func (b *Builder) Names() []string {
	names := make([]string, len(b.stages))
	for i, s := range b.stages {
		names[i] = s.Name
	}
	return names
}

// Then wraps h with the built chain, first stage outermost.
func Then(chain []func(http.Handler) http.Handler, h http.Handler) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		h = chain[i](h)
	}
	return h
}
