// Package storage holds the database error codes, the request-scoped store
// handle and the providers that decide how long a store lives.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/tjfontaine/edgestack/internal/core/ports"
)

// Code classifies a storage failure independently of the driver.
type Code string

const (
	CodeUniqueViolation     Code = "unique_violation"
	CodeNotFound            Code = "not_found"
	CodeForeignKeyViolation Code = "foreign_key_violation"
)

// Error is a classified database error. The HTTP layer maps it by Code.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound returns a not_found Error for op.
func NotFound(op string) *Error {
	return &Error{Code: CodeNotFound, Op: op}
}

// CodeOf returns the Code carried by err, or "" when err is not a storage Error.
func CodeOf(err error) Code {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound reports whether err is a not_found storage error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

type storeKey struct{}

// WithStore attaches a store to ctx.
func WithStore(ctx context.Context, s ports.Store) context.Context {
	return context.WithValue(ctx, storeKey{}, s)
}

// FromContext returns the store attached to ctx, or nil.
func FromContext(ctx context.Context) ports.Store {
	if s, ok := ctx.Value(storeKey{}).(ports.Store); ok {
		return s
	}
	return nil
}
