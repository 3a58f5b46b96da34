// Package company provides the tenant scope carried through every core call.
//
// The scope is an explicit value object in context, never ambient session
// state: every repository filters by the company in scope, and cross-company
// references fail with NOT_FOUND rather than leaking other tenants' data.
package company

import (
	"context"
	"errors"

	"facturio/internal/core/id"
)

type ctxKey int

const scopeKey ctxKey = iota

// ErrNoScope is returned when an operation runs without a company scope.
var ErrNoScope = errors.New("company scope not found in context")

// Scope identifies the company and acting user for a request.
type Scope struct {
	CompanyID id.ID
	UserID    id.ID
}

// WithScope stores the company scope in context.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// GetScope retrieves the company scope from context.
func GetScope(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey).(Scope)
	if !ok || id.IsNil(s.CompanyID) {
		return Scope{}, ErrNoScope
	}
	return s, nil
}

// MustGetScope retrieves the company scope or panics.
// Use in places where a missing scope is a programming error.
func MustGetScope(ctx context.Context) Scope {
	s, err := GetScope(ctx)
	if err != nil {
		panic("company scope not in context: " + err.Error())
	}
	return s
}

// CompanyID returns the company in scope, or the nil ID when unscoped.
func CompanyID(ctx context.Context) id.ID {
	if s, err := GetScope(ctx); err == nil {
		return s.CompanyID
	}
	return id.Nil()
}

// UserID returns the acting user, or the nil ID when unscoped.
func UserID(ctx context.Context) id.ID {
	if s, err := GetScope(ctx); err == nil {
		return s.UserID
	}
	return id.Nil()
}
