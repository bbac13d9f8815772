// Package context provides request-scoped values: acting user and trace info.
package context

import (
	"context"

	"kardex/internal/core/id"
)

// UserContext carries the acting user for a request. It is stamped onto
// ledger entries and documents as created_by.
type UserContext struct {
	UserID    id.ID
	Username  string
	CompanyID id.ID
}

// userKey is the context key for UserContext.
type userKey struct{}

// WithUser returns a context carrying the acting user.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// GetUser returns the acting user or nil.
func GetUser(ctx context.Context) *UserContext {
	if user, ok := ctx.Value(userKey{}).(*UserContext); ok {
		return user
	}
	return nil
}

// GetUserContext is an alias for GetUser kept for handler convenience.
func GetUserContext(ctx context.Context) *UserContext {
	return GetUser(ctx)
}

// GetUserID returns the acting user's ID or nil UUID.
func GetUserID(ctx context.Context) id.ID {
	if user := GetUser(ctx); user != nil {
		return user.UserID
	}
	return id.Nil()
}

// GetCompanyID returns the acting user's company or nil UUID.
func GetCompanyID(ctx context.Context) id.ID {
	if user := GetUser(ctx); user != nil {
		return user.CompanyID
	}
	return id.Nil()
}

// Actor returns a loggable identifier for the acting user, or "system"
// for background jobs that run without a user.
func Actor(ctx context.Context) string {
	if user := GetUser(ctx); user != nil && user.Username != "" {
		return user.Username
	}
	return "system"
}
