// Package auth treats identity verification as an opaque collaborator: a
// credential token goes in, a user identity or a failure comes out.
package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken covers bad, expired or missing credentials.
	ErrInvalidToken = errors.New("invalid credential token")

	// ErrUnverified marks accounts that exist but have not confirmed their
	// email yet.
	ErrUnverified = errors.New("account not verified")

	// ErrNotConfigured means the deployment has no verification endpoint
	// set. An operator problem, not a credential problem.
	ErrNotConfigured = errors.New("identity verification not configured")
)

// Disabled stands in when no verification endpoint is configured. Every call
// reports ErrNotConfigured so authenticated endpoints answer 500 instead of
// misreporting the outage as bad credentials.
type Disabled struct{}

func (Disabled) Verify(ctx context.Context, token string) (*Identity, error) {
	return nil, ErrNotConfigured
}

type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type identityKey int

const contextKey identityKey = 0

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey, id)
}

// FromContext returns the authenticated identity, or nil for anonymous
// requests.
func FromContext(ctx context.Context) *Identity {
	if id, ok := ctx.Value(contextKey).(*Identity); ok {
		return id
	}
	return nil
}
