// Package identity adapts the external identity provider that owns principals
// and their credentials. The core only ever sees opaque principal ids and
// emails; passwords never cross the Provider boundary in any readable form
// besides the create call itself.
package identity

import (
	"context"
	"errors"
)

// Principal is an identity-provider account as seen by this service.
type Principal struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// sentinel errors for the provider taxonomy
var (
	// ErrTokenInvalid covers missing, malformed, expired and rejected tokens.
	ErrTokenInvalid = errors.New("invalid access token")
	// ErrEmailTaken is returned by CreatePrincipal when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredential covers provider-side validation failures
	// (malformed email, weak password).
	ErrInvalidCredential = errors.New("malformed email or weak password")
	// ErrPrincipalNotFound is returned by FindByEmail when no account matches.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrUnavailable is returned when the provider cannot be reached.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Provider is the gateway contract. Both the embedded provider and the
// remote HTTP adapter implement it.
type Provider interface {
	// VerifyToken resolves a bearer token to its principal or fails with
	// ErrTokenInvalid.
	VerifyToken(ctx context.Context, token string) (*Principal, error)
	// CreatePrincipal registers a new, auto-confirmed account. No
	// verification email is sent.
	CreatePrincipal(ctx context.Context, email, password string, metadata map[string]any) (*Principal, error)
	// FindByEmail looks up an existing account by email.
	FindByEmail(ctx context.Context, email string) (*Principal, error)
}
