// Package identity resolves the acting user for a request. Business code never
// sees which resolver ran; it reads the id through shared.ActingUser.
package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/lekka-app/lekka/internal/shared"
)

// Mode selects the resolver implementation.
type Mode string

const (
	// ModeToken verifies a bearer JWT issued by the hosted auth service.
	ModeToken Mode = "token"
	// ModeSession reads a Redis-backed cookie session.
	ModeSession Mode = "session"
	// ModeLocal trusts a locally cached identity sent by the client.
	ModeLocal Mode = "local"
)

// Resolver returns the acting user id for a request or shared.ErrUnauthenticated.
type Resolver interface {
	ResolveActingUser(r *http.Request) (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (string, error)

// ResolveActingUser implements Resolver.
func (f ResolverFunc) ResolveActingUser(r *http.Request) (string, error) {
	return f(r)
}

// Options carries the settings each mode may need.
type Options struct {
	Mode      Mode
	JWTSecret string
	Sessions  *shared.SessionManager
}

// New builds the resolver for opts.Mode.
func New(opts Options) (Resolver, error) {
	switch Mode(strings.ToLower(string(opts.Mode))) {
	case ModeToken, "":
		if opts.JWTSecret == "" {
			return nil, fmt.Errorf("identity: token mode requires a JWT secret")
		}
		return NewTokenResolver([]byte(opts.JWTSecret)), nil
	case ModeSession:
		if opts.Sessions == nil {
			return nil, fmt.Errorf("identity: session mode requires a session manager")
		}
		return NewSessionResolver(opts.Sessions), nil
	case ModeLocal:
		return NewLocalResolver(), nil
	default:
		return nil, fmt.Errorf("identity: unknown mode %q", opts.Mode)
	}
}

func normaliseUserID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", shared.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed user id", shared.ErrUnauthenticated)
	}
	return id.String(), nil
}
