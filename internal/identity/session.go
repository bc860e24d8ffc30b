package identity

import (
	"fmt"
	"net/http"

	"github.com/lekka-app/lekka/internal/shared"
)

// SessionResolver reads the user id from a cookie session.
type SessionResolver struct {
	sessions *shared.SessionManager
}

// NewSessionResolver constructs a SessionResolver.
func NewSessionResolver(sessions *shared.SessionManager) *SessionResolver {
	return &SessionResolver{sessions: sessions}
}

// ResolveActingUser implements Resolver.
func (s *SessionResolver) ResolveActingUser(r *http.Request) (string, error) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.User() != "" {
		return normaliseUserID(sess.User())
	}
	sess, err := s.sessions.Load(r.Context(), r)
	if err != nil {
		return "", fmt.Errorf("identity: load session: %w", err)
	}
	return normaliseUserID(sess.User())
}
