package identity

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/lekka-app/lekka/internal/shared"
)

const (
	// LocalHeader carries the cached user id.
	LocalHeader = "X-Lekka-User"
	// LocalCookie carries the cached user object as JSON.
	LocalCookie = "lekka_user"
)

// LocalResolver trusts the identity cached on the client. It performs no
// verification and is meant for single-device installs and tests.
type LocalResolver struct{}

// NewLocalResolver constructs a LocalResolver.
func NewLocalResolver() *LocalResolver {
	return &LocalResolver{}
}

type cachedUser struct {
	ID string `json:"id"`
}

// ResolveActingUser implements Resolver.
func (LocalResolver) ResolveActingUser(r *http.Request) (string, error) {
	if id := r.Header.Get(LocalHeader); id != "" {
		return normaliseUserID(id)
	}
	cookie, err := r.Cookie(LocalCookie)
	if err != nil {
		return "", shared.ErrUnauthenticated
	}
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		raw = cookie.Value
	}
	var user cachedUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return "", shared.ErrUnauthenticated
	}
	return normaliseUserID(user.ID)
}
