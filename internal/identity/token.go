package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lekka-app/lekka/internal/shared"
)

// TokenResolver verifies HS256 bearer tokens and uses the subject claim as the
// acting user.
type TokenResolver struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenResolver constructs a TokenResolver.
func NewTokenResolver(secret []byte) *TokenResolver {
	return &TokenResolver{
		secret: secret,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// ResolveActingUser implements Resolver.
func (t *TokenResolver) ResolveActingUser(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", shared.ErrUnauthenticated
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

	claims := jwt.RegisteredClaims{}
	token, err := t.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", shared.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: invalid token", shared.ErrUnauthenticated)
	}
	if !token.Valid {
		return "", shared.ErrUnauthenticated
	}
	return normaliseUserID(claims.Subject)
}
