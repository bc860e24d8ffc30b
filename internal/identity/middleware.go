package identity

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/shared"
)

// Middleware resolves the acting user and stores it in the request context.
// Requests without an identity are rejected with 401.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.ResolveActingUser(r)
			if err != nil {
				if !errors.Is(err, shared.ErrUnauthenticated) {
					logger.Error("resolve acting user", slog.Any("error", err))
					httpx.RespondError(w, err)
					return
				}
				logger.Debug("unauthenticated request", slog.String("path", r.URL.Path), slog.Any("error", err))
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			ctx := shared.ContextWithActingUser(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
