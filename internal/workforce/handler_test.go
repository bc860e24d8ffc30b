package workforce

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithActingUser(req.Context(), ownerID)))
		})
	})
	r.Route("/api/workers", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes)
	return r
}

func TestHandlerWorkerLifecycle(t *testing.T) {
	repo := newMemoryRepo()
	led := &fakeLedger{}
	router := newTestRouter(NewService(repo, led, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workers", strings.NewReader(`{"name":"Ravi","salary":"9000"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var worker Worker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &worker))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workers/"+worker.ID+"/payments", strings.NewReader(`{"amount":"9000","date":"2024-07-01"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, led.recorded, 1)

	repo.referenced[worker.ID] = true
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/workers/"+worker.ID, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, DeleteReferencedMessage, problem.Detail)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workers/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"name":"Ravi"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workers/not-an-id", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
