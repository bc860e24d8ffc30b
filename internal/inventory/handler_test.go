package inventory

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
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r.Route("/api/products", handler.MountRoutes)
	return r
}

func TestHandlerCreateAndDeleteConflict(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(NewService(repo, nil, nil, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"name":"Ghee","stock":2}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, StatusLowStock, created.Status)

	repo.referenced[created.ID] = true
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/"+created.ID, nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, DeleteReferencedMessage, problem.Detail)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(`{"stock":2}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "name", problem.Field)
}

func TestHandlerExportCSV(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil, nil)
	_, err := svc.Create(ownerCtx(), ProductInput{Name: "Jaggery", SKU: "JG-1", Stock: intPtr(0)})
	require.NoError(t, err)
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/export.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Jaggery,JG-1,0,10,0,out_of_stock", lines[1])
}
