package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/platform/httpx"
)

// Handler exposes the dashboard summary.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.handleSummary)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.service.Summary(r.Context(), Range{From: q.Get("from"), To: q.Get("to")})
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("dashboard summary", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}
