package profile

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the owner's profile.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs profile handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleGet)
	r.Put("/", h.handleUpdate)
	r.Post("/onboarding", h.handleOnboard)
	r.Get("/shop-types", h.handleShopTypes)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context())
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Update(r.Context(), in)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var in OnboardInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Onboard(r.Context(), in)
	if err != nil {
		h.fail(w, r, "onboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleShopTypes(w http.ResponseWriter, r *http.Request) {
	types, err := Catalog()
	if err != nil {
		h.fail(w, r, "shop types", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"shop_types": types})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
