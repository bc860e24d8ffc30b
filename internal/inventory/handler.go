package inventory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/shared"
)

// Handler wires HTTP endpoints for products.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/low-stock", h.handleLowStock)
	r.Get("/export.csv", h.handleExport)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Put("/{id}/stock", h.handleCorrectStock)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": nonNil(products)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCorrectStock(w http.ResponseWriter, r *http.Request) {
	var in StockCorrection
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.CorrectStock(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "correct stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.LowStock(r.Context())
	if err != nil {
		h.fail(w, r, "low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": nonNil(products)})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	products, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "export products", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := WriteProductsCSV(w, products); err != nil {
		h.logger.Error("write products csv", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func parseFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:  q.Get("q"),
		Status:  StockStatus(q.Get("status")),
		OrderBy: q.Get("order"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return ListFilter{}, shared.NewValidationError("limit", "must be a positive number")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func nonNil(products []Product) []Product {
	if products == nil {
		return []Product{}
	}
	return products
}
