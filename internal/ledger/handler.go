package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/shared"
)

// IdempotencyHeader lets clients make transaction creation safe to retry.
const IdempotencyHeader = "Idempotency-Key"

// Handler wires HTTP endpoints for transactions.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleRecord)
	r.Get("/export.csv", h.handleExport)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.IdempotencyKey = r.Header.Get(IdempotencyHeader)
	t, err := h.service.Record(r.Context(), in)
	if err != nil {
		h.fail(w, r, "record transaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "update transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete transaction", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "list transactions", err)
		return
	}
	if list == nil {
		list = []Transaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("limit") == "" {
		filter.Limit = MaxListLimit
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "export transactions", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := WriteTransactionsCSV(w, list); err != nil {
		h.logger.Error("write transactions csv", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

// ParseFilter reads list filters from the query string.
func ParseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Type:          Type(q.Get("type")),
		Category:      q.Get("category"),
		PaymentStatus: q.Get("payment_status"),
		PaymentMethod: q.Get("payment_method"),
		Search:        q.Get("q"),
		From:          q.Get("from"),
		To:            q.Get("to"),
		ProductID:     q.Get("product_id"),
		WorkerID:      q.Get("worker_id"),
		Order:         q.Get("order"),
	}
	if raw := q.Get("worker_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, shared.NewValidationError("worker_only", "must be true or false")
		}
		filter.WorkerOnly = v
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Filter{}, shared.NewValidationError("limit", "must be a positive number")
		}
		filter.Limit = limit
	}
	return filter, nil
}
