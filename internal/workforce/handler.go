package workforce

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/platform/httpx"
)

// Handler wires HTTP endpoints for workers.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs workforce handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers worker routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/stats", h.handleStats)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	r.Post("/{id}/payments", h.handlePay)
	r.Get("/{id}/payments", h.handleHistory)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	workers, err := h.service.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, r, "list workers", err)
		return
	}
	if workers == nil {
		workers = []Worker{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"workers": workers})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var in WorkerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	worker, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, "create worker", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, worker)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	worker, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get worker", err)
		return
	}
	httpx.JSON(w, http.StatusOK, worker)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var in WorkerInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	worker, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "update worker", err)
		return
	}
	httpx.JSON(w, http.StatusOK, worker)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete worker", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var in PayInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.Pay(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, r, "pay worker", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "worker history", err)
		return
	}
	if list == nil {
		list = []ledger.Transaction{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := h.service.Stats(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, r, "worker stats", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"workers": stats})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}
