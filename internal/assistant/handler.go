package assistant

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/platform/httpx"
)

// contextSize is how many recent transactions are sent when the client does
// not supply its own.
const contextSize = 100

// TransactionSource lists the acting user's transactions.
type TransactionSource interface {
	List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error)
}

// Handler exposes the AI endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	transactions TransactionSource
}

// NewHandler constructs assistant handler.
func NewHandler(logger *slog.Logger, service *Service, transactions TransactionSource) *Handler {
	return &Handler{logger: logger, service: service, transactions: transactions}
}

// MountRoutes registers AI routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/analyze", h.handleAnalyze)
	r.Post("/chat", h.handleChat)
}

type analyzeRequest struct {
	Transactions []ledger.Transaction `json:"transactions"`
}

type chatRequest struct {
	Messages     []Message            `json:"messages"`
	Transactions []ledger.Transaction `json:"transactions"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	txs, err := h.contextTransactions(r.Context(), req.Transactions)
	if err != nil {
		h.fail(w, "load transactions", err)
		return
	}
	pair, err := h.service.Analyze(r.Context(), txs)
	if err != nil {
		h.fail(w, "analyze", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pair)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	txs, err := h.contextTransactions(r.Context(), req.Transactions)
	if err != nil {
		h.fail(w, "load transactions", err)
		return
	}
	reply, err := h.service.Chat(r.Context(), req.Messages, txs)
	if err != nil {
		h.fail(w, "chat", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reply)
}

// contextTransactions uses the client's list when sent, otherwise the owner's
// most recent transactions.
func (h *Handler) contextTransactions(ctx context.Context, supplied []ledger.Transaction) ([]ledger.Transaction, error) {
	if supplied != nil || h.transactions == nil {
		return supplied, nil
	}
	return h.transactions.List(ctx, ledger.Filter{Order: ledger.OrderDateDesc, Limit: contextSize})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrUpstream) {
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "the assistant is unavailable right now, please try again")
		return
	}
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
