package report

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lekka-app/lekka/internal/dashboard"
	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/platform/httpx"
	"github.com/lekka-app/lekka/internal/profile"
	"github.com/lekka-app/lekka/internal/shared"
)

// Renderer turns HTML into PDF bytes.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// StatementSource provides the figures and rows of a statement.
type StatementSource interface {
	Summary(ctx context.Context, r dashboard.Range) (dashboard.Summary, error)
	Transactions(ctx context.Context, r dashboard.Range) (dashboard.Range, []ledger.Transaction, error)
}

// ShopSource provides the acting user's shop details.
type ShopSource interface {
	Get(ctx context.Context) (profile.Profile, error)
}

// Handler manages report endpoints.
type Handler struct {
	renderer Renderer
	source   StatementSource
	shops    ShopSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a report handler. A nil renderer answers 503.
func NewHandler(renderer Renderer, source StatementSource, shops ShopSource, logger *slog.Logger) *Handler {
	return &Handler{renderer: renderer, source: source, shops: shops, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/statement.pdf", h.statementPDF)
	r.Get("/statement.html", h.statementHTML)
}

func (h *Handler) statementPDF(w http.ResponseWriter, r *http.Request) {
	if h.renderer == nil {
		httpx.RespondError(w, shared.ErrNotConfigured)
		return
	}
	html, ok := h.buildStatement(w, r)
	if !ok {
		return
	}
	pdf, err := h.renderer.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("render statement pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "statement could not be rendered, please try again")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=statement.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) statementHTML(w http.ResponseWriter, r *http.Request) {
	html, ok := h.buildStatement(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) buildStatement(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	q := r.URL.Query()
	rng, txs, err := h.source.Transactions(ctx, dashboard.Range{From: q.Get("from"), To: q.Get("to")})
	if err != nil {
		h.fail(w, "load statement transactions", err)
		return "", false
	}
	summary, err := h.source.Summary(ctx, rng)
	if err != nil {
		h.fail(w, "load statement summary", err)
		return "", false
	}
	shop, err := h.shops.Get(ctx)
	if err != nil {
		h.fail(w, "load shop profile", err)
		return "", false
	}
	html, err := RenderStatementHTML(Statement{
		ShopName:     shop.ShopName,
		GeneratedAt:  h.now(),
		Summary:      summary,
		Transactions: txs,
	})
	if err != nil {
		h.fail(w, "render statement html", err)
		return "", false
	}
	return html, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
