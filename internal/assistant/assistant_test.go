package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
)

type scriptedGenerator struct {
	reply string
	err   error
	seen  [][]Content
}

func (g *scriptedGenerator) Generate(ctx context.Context, contents []Content) (string, error) {
	g.seen = append(g.seen, contents)
	return g.reply, g.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTxs() []ledger.Transaction {
	return []ledger.Transaction{{Type: ledger.TypeIncome, Category: ledger.CategorySales, Amount: decimal.NewFromInt(500), Date: "2024-06-01"}}
}

func TestAnalyze(t *testing.T) {
	gen := &scriptedGenerator{reply: "```json\n{\"english_insight\":\"Sales are steady.\",\"telugu_insight\":\"అమ్మకాలు స్థిరంగా ఉన్నాయి.\"}\n```"}
	svc := NewService(gen, quietLogger())

	pair, err := svc.Analyze(context.Background(), sampleTxs())
	require.NoError(t, err)
	require.Equal(t, "Sales are steady.", pair.English)
	require.NotEmpty(t, pair.Telugu)
	require.Len(t, gen.seen[0], 1)
	require.Contains(t, gen.seen[0][0].Parts[0].Text, `"category":"Sales"`)

	_, err = svc.Analyze(context.Background(), nil)
	require.True(t, shared.IsValidation(err))

	gen.reply = "not json"
	_, err = svc.Analyze(context.Background(), sampleTxs())
	require.ErrorIs(t, err, ErrUpstream)

	_, err = NewService(nil, quietLogger()).Analyze(context.Background(), sampleTxs())
	require.ErrorIs(t, err, shared.ErrNotConfigured)
}

func TestChatPromptLayout(t *testing.T) {
	gen := &scriptedGenerator{reply: "You earned ₹500."}
	svc := NewService(gen, quietLogger())

	reply, err := svc.Chat(context.Background(), []Message{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how much did I earn?"},
	}, nil)
	require.NoError(t, err)
	require.Equal(t, Message{Role: RoleAssistant, Content: "You earned ₹500."}, reply)

	contents := gen.seen[0]
	require.Len(t, contents, 5)
	require.Equal(t, RoleUser, contents[0].Role)
	require.True(t, strings.HasPrefix(contents[0].Parts[0].Text, "System Context: "))
	require.Contains(t, contents[0].Parts[0].Text, "No transaction data available yet.")
	require.Equal(t, roleModel, contents[1].Role)
	require.Equal(t, Acknowledgement, contents[1].Parts[0].Text)
	require.Equal(t, []string{RoleUser, roleModel, RoleUser}, []string{contents[2].Role, contents[3].Role, contents[4].Role})
	require.Equal(t, "how much did I earn?", contents[4].Parts[0].Text)

	_, err = svc.Chat(context.Background(), nil, nil)
	require.True(t, shared.IsValidation(err))

	gen.err = errors.New("429")
	_, err = svc.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil)
	require.ErrorIs(t, err, ErrUpstream)
}

func TestGeminiClient(t *testing.T) {
	var gotKey, gotPath string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-goog-api-key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		if gotBody.Contents[0].Parts[0].Text == "fail" {
			http.Error(w, `{"error":"quota"}`, http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"owner"}]}}]}`))
	}))
	defer srv.Close()

	client := NewGeminiClient(srv.URL, "secret", "gemini-1.5-flash")
	text, err := client.Generate(context.Background(), []Content{{Role: RoleUser, Parts: []Part{{Text: "hi"}}}})
	require.NoError(t, err)
	require.Equal(t, "Hello owner", text)
	require.Equal(t, "secret", gotKey)
	require.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", gotPath)

	_, err = client.Generate(context.Background(), []Content{{Role: RoleUser, Parts: []Part{{Text: "fail"}}}})
	require.ErrorContains(t, err, "429")
}

type stubTransactions struct {
	filter ledger.Filter
}

func (s *stubTransactions) List(ctx context.Context, filter ledger.Filter) ([]ledger.Transaction, error) {
	s.filter = filter
	return sampleTxs(), nil
}

func TestHandlerUsesOwnerTransactionsByDefault(t *testing.T) {
	gen := &scriptedGenerator{reply: `{"english_insight":"a","telugu_insight":"b"}`}
	source := &stubTransactions{}
	r := chi.NewRouter()
	r.Route("/api/ai", NewHandler(quietLogger(), NewService(gen, quietLogger()), source).MountRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/analyze", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, contextSize, source.filter.Limit)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/analyze", strings.NewReader(`{"transactions":[]}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"role":"assistant"`)

	gen.err = errors.New("boom")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	unconfigured := chi.NewRouter()
	unconfigured.Route("/api/ai", NewHandler(quietLogger(), NewService(nil, quietLogger()), source).MountRoutes)
	rec = httptest.NewRecorder()
	unconfigured.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ai/chat", strings.NewReader(`{"messages":[{"role":"user","content":"hi"}]}`)))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
