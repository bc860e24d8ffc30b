// Package assistant proxies the owner's questions and their transaction data
// to a hosted language model.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lekka-app/lekka/internal/ledger"
	"github.com/lekka-app/lekka/internal/shared"
)

// Generator produces a model reply for a conversation.
type Generator interface {
	Generate(ctx context.Context, contents []Content) (string, error)
}

// InsightPair is a short business insight in English and Telugu.
type InsightPair struct {
	English string `json:"english_insight"`
	Telugu  string `json:"telugu_insight"`
}

// Message is one chat turn as exchanged with the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	roleModel     = "model"
)

// Acknowledgement is the fixed model turn that follows the system context.
const Acknowledgement = "Understood. I am Lekka, ready to help with the business data."

// ErrUpstream is returned when the model could not produce a usable answer.
var ErrUpstream = errors.New("assistant: model request failed")

// Service builds prompts and interprets model output. A nil generator means
// no API key was configured.
type Service struct {
	generator Generator
	logger    *slog.Logger
}

// NewService builds Service.
func NewService(generator Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{generator: generator, logger: logger}
}

// Analyze asks the model for one actionable insight about txs.
func (s *Service) Analyze(ctx context.Context, txs []ledger.Transaction) (InsightPair, error) {
	if len(txs) == 0 {
		return InsightPair{}, shared.NewValidationError("transactions", "no transactions provided")
	}
	if s.generator == nil {
		return InsightPair{}, fmt.Errorf("assistant: %w", shared.ErrNotConfigured)
	}
	data, err := json.Marshal(txs)
	if err != nil {
		return InsightPair{}, err
	}
	prompt := `You are a business advisor for a small Indian shopkeeper.
Analyze the following transactions and provide insights.

Transactions:
` + string(data) + `

Return a JSON object with exactly these two keys:
- "english_insight": A simple, actionable business insight in English (max 2 sentences).
- "telugu_insight": The same insight translated into simple Telugu.

Do not include markdown code blocks. Just the JSON string.`

	reply, err := s.generator.Generate(ctx, []Content{{Role: RoleUser, Parts: []Part{{Text: prompt}}}})
	if err != nil {
		s.logger.Error("gemini analyze", slog.Any("error", err))
		return InsightPair{}, ErrUpstream
	}
	var pair InsightPair
	if err := json.Unmarshal([]byte(stripFences(reply)), &pair); err != nil {
		s.logger.Error("gemini analyze: undecodable reply", slog.Any("error", err), slog.Int("length", len(reply)))
		return InsightPair{}, ErrUpstream
	}
	return pair, nil
}

// Chat answers the last message using the earlier ones as history and txs as
// context.
func (s *Service) Chat(ctx context.Context, messages []Message, txs []ledger.Transaction) (Message, error) {
	if len(messages) == 0 {
		return Message{}, shared.NewValidationError("messages", "no messages provided")
	}
	if s.generator == nil {
		return Message{}, fmt.Errorf("assistant: %w", shared.ErrNotConfigured)
	}
	contents, err := buildChat(messages, txs)
	if err != nil {
		return Message{}, err
	}
	reply, err := s.generator.Generate(ctx, contents)
	if err != nil {
		s.logger.Error("gemini chat", slog.Any("error", err))
		return Message{}, ErrUpstream
	}
	return Message{Role: RoleAssistant, Content: reply}, nil
}

func buildChat(messages []Message, txs []ledger.Transaction) ([]Content, error) {
	transactionContext := "No transaction data available yet."
	if len(txs) > 0 {
		data, err := json.Marshal(txs)
		if err != nil {
			return nil, err
		}
		transactionContext = string(data)
	}
	system := `You are 'Lekka', a smart AI business assistant for a small Indian shopkeeper.

Here is the shop's recent transaction data:
` + transactionContext + `

Instructions:
1. Answer questions about sales, expenses, and profits based on this data.
2. If the user asks something not in the data, explain politely.
3. Keep answers concise, simple, and friendly (like a manager talking to the owner).
4. If helpful, mention specific numbers or dates.
5. Support Hinglish/Telugu if the user asks, but default to English.`

	contents := make([]Content, 0, len(messages)+2)
	contents = append(contents,
		Content{Role: RoleUser, Parts: []Part{{Text: "System Context: " + system}}},
		Content{Role: roleModel, Parts: []Part{{Text: Acknowledgement}}},
	)
	for _, m := range messages {
		role := roleModel
		if m.Role == RoleUser {
			role = RoleUser
		}
		contents = append(contents, Content{Role: role, Parts: []Part{{Text: m.Content}}})
	}
	return contents, nil
}

// stripFences removes markdown code fences the model sometimes adds.
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}
