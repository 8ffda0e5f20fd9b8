package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/username/mango/backend/src/logger"
	"github.com/username/mango/backend/src/models"
)

var ErrChatNotConfigured = errors.New("chat assistant is not configured")

// ChatService is a thin pass-through to an OpenAI-compatible
// completion API. It only assembles a context message from the user's
// balance and recent transactions; there is no independent logic here.
type ChatService struct {
	client *openai.Client
	model  string
	db     *sql.DB
}

func NewChatService(apiKey, baseURL, model string, db *sql.DB) *ChatService {
	if apiKey == "" {
		return &ChatService{db: db, model: model}
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &ChatService{
		client: openai.NewClientWithConfig(config),
		model:  model,
		db:     db,
	}
}

const systemPromptTemplate = `You are Mango, a friendly personal-finance assistant.

User context:
- Current balance: %.2f
- Recent transactions: %s

You can help the user understand their spending, plan budgets, and
reason about goals. Keep answers short and practical. Never invent
transactions that are not in the context.`

// Ask sends one user message and returns the assistant's reply.
func (s *ChatService) Ask(ctx context.Context, userID int64, message string) (string, error) {
	if s.client == nil {
		return "", ErrChatNotConfigured
	}

	balance, err := models.CurrentBalance(s.db, userID)
	if err != nil {
		return "", fmt.Errorf("loading balance for chat context: %w", err)
	}

	recent, err := models.RecentTransactions(s.db, userID, 5)
	if err != nil {
		return "", fmt.Errorf("loading recent transactions for chat context: %w", err)
	}

	recentJSON, err := json.Marshal(recent)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPromptTemplate, balance, recentJSON)},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	logger.FromContext(ctx).Debug("Chat completion served", "userID", userID, "tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}
