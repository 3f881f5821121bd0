package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"askrelay/internal/models"
)

const chatCompletionsPath = "/chat/completions"

// The OpenAI component reports a reply without choices as an error rather
// than an empty message.
const einoEmptyChoicesMsg = "empty choices"

// EinoCompletionClient calls the upstream through eino's OpenAI chat model
// instead of a hand-built request.
type EinoCompletionClient struct {
	chatModel model.BaseChatModel
}

func NewEinoCompletionClient(ctx context.Context, opts CompletionOptions) (*EinoCompletionClient, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:     baseURLFromEndpoint(opts.URL),
		Model:       opts.Model,
		APIKey:      opts.APIKey,
		Timeout:     opts.Timeout,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino chat model: %w", err)
	}
	return &EinoCompletionClient{chatModel: chatModel}, nil
}

func (c *EinoCompletionClient) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	resp, err := c.chatModel.Generate(ctx, toSchemaMessages(messages))
	if err != nil {
		return "", classifyEinoError(err)
	}
	if resp == nil {
		return "", nil
	}
	return strings.TrimSpace(resp.Content), nil
}

// classifyEinoError maps eino failures onto relay error kinds. A nil error
// means the upstream answered with zero choices.
func classifyEinoError(err error) error {
	if strings.Contains(err.Error(), einoEmptyChoicesMsg) {
		return nil
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return newInternalError("failed to parse upstream response", err)
	}

	return newUpstreamError("upstream request failed", err)
}

func toSchemaMessages(messages []models.ChatMessage) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		var role schema.RoleType
		switch msg.Role {
		case models.RoleSystem:
			role = schema.System
		case models.RoleAssistant:
			role = schema.Assistant
		default:
			role = schema.User
		}
		out = append(out, &schema.Message{Role: role, Content: msg.Content})
	}
	return out
}

// baseURLFromEndpoint turns a full chat-completions URL into the base URL the
// OpenAI SDK expects; the SDK appends the path itself.
func baseURLFromEndpoint(endpoint string) string {
	return strings.TrimSuffix(strings.TrimRight(endpoint, "/"), chatCompletionsPath)
}
