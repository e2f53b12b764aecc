package googleai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/schema"

	"github.com/user/mindmirror/pkg/llm"
)

// Client implements llm.StatefulProvider on top of the Google generative AI
// SDK. A Conversation keeps its accumulated history inside the handle, so
// each Send carries only the new turn; the handle is the conversation state.
type Client struct {
	config *llm.Config
	model  llms.Model
}

// New creates a client with the given configuration. The underlying SDK
// client is constructed on first conversation.
func New(config *llm.Config) *Client {
	return &Client{config: config}
}

// newWithModel injects a prebuilt model. Tests use this to avoid touching
// the real SDK.
func newWithModel(config *llm.Config, model llms.Model) *Client {
	return &Client{config: config, model: model}
}

func (c *Client) ensureModel(ctx context.Context) (llms.Model, error) {
	if c.model != nil {
		return c.model, nil
	}
	model, err := googleai.New(ctx,
		googleai.WithAPIKey(c.config.APIKey),
		googleai.WithDefaultModel(c.config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create googleai client: %w", err)
	}
	c.model = model
	return c.model, nil
}

// NewConversation opens a conversation seeded with the system instruction
// and any prior visible history.
func (c *Client) NewConversation(ctx context.Context, system string, seed []llm.Message) (llm.Conversation, error) {
	model, err := c.ensureModel(ctx)
	if err != nil {
		return nil, err
	}

	history := make([]llms.MessageContent, 0, len(seed)+1)
	if system != "" {
		history = append(history, llms.TextParts(schema.ChatMessageTypeSystem, system))
	}
	for _, msg := range seed {
		history = append(history, llms.TextParts(chatType(msg.Role), msg.Content))
	}

	return &conversation{model: model, modelName: c.config.Model, history: history}, nil
}

func chatType(role string) schema.ChatMessageType {
	switch role {
	case llm.RoleAssistant:
		return schema.ChatMessageTypeAI
	case llm.RoleSystem:
		return schema.ChatMessageTypeSystem
	default:
		return schema.ChatMessageTypeHuman
	}
}

// conversation accumulates turns. Send appends the model reply only after a
// successful call, so a transport failure leaves the handle exactly as it
// was before the attempt.
type conversation struct {
	model     llms.Model
	modelName string
	history   []llms.MessageContent
}

func (c *conversation) Send(ctx context.Context, text string) (string, error) {
	attempt := append(c.history, llms.TextParts(schema.ChatMessageTypeHuman, text))

	resp, err := c.model.GenerateContent(ctx, attempt, llms.WithModel(c.modelName))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	reply := resp.Choices[0].Content
	c.history = append(attempt, llms.TextParts(schema.ChatMessageTypeAI, reply))
	return reply, nil
}
