package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
)

type AnthropicGateway struct {
	client      *anthropic.Client
	temperature float64
	logger      *zap.Logger
}

func NewAnthropicGateway(cfg Config, logger *zap.Logger) (*AnthropicGateway, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Field: "api_key", Reason: "is required for the anthropic provider"}
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	return &AnthropicGateway{
		client:      &client,
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (g *AnthropicGateway) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int) (string, error) {
	system, turns := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Messages:    turns,
		Temperature: anthropic.Float(g.temperature),
	}
	if len(system) > 0 {
		params.System = system
	}

	response, err := g.client.Messages.New(ctx, params)
	if err != nil {
		g.logger.Error("Failed to call Anthropic API", zap.Error(err), zap.String("model", model))
		return "", &GatewayError{Provider: ProviderAnthropic, Cause: err}
	}

	var content strings.Builder
	for _, block := range response.Content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			content.WriteString(block.Text)
		}
	}

	text := content.String()
	if strings.TrimSpace(text) == "" {
		return "", &GatewayError{Provider: ProviderAnthropic, Cause: ErrEmptyResponse}
	}
	return text, nil
}

// toAnthropicMessages splits system messages out of the transcript, since the
// messages API takes them as a separate parameter.
func toAnthropicMessages(messages []models.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var system []anthropic.TextBlockParam
	var turns []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleUser:
			turns = append(turns, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			turns = append(turns, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return system, turns
}
