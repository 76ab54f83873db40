package llm

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/sashabaranov/go-openai"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
)

type OpenAIGateway struct {
	client      *openai.Client
	temperature float64
	logger      *zap.Logger
}

func NewOpenAIGateway(cfg Config, logger *zap.Logger) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, &ConfigurationError{Field: "api_key", Reason: "is required for the openai provider"}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIGateway{
		client:      openai.NewClientWithConfig(clientConfig),
		temperature: cfg.Temperature,
		logger:      logger,
	}, nil
}

func (g *OpenAIGateway) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: model,
			Messages: lo.Map(messages, func(m models.Message, _ int) openai.ChatCompletionMessage {
				return openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
			}),
			MaxTokens:   maxTokens,
			Temperature: float32(g.temperature),
		},
	)
	if err != nil {
		g.logger.Error("Failed to get OpenAI response", zap.Error(err), zap.String("model", model))
		return "", &GatewayError{Provider: ProviderOpenAI, Cause: err}
	}

	if len(resp.Choices) == 0 {
		return "", &GatewayError{Provider: ProviderOpenAI, Cause: ErrEmptyResponse}
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &GatewayError{Provider: ProviderOpenAI, Cause: ErrEmptyResponse}
	}

	g.logger.Debug("OpenAI completion",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return content, nil
}
