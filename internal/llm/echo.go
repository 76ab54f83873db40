package llm

import (
	"context"

	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
)

// EchoGateway answers without any remote call. It is meant for local runs
// without credentials.
type EchoGateway struct {
	logger *zap.Logger
}

func NewEchoGateway(logger *zap.Logger) *EchoGateway {
	return &EchoGateway{logger: logger}
}

func (g *EchoGateway) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &GatewayError{Provider: ProviderEcho, Cause: err}
	}

	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == models.RoleUser {
			return "Echo: " + messages[i].Content, nil
		}
	}
	return "", &GatewayError{Provider: ProviderEcho, Cause: ErrEmptyResponse}
}
