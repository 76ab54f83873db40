// Package llm adapts remote chat-completion providers to a single
// synchronous Complete call.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderEcho      = "echo"
)

// ErrEmptyResponse is the cause of a GatewayError when the provider answered without content.
var ErrEmptyResponse = errors.New("empty completion response")

// Gateway sends a whole transcript to a chat model and returns the reply text.
type Gateway interface {
	Complete(ctx context.Context, model string, messages []models.Message, maxTokens int) (string, error)
}

// GatewayError reports a failed completion: transport, authentication,
// timeout or an empty/malformed answer.
type GatewayError struct {
	Provider string
	Cause    error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s chat completion failed: %v", e.Provider, e.Cause)
}

func (e *GatewayError) Unwrap() error { return e.Cause }

// Timeout reports whether the completion ran past its deadline.
func (e *GatewayError) Timeout() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}

// ConfigurationError reports a gateway that cannot be built or used as configured.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid llm configuration: %s %s", e.Field, e.Reason)
}

// Config selects and parameterizes a provider.
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Temperature float64
}

// NewGateway builds the gateway named by cfg.Provider.
func NewGateway(cfg Config, logger *zap.Logger) (Gateway, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIGateway(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicGateway(cfg, logger)
	case ProviderEcho:
		return NewEchoGateway(logger), nil
	default:
		return nil, &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("%q is not supported", cfg.Provider)}
	}
}
