package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var transcript = []models.Message{
	{Role: models.RoleSystem, Content: "You are a tutor."},
	{Role: models.RoleUser, Content: "Hi"},
	{Role: models.RoleAssistant, Content: "Hello!"},
	{Role: models.RoleUser, Content: "What is an LLM?"},
}

func TestNewGateway(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{name: "openai", cfg: Config{Provider: ProviderOpenAI, APIKey: "k"}},
		{name: "anthropic", cfg: Config{Provider: ProviderAnthropic, APIKey: "k"}},
		{name: "echo", cfg: Config{Provider: ProviderEcho}},
		{name: "openai without key", cfg: Config{Provider: ProviderOpenAI}, wantField: "api_key"},
		{name: "anthropic without key", cfg: Config{Provider: ProviderAnthropic}, wantField: "api_key"},
		{name: "unknown provider", cfg: Config{Provider: "huggingface"}, wantField: "provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw, err := NewGateway(tt.cfg, logger)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.NotNil(t, gw)
				return
			}
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestOpenAIGateway_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Model     string `json:"model"`
			MaxTokens int    `json:"max_tokens"`
			Messages  []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		assert.Equal(t, 512, body.MaxTokens)
		if assert.Len(t, body.Messages, len(transcript)) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "What is an LLM?", body.Messages[3].Content)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "    return x\n"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
		}`))
	}))
	defer server.Close()

	gw, err := NewOpenAIGateway(Config{APIKey: "test-key", BaseURL: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	reply, err := gw.Complete(context.Background(), "gpt-test", transcript, 512)
	require.NoError(t, err)
	// leading indentation of code answers survives
	assert.Equal(t, "    return x\n", reply)
}

func TestOpenAIGateway_Failures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantEmpty bool
	}{
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"error": {"message": "bad key", "type": "invalid_request_error"}}`,
		},
		{
			name:      "no choices",
			status:    http.StatusOK,
			body:      `{"id": "x", "choices": []}`,
			wantEmpty: true,
		},
		{
			name:      "blank content",
			status:    http.StatusOK,
			body:      `{"id": "x", "choices": [{"index": 0, "message": {"role": "assistant", "content": "  "}}]}`,
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			gw, err := NewOpenAIGateway(Config{APIKey: "k", BaseURL: server.URL}, zaptest.NewLogger(t))
			require.NoError(t, err)

			_, err = gw.Complete(context.Background(), "gpt-test", transcript, 64)
			var gwErr *GatewayError
			require.ErrorAs(t, err, &gwErr)
			assert.Equal(t, ProviderOpenAI, gwErr.Provider)
			assert.Equal(t, tt.wantEmpty, errors.Is(err, ErrEmptyResponse))
		})
	}
}

func TestOpenAIGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	gw, err := NewOpenAIGateway(Config{APIKey: "k", BaseURL: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = gw.Complete(ctx, "gpt-test", transcript, 64)
	var gwErr *GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.True(t, gwErr.Timeout())
}

func TestAnthropicGateway_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		var body struct {
			System []struct {
				Text string `json:"text"`
			} `json:"system"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.System, 1) {
			assert.Equal(t, "You are a tutor.", body.System[0].Text)
		}
		if assert.Len(t, body.Messages, 3) {
			assert.Equal(t, "user", body.Messages[0].Role)
			assert.Equal(t, "assistant", body.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "  - one\n  - two\n"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer server.Close()

	gw, err := NewAnthropicGateway(Config{APIKey: "k", BaseURL: server.URL}, zaptest.NewLogger(t))
	require.NoError(t, err)

	reply, err := gw.Complete(context.Background(), "claude-test", transcript, 256)
	require.NoError(t, err)
	assert.Equal(t, "  - one\n  - two\n", reply)
}

func TestToAnthropicMessages(t *testing.T) {
	system, turns := toAnthropicMessages(transcript)
	require.Len(t, system, 1)
	assert.Equal(t, "You are a tutor.", system[0].Text)
	assert.Len(t, turns, 3)
}

func TestEchoGateway(t *testing.T) {
	gw := NewEchoGateway(zap.NewNop())

	reply, err := gw.Complete(context.Background(), "", transcript, 0)
	require.NoError(t, err)
	assert.Equal(t, "Echo: What is an LLM?", reply)

	_, err = gw.Complete(context.Background(), "", transcript[:1], 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = gw.Complete(ctx, "", transcript, 0)
	var gwErr *GatewayError
	assert.ErrorAs(t, err, &gwErr)
}
