package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/mindmesh-bot/internal/llm"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/session"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"go.uber.org/zap/zaptest"
)

type gatewayFunc func(ctx context.Context, messages []models.Message) (string, error)

func (f gatewayFunc) Complete(ctx context.Context, model string, messages []models.Message, maxTokens int) (string, error) {
	return f(ctx, messages)
}

func newTestService(t *testing.T, gw llm.Gateway) *Service {
	t.Helper()
	store := storage.NewMemoryStorage()
	logger := zaptest.NewLogger(t)
	opts := session.Options{Model: "test-model", MaxTokens: 512}

	registry := session.NewRegistry(func(ctx context.Context, username string) (*session.Session, error) {
		return session.Open(ctx, username, store, gw, opts, logger)
	}, logger)
	return NewService(store, registry, logger)
}

func echo() llm.Gateway {
	return gatewayFunc(func(_ context.Context, messages []models.Message) (string, error) {
		return "re: " + messages[len(messages)-1].Content, nil
	})
}

func TestService_CreateUser(t *testing.T) {
	svc := newTestService(t, echo())
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, user.ID)

	_, err = svc.CreateUser(ctx, "alice")
	assert.ErrorIs(t, err, storage.ErrConflict)

	var validationErr *profile.ValidationError
	_, err = svc.CreateUser(ctx, "two words")
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "username")

	_, err = svc.CreateUser(ctx, "bob")
	require.NoError(t, err)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestService_SubmitProfiles(t *testing.T) {
	svc := newTestService(t, echo())
	ctx := context.Background()

	// unknown user
	err := svc.SubmitKnowledgeProfile(ctx, "ghost", &models.KnowledgeProfile{Name: "Ghost"})
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	err = svc.SubmitKnowledgeProfile(ctx, "alice", &models.KnowledgeProfile{
		Name:         "  Alice ",
		MathEq:       14,
		SupportNeeds: []string{"statistics", "programming"},
	})
	require.NoError(t, err)

	err = svc.SubmitKnowledgeProfile(ctx, "alice", &models.KnowledgeProfile{Name: "Alice"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	var validationErr *profile.ValidationError
	err = svc.SubmitLearnerProfile(ctx, "alice", &models.LearnerProfile{Tone: "Sarcastic"})
	require.ErrorAs(t, err, &validationErr)
	assert.Contains(t, validationErr.Fields, "tone")

	err = svc.SubmitLearnerProfile(ctx, "alice", nil)
	require.ErrorAs(t, err, &validationErr)

	require.NoError(t, svc.SubmitLearnerProfile(ctx, "alice", &models.LearnerProfile{
		Tone: "casual", Humor: "Playful/Humorous", Interactivity: true,
	}))

	p, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, p.Knowledge)
	require.NotNil(t, p.Learner)
	assert.Equal(t, "Alice", p.Knowledge.Name)
	assert.Equal(t, 10, p.Knowledge.MathEq)
	assert.Equal(t, []string{"Statistics", "Programming"}, p.Knowledge.SupportNeeds)
	assert.Equal(t, models.ToneCasual, p.Learner.Tone)
	assert.Equal(t, models.HumorPlayful, p.Learner.Humor)
	assert.Contains(t, p.KnowledgeDescription, "10/10")
	assert.Contains(t, p.LearnerDescription, "Casual")
}

func TestService_ProfileWithoutAnswers(t *testing.T) {
	svc := newTestService(t, echo())
	ctx := context.Background()

	_, err := svc.Profile(ctx, "ghost")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)

	_, err = svc.CreateUser(ctx, "alice")
	require.NoError(t, err)

	p, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, p.Knowledge)
	assert.Nil(t, p.Learner)
	assert.Equal(t, profile.NoKnowledgeProfile, p.KnowledgeDescription)
	assert.Equal(t, profile.NoLearnerProfile, p.LearnerDescription)
}

func TestService_ChatLifecycle(t *testing.T) {
	svc := newTestService(t, echo())
	ctx := context.Background()

	_, ok := svc.Transcript("alice")
	assert.False(t, ok)

	// sending opens the session on first use
	reply, err := svc.SendMessage(ctx, "alice", "Hi")
	require.NoError(t, err)
	assert.Equal(t, "re: Hi", reply)

	first, err := svc.Open(ctx, "alice")
	require.NoError(t, err)
	second, err := svc.Open(ctx, "alice")
	require.NoError(t, err)
	assert.Same(t, first, second)

	transcript, ok := svc.Transcript("alice")
	require.True(t, ok)
	assert.Len(t, transcript, 3)

	require.NoError(t, svc.Reset(ctx, "alice"))
	transcript, _ = svc.Transcript("alice")
	assert.Len(t, transcript, 1)

	assert.True(t, svc.EndSession("alice"))
	assert.False(t, svc.EndSession("alice"))
	_, ok = svc.Transcript("alice")
	assert.False(t, ok)

	_, err = svc.Open(ctx, "")
	assert.ErrorIs(t, err, session.ErrInvalidUsername)
}

func TestService_ResetPicksUpNewProfile(t *testing.T) {
	svc := newTestService(t, echo())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, "alice")
	require.NoError(t, err)
	sess, err := svc.Open(ctx, "alice")
	require.NoError(t, err)
	assert.Contains(t, sess.Transcript()[0].Content, profile.NoKnowledgeProfile)

	require.NoError(t, svc.SubmitKnowledgeProfile(ctx, "alice", &models.KnowledgeProfile{Name: "Alice", MathEq: 7}))
	require.NoError(t, svc.Reset(ctx, "alice"))

	system := sess.Transcript()[0].Content
	assert.NotContains(t, system, profile.NoKnowledgeProfile)
	assert.Contains(t, system, "7/10")
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation", err: &profile.ValidationError{Fields: map[string]string{"tone": "bad"}}, want: "Some answers were not accepted: invalid answers (tone: bad)"},
		{name: "unknown user", err: fmt.Errorf("saving: %w", storage.ErrUserNotFound), want: "That user does not exist. Register first."},
		{name: "conflict", err: storage.ErrConflict, want: "That already exists."},
		{name: "empty message", err: session.ErrEmptyMessage, want: "Please type a message."},
		{name: "busy", err: fmt.Errorf("%w: %w", session.ErrSessionBusy, context.Canceled), want: "Still working on your previous message. Please wait a moment."},
		{name: "timeout", err: &llm.GatewayError{Provider: "openai", Cause: context.DeadlineExceeded}, want: "The assistant took too long to answer. Please try again."},
		{name: "gateway", err: &llm.GatewayError{Provider: "openai", Cause: errors.New("502")}, want: "The assistant is unavailable right now. Please try again later."},
		{name: "config", err: &llm.ConfigurationError{Field: "api_key", Reason: "is required"}, want: "The assistant is not configured correctly."},
		{name: "other", err: errors.New("boom"), want: "Something went wrong. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}
