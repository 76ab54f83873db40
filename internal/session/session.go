// Package session holds the per-user conversation transcript and the
// registry that hands out one live session per username.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/mindmesh-bot/internal/llm"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrSessionBusy is returned when a caller gives up waiting for the
	// session's in-flight turn to finish.
	ErrSessionBusy = errors.New("session is busy with another message")
	// ErrEmptyMessage is returned for a blank user turn.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidUsername is returned when a session is opened without a username.
	ErrInvalidUsername = errors.New("username is required")
)

// ProfileReader is the read side of the profile store a session needs.
type ProfileReader interface {
	GetKnowledgeProfile(ctx context.Context, username string) (*models.KnowledgeProfile, error)
	GetLearnerProfile(ctx context.Context, username string) (*models.LearnerProfile, error)
}

// Options fixes how a session talks to the gateway.
type Options struct {
	Model     string
	MaxTokens int
	// Timeout bounds a single gateway call; zero means no bound beyond the caller's context.
	Timeout time.Duration
}

// Session owns one user's transcript. The transcript always starts with
// exactly one system message and grows by user/assistant pairs.
type Session struct {
	id       string
	username string
	store    ProfileReader
	gateway  llm.Gateway
	opts     Options
	logger   *zap.Logger

	// turn admits one SendMessage or Reset at a time
	turn *semaphore.Weighted

	mu       sync.RWMutex
	messages []models.Message
}

// Open reads the user's profiles, builds the system prompt and returns a
// session ready for its first user turn. Missing profiles are described as
// unavailable; any other store failure is returned.
func Open(ctx context.Context, username string, store ProfileReader, gateway llm.Gateway, opts Options, logger *zap.Logger) (*Session, error) {
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if gateway == nil {
		return nil, &llm.ConfigurationError{Field: "gateway", Reason: "is not configured"}
	}
	if opts.Model == "" {
		return nil, &llm.ConfigurationError{Field: "model", Reason: "is required"}
	}
	if opts.MaxTokens <= 0 {
		return nil, &llm.ConfigurationError{Field: "max_tokens", Reason: "must be positive"}
	}

	s := &Session{
		id:       uuid.New().String(),
		username: username,
		store:    store,
		gateway:  gateway,
		opts:     opts,
		logger:   logger.With(zap.String("username", username)),
		turn:     semaphore.NewWeighted(1),
	}

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return nil, err
	}
	s.messages = []models.Message{system}

	s.logger.Info("Session opened", zap.String("session_id", s.id))
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Username() string { return s.username }

// Transcript returns a copy of the messages exchanged so far.
func (s *Session) Transcript() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Message(nil), s.messages...)
}

// SendMessage appends the user turn, sends the entire transcript to the
// gateway and appends the reply. Calls on the same session are serialized.
//
// On a gateway failure the user turn stays in the transcript and a
// *llm.GatewayError is returned; Reset is the way back to a clean state.
func (s *Session) SendMessage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	if err := s.acquire(ctx); err != nil {
		return "", err
	}
	defer s.turn.Release(1)

	history := s.append(models.Message{Role: models.RoleUser, Content: text})

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	started := time.Now()
	reply, err := s.gateway.Complete(callCtx, s.opts.Model, history, s.opts.MaxTokens)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = llm.ErrEmptyResponse
	}
	if err != nil {
		var gwErr *llm.GatewayError
		if !errors.As(err, &gwErr) {
			err = &llm.GatewayError{Provider: "gateway", Cause: err}
		}
		s.logger.Warn("Chat completion failed",
			zap.Error(err),
			zap.String("session_id", s.id),
			zap.Int("transcript_len", len(history)),
			zap.Duration("elapsed", time.Since(started)))
		return "", err
	}

	transcriptLen := len(s.append(models.Message{Role: models.RoleAssistant, Content: reply}))
	s.logger.Debug("Chat turn completed",
		zap.String("session_id", s.id),
		zap.Int("transcript_len", transcriptLen),
		zap.Duration("elapsed", time.Since(started)))

	return reply, nil
}

// Reset rebuilds the system prompt from the current store contents and
// truncates the transcript to it. It waits for an in-flight SendMessage. If
// the store cannot be read the transcript is left unchanged.
func (s *Session) Reset(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.turn.Release(1)

	system, err := s.systemPrompt(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.messages = []models.Message{system}
	s.mu.Unlock()

	s.logger.Info("Session reset", zap.String("session_id", s.id))
	return nil
}

func (s *Session) acquire(ctx context.Context) error {
	if err := s.turn.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrSessionBusy, err)
	}
	return nil
}

// append adds msg and returns a snapshot of the transcript including it.
func (s *Session) append(msg models.Message) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return append([]models.Message(nil), s.messages...)
}

func (s *Session) systemPrompt(ctx context.Context) (models.Message, error) {
	kp, err := s.store.GetKnowledgeProfile(ctx, s.username)
	if errors.Is(err, storage.ErrNotFound) {
		kp = nil
	} else if err != nil {
		return models.Message{}, fmt.Errorf("loading knowledge profile: %w", err)
	}

	lp, err := s.store.GetLearnerProfile(ctx, s.username)
	if errors.Is(err, storage.ErrNotFound) {
		lp = nil
	} else if err != nil {
		return models.Message{}, fmt.Errorf("loading learner profile: %w", err)
	}

	return profile.BuildSystemPrompt(s.username, profile.DescribeKnowledge(kp), profile.DescribeLearner(lp)), nil
}
