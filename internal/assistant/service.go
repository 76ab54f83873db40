// Package assistant is the caller-facing surface shared by every front end:
// user registration, questionnaire submission and the chat session lifecycle.
package assistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaenox/mindmesh-bot/internal/models"
	"github.com/xaenox/mindmesh-bot/internal/profile"
	"github.com/xaenox/mindmesh-bot/internal/session"
	"github.com/xaenox/mindmesh-bot/internal/storage"
	"go.uber.org/zap"
)

// Profile is a user's stored questionnaire answers with the text the
// assistant is conditioned on. Either record may be nil.
type Profile struct {
	User                 *models.User             `json:"user"`
	Knowledge            *models.KnowledgeProfile `json:"knowledge,omitempty"`
	Learner              *models.LearnerProfile   `json:"learner,omitempty"`
	KnowledgeDescription string                   `json:"knowledge_description"`
	LearnerDescription   string                   `json:"learner_description"`
}

type Service struct {
	store    storage.ProfileStore
	sessions *session.Registry
	logger   *zap.Logger
}

func NewService(store storage.ProfileStore, sessions *session.Registry, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
}

func (s *Service) CreateUser(ctx context.Context, username string) (*models.User, error) {
	if err := profile.ValidateUsername(username); err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}

	s.logger.Info("User created", zap.String("username", username), zap.String("user_id", user.ID))
	return user, nil
}

// User looks up a registered username. Unknown names yield storage.ErrUserNotFound.
func (s *Service) User(ctx context.Context, username string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, storage.ErrUserNotFound)
	}
	return user, err
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.store.ListUsers(ctx)
}

// SubmitKnowledgeProfile normalizes, validates and stores the first
// questionnaire. A live session keeps its old system prompt until Reset.
func (s *Service) SubmitKnowledgeProfile(ctx context.Context, username string, p *models.KnowledgeProfile) error {
	if p == nil {
		return &profile.ValidationError{Fields: map[string]string{"knowledge": "is required"}}
	}
	if err := profile.PrepareKnowledge(p); err != nil {
		return err
	}
	if err := s.store.CreateKnowledgeProfile(ctx, username, p); err != nil {
		return fmt.Errorf("saving knowledge profile for %q: %w", username, err)
	}

	s.logger.Info("Knowledge profile saved", zap.String("username", username))
	return nil
}

// SubmitLearnerProfile is the second questionnaire's counterpart of SubmitKnowledgeProfile.
func (s *Service) SubmitLearnerProfile(ctx context.Context, username string, p *models.LearnerProfile) error {
	if p == nil {
		return &profile.ValidationError{Fields: map[string]string{"learner": "is required"}}
	}
	if err := profile.PrepareLearner(p); err != nil {
		return err
	}
	if err := s.store.CreateLearnerProfile(ctx, username, p); err != nil {
		return fmt.Errorf("saving learner profile for %q: %w", username, err)
	}

	s.logger.Info("Learner profile saved", zap.String("username", username))
	return nil
}

// Profile reads back both questionnaires. It returns storage.ErrUserNotFound
// for an unknown username.
func (s *Service) Profile(ctx context.Context, username string) (*Profile, error) {
	user, err := s.User(ctx, username)
	if err != nil {
		return nil, err
	}

	kp, err := s.store.GetKnowledgeProfile(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	lp, err := s.store.GetLearnerProfile(ctx, username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return &Profile{
		User:                 user,
		Knowledge:            kp,
		Learner:              lp,
		KnowledgeDescription: profile.DescribeKnowledge(kp),
		LearnerDescription:   profile.DescribeLearner(lp),
	}, nil
}

// Open returns the user's live session, opening it on first use.
func (s *Service) Open(ctx context.Context, username string) (*session.Session, error) {
	if username == "" {
		return nil, session.ErrInvalidUsername
	}
	return s.sessions.GetOrCreate(ctx, username)
}

func (s *Service) SendMessage(ctx context.Context, username, text string) (string, error) {
	sess, err := s.Open(ctx, username)
	if err != nil {
		return "", err
	}
	return sess.SendMessage(ctx, text)
}

// Reset rebuilds the user's session from the current profiles.
func (s *Service) Reset(ctx context.Context, username string) error {
	sess, err := s.Open(ctx, username)
	if err != nil {
		return err
	}
	return sess.Reset(ctx)
}

// EndSession forgets the user's live session. The next Open starts fresh.
func (s *Service) EndSession(username string) bool {
	return s.sessions.Drop(username)
}

// Transcript returns the live session's messages, or false when none is open.
func (s *Service) Transcript(username string) ([]models.Message, bool) {
	sess, ok := s.sessions.Get(username)
	if !ok {
		return nil, false
	}
	return sess.Transcript(), true
}
