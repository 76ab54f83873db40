package storage

import (
	"context"
	"errors"

	"github.com/xaenox/mindmesh-bot/internal/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUserNotFound is returned when a profile is written for an unknown username.
	ErrUserNotFound = errors.New("user does not exist")
	// ErrConflict is returned on a duplicate username or a second profile of the same kind.
	ErrConflict = errors.New("already exists")
)

// Storage is everything the assistant persists.
type Storage interface {
	ProfileStore
	ChatBindingStorage
	Close() error
}

// ProfileStore keeps users and their questionnaire answers, keyed by username.
type ProfileStore interface {
	CreateUser(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	CreateKnowledgeProfile(ctx context.Context, username string, profile *models.KnowledgeProfile) error
	CreateLearnerProfile(ctx context.Context, username string, profile *models.LearnerProfile) error

	// GetKnowledgeProfile and GetLearnerProfile return ErrNotFound when the
	// user has not answered the questionnaire yet.
	GetKnowledgeProfile(ctx context.Context, username string) (*models.KnowledgeProfile, error)
	GetLearnerProfile(ctx context.Context, username string) (*models.LearnerProfile, error)
}

// ChatBindingStorage remembers which username a Telegram chat talks as.
type ChatBindingStorage interface {
	BindChat(ctx context.Context, chatID int64, username string) error
	GetChatBinding(ctx context.Context, chatID int64) (*models.ChatBinding, error)
	DeleteChatBinding(ctx context.Context, chatID int64) error
}
