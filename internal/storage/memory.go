package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/mindmesh-bot/internal/models"
)

type MemoryStorage struct {
	mu        sync.RWMutex
	users     map[string]*models.User
	knowledge map[string]models.KnowledgeProfile
	learner   map[string]models.LearnerProfile
	bindings  map[int64]models.ChatBinding
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:     make(map[string]*models.User),
		knowledge: make(map[string]models.KnowledgeProfile),
		learner:   make(map[string]models.LearnerProfile),
		bindings:  make(map[int64]models.ChatBinding),
	}
}

// User methods
func (s *MemoryStorage) CreateUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}
	s.users[username] = user

	u := *user
	return &u, nil
}

func (s *MemoryStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, exists := s.users[username]; exists {
		u := *user
		return &u, nil
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (s *MemoryStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		u := *user
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
	return users, nil
}

// Profile methods
func (s *MemoryStorage) CreateKnowledgeProfile(ctx context.Context, username string, profile *models.KnowledgeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return fmt.Errorf("user %q: %w", username, ErrUserNotFound)
	}
	if _, exists := s.knowledge[username]; exists {
		return fmt.Errorf("knowledge profile for %q: %w", username, ErrConflict)
	}

	p := *profile
	p.SupportNeeds = append([]string(nil), profile.SupportNeeds...)
	s.knowledge[username] = p
	return nil
}

func (s *MemoryStorage) CreateLearnerProfile(ctx context.Context, username string, profile *models.LearnerProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return fmt.Errorf("user %q: %w", username, ErrUserNotFound)
	}
	if _, exists := s.learner[username]; exists {
		return fmt.Errorf("learner profile for %q: %w", username, ErrConflict)
	}

	s.learner[username] = *profile
	return nil
}

func (s *MemoryStorage) GetKnowledgeProfile(ctx context.Context, username string) (*models.KnowledgeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.knowledge[username]
	if !exists {
		return nil, fmt.Errorf("knowledge profile for %q: %w", username, ErrNotFound)
	}
	p.SupportNeeds = append([]string(nil), p.SupportNeeds...)
	return &p, nil
}

func (s *MemoryStorage) GetLearnerProfile(ctx context.Context, username string) (*models.LearnerProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.learner[username]
	if !exists {
		return nil, fmt.Errorf("learner profile for %q: %w", username, ErrNotFound)
	}
	return &p, nil
}

// Chat binding methods
func (s *MemoryStorage) BindChat(ctx context.Context, chatID int64, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bindings[chatID] = models.ChatBinding{
		ChatID:    chatID,
		Username:  username,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStorage) GetChatBinding(ctx context.Context, chatID int64) (*models.ChatBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if binding, exists := s.bindings[chatID]; exists {
		return &binding, nil
	}
	return nil, fmt.Errorf("chat %d: %w", chatID, ErrNotFound)
}

func (s *MemoryStorage) DeleteChatBinding(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bindings, chatID)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
