package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/mindmesh-bot/internal/models"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const supportNeedsSeparator = ", "

// dialect holds what differs between the SQL backends.
type dialect struct {
	name              string
	migration         string
	numberedParams    bool
	isUniqueViolation func(error) bool
}

// rebind rewrites ? placeholders to $1, $2, ... for drivers that need it.
func (d dialect) rebind(query string) string {
	if !d.numberedParams {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStorage implements Storage on top of database/sql.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
	logger  *zap.Logger
}

func newSQLStorage(db *sql.DB, d dialect, logger *zap.Logger) (*SQLStorage, error) {
	storage := &SQLStorage{db: db, dialect: d, logger: logger}

	// Initialize database schema
	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

func (s *SQLStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations/" + s.dialect.migration)
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}

	s.logger.Debug("Database schema ready", zap.String("dialect", s.dialect.name))
	return nil
}

func (s *SQLStorage) CreateUser(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{
		ID:        uuid.New().String(),
		Username:  username,
		CreatedAt: time.Now().UTC(),
	}

	query := s.dialect.rebind(`INSERT INTO users (id, username, created_at) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Username, user.CreatedAt); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return nil, fmt.Errorf("user %q: %w", username, ErrConflict)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

func (s *SQLStorage) GetUser(ctx context.Context, username string) (*models.User, error) {
	query := s.dialect.rebind(`SELECT id, username, created_at FROM users WHERE username = ?`)

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying user: %w", err)
	}

	return user, nil
}

func (s *SQLStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, username, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (s *SQLStorage) userID(ctx context.Context, username string) (string, error) {
	query := s.dialect.rebind(`SELECT id FROM users WHERE username = ?`)

	var id string
	err := s.db.QueryRowContext(ctx, query, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %q: %w", username, ErrUserNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("error querying user: %w", err)
	}
	return id, nil
}

func (s *SQLStorage) CreateKnowledgeProfile(ctx context.Context, username string, profile *models.KnowledgeProfile) error {
	userID, err := s.userID(ctx, username)
	if err != nil {
		return err
	}

	query := s.dialect.rebind(`
		INSERT INTO knowledge_profiles (
			user_id, name, age, background, familiarity_kw,
			math_eq, programming_comfort, confidence_asking, support_needs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		userID,
		profile.Name,
		profile.Age,
		profile.Background,
		profile.FamiliarityKW,
		profile.MathEq,
		profile.ProgrammingComfort,
		profile.ConfidenceAsking,
		strings.Join(profile.SupportNeeds, supportNeedsSeparator),
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("knowledge profile for %q: %w", username, ErrConflict)
		}
		return fmt.Errorf("error creating knowledge profile: %w", err)
	}

	return nil
}

func (s *SQLStorage) CreateLearnerProfile(ctx context.Context, username string, profile *models.LearnerProfile) error {
	userID, err := s.userID(ctx, username)
	if err != nil {
		return err
	}

	query := s.dialect.rebind(`
		INSERT INTO learner_profiles (
			user_id, problematic, goal_understanding, precision_level, analogies, conciseness,
			learning_mode, explanation_style, interactivity, tone, humor, motivation, adaptability
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = s.db.ExecContext(ctx, query,
		userID,
		profile.Problematic,
		profile.GoalUnderstanding,
		profile.PrecisionLevel,
		profile.Analogies,
		profile.Conciseness,
		profile.LearningMode,
		string(profile.ExplanationStyle),
		profile.Interactivity,
		string(profile.Tone),
		string(profile.Humor),
		profile.Motivation,
		profile.Adaptability,
	)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return fmt.Errorf("learner profile for %q: %w", username, ErrConflict)
		}
		return fmt.Errorf("error creating learner profile: %w", err)
	}

	return nil
}

func (s *SQLStorage) GetKnowledgeProfile(ctx context.Context, username string) (*models.KnowledgeProfile, error) {
	query := s.dialect.rebind(`
		SELECT kp.name, kp.age, kp.background, kp.familiarity_kw,
			kp.math_eq, kp.programming_comfort, kp.confidence_asking, kp.support_needs
		FROM knowledge_profiles kp
		JOIN users u ON u.id = kp.user_id
		WHERE u.username = ?`)

	profile := &models.KnowledgeProfile{}
	var supportNeeds string
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&profile.Name,
		&profile.Age,
		&profile.Background,
		&profile.FamiliarityKW,
		&profile.MathEq,
		&profile.ProgrammingComfort,
		&profile.ConfidenceAsking,
		&supportNeeds,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("knowledge profile for %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying knowledge profile: %w", err)
	}

	profile.SupportNeeds = splitSupportNeeds(supportNeeds)
	return profile, nil
}

func (s *SQLStorage) GetLearnerProfile(ctx context.Context, username string) (*models.LearnerProfile, error) {
	query := s.dialect.rebind(`
		SELECT lp.problematic, lp.goal_understanding, lp.precision_level, lp.analogies, lp.conciseness,
			lp.learning_mode, lp.explanation_style, lp.interactivity, lp.tone, lp.humor,
			lp.motivation, lp.adaptability
		FROM learner_profiles lp
		JOIN users u ON u.id = lp.user_id
		WHERE u.username = ?`)

	profile := &models.LearnerProfile{}
	var style, tone, humor string
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&profile.Problematic,
		&profile.GoalUnderstanding,
		&profile.PrecisionLevel,
		&profile.Analogies,
		&profile.Conciseness,
		&profile.LearningMode,
		&style,
		&profile.Interactivity,
		&tone,
		&humor,
		&profile.Motivation,
		&profile.Adaptability,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("learner profile for %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying learner profile: %w", err)
	}

	profile.ExplanationStyle = models.ExplanationStyle(style)
	profile.Tone = models.Tone(tone)
	profile.Humor = models.Humor(humor)
	return profile, nil
}

func (s *SQLStorage) BindChat(ctx context.Context, chatID int64, username string) error {
	query := s.dialect.rebind(`
		INSERT INTO chat_bindings (chat_id, username, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE
		SET username = excluded.username, updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, chatID, username, time.Now().UTC()); err != nil {
		return fmt.Errorf("error binding chat: %w", err)
	}
	return nil
}

func (s *SQLStorage) GetChatBinding(ctx context.Context, chatID int64) (*models.ChatBinding, error) {
	query := s.dialect.rebind(`SELECT chat_id, username, updated_at FROM chat_bindings WHERE chat_id = ?`)

	binding := &models.ChatBinding{}
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(&binding.ChatID, &binding.Username, &binding.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("chat %d: %w", chatID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying chat binding: %w", err)
	}
	return binding, nil
}

func (s *SQLStorage) DeleteChatBinding(ctx context.Context, chatID int64) error {
	query := s.dialect.rebind(`DELETE FROM chat_bindings WHERE chat_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("error deleting chat binding: %w", err)
	}
	return nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

func splitSupportNeeds(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, supportNeedsSeparator)
}
