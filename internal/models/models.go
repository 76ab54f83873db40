package models

import "time"

// Role tags a transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry exchanged with the chat completion gateway
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// User is the identity record behind every profile and session
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatBinding ties a Telegram chat to the username it talks as
type ChatBinding struct {
	ChatID    int64     `json:"chat_id"`
	Username  string    `json:"username"`
	UpdatedAt time.Time `json:"updated_at"`
}
