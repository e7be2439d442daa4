// Package storage defines the persistence contract for chatpg.
//
// Implementations live in the driver submodules (driver/pgxv5,
// driver/databasesql). All queries are parameterized; the interface is
// expressed as structured calls with typed fields so no SQL is ever built
// by string concatenation.
package storage

import (
	"context"
	"time"
)

// Store defines the persistence interface for conversations and messages.
type Store interface {
	// FindRecentActiveConversations returns the user's active conversations
	// ordered by updated_at descending, bounded by limit.
	FindRecentActiveConversations(ctx context.Context, userID string, limit int) ([]*Conversation, error)

	// CreateConversation creates a conversation with a zero token total and
	// active=true. Topic may be nil.
	CreateConversation(ctx context.Context, id, userID string, topic *string) error

	// GetConversation retrieves a conversation by ID.
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)

	// GetTokenTotal returns the stored cumulative token total for a
	// conversation.
	GetTokenTotal(ctx context.Context, conversationID string) (int, error)

	// AppendTurnsAndBumpTotal persists a batch of turns and adds totalDelta
	// to the conversation's token total as one logical operation: either all
	// rows are recorded and the total is bumped, or neither happens.
	AppendTurnsAndBumpTotal(ctx context.Context, conversationID string, turns []*TurnRecord, totalDelta int) error

	// ListConversations returns the user's conversations with message
	// counts, ordered by updated_at descending, bounded by limit.
	ListConversations(ctx context.Context, userID string, limit int) ([]*ConversationSummary, error)

	// ListMessages returns a conversation's messages ordered oldest-first,
	// bounded by limit.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*MessageRecord, error)
}

// Conversation represents a persisted conversation thread.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Topic      *string   `json:"topic,omitempty"`
	TokenTotal int       `json:"token_total"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ConversationSummary is a Conversation plus its message count, as returned
// by ListConversations.
type ConversationSummary struct {
	Conversation
	MessageCount int `json:"message_count"`
}

// TurnRecord is one role-tagged utterance to persist during a flush.
type TurnRecord struct {
	ID           string    `json:"id"`
	SessionRunID string    `json:"session_run_id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	Cost         int       `json:"cost"`
	CreatedAt    time.Time `json:"created_at"`
}

// MessageRecord is a persisted message row as returned by ListMessages.
type MessageRecord struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SessionRunID   string    `json:"session_run_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Cost           int       `json:"cost"`
	CreatedAt      time.Time `json:"created_at"`
}
