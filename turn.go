package chatpg

import (
	"encoding/hex"
	"time"

	"github.com/chatpg/chatpg/storage"
	"github.com/google/uuid"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// User-facing copy for the two synthesized assistant turns. These strings
// are presentation only; the pipeline's continuation verdict is carried as
// an explicit tag, never recovered by matching on them.
const (
	// BudgetExceededNotice is appended when the budget gate refuses a turn.
	BudgetExceededNotice = "This conversation has reached its maximum length. Please start a new conversation to continue."

	// ProviderFailureApology is substituted when the completion provider
	// fails or times out.
	ProviderFailureApology = "I apologize, but I encountered an error. Please try again."
)

// Turn is a single role-tagged utterance within a conversation. It is
// created by the pipeline, immutable afterwards, and owned by the session
// buffer until a successful flush hands it to the store.
type Turn struct {
	ID             string
	ConversationID string
	SessionRunID   string
	Role           Role
	Text           string
	Cost           int
	CreatedAt      time.Time
}

// NewTurn creates a turn with a fresh ID and the given estimated cost.
func NewTurn(conversationID, sessionRunID string, role Role, text string, cost int) *Turn {
	return &Turn{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SessionRunID:   sessionRunID,
		Role:           role,
		Text:           text,
		Cost:           cost,
		CreatedAt:      time.Now().UTC(),
	}
}

// Record converts the turn to its storage representation.
func (t *Turn) Record() *storage.TurnRecord {
	return &storage.TurnRecord{
		ID:           t.ID,
		SessionRunID: t.SessionRunID,
		Role:         string(t.Role),
		Content:      t.Text,
		Cost:         t.Cost,
		CreatedAt:    t.CreatedAt,
	}
}

// TranscriptTurn is one role+text entry of the ordered transcript handed to
// the completion provider.
type TranscriptTurn struct {
	Role Role
	Text string
}

// NewConversationID generates a conversation identifier of the form
// "chat_<16 hex chars>".
func NewConversationID() string {
	u := uuid.New()
	return "chat_" + hex.EncodeToString(u[:8])
}

// NewSessionRunID generates a session-run identifier of the form
// "session_<16 hex chars>". A session run is one continuous interactive
// attachment to a conversation; it is stamped onto the turns it produces
// but never persisted on its own.
func NewSessionRunID() string {
	u := uuid.New()
	return "session_" + hex.EncodeToString(u[:8])
}
