package chatpg

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the client configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConversationNotFound is returned when a conversation does not exist
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrBudgetExceeded marks a conversation that has reached its token
	// budget. This is a normal terminal pipeline outcome, not a failure:
	// the caller recovers by routing the user to a new conversation.
	ErrBudgetExceeded = errors.New("conversation token budget exceeded")

	// ErrStoreFailure is returned when a store operation failed
	ErrStoreFailure = errors.New("store operation failed")

	// ErrProviderFailure is returned when the completion provider failed
	ErrProviderFailure = errors.New("completion provider failed")

	// ErrProviderTimeout is returned when the completion provider timed out
	ErrProviderTimeout = errors.New("completion provider timed out")

	// ErrFlushFailed is returned when a buffer flush could not persist its
	// snapshot. The buffered turns are retained for a later retry.
	ErrFlushFailed = errors.New("flush failed")

	// ErrEmptyUserText is returned when a turn is run with blank user text
	ErrEmptyUserText = errors.New("user text is empty")

	// ErrClientNotStarted is returned when calling methods before Start()
	ErrClientNotStarted = errors.New("client not started")

	// ErrClientAlreadyStarted is returned when Start() is called twice
	ErrClientAlreadyStarted = errors.New("client already started")
)

// ChatError represents an error with additional context
type ChatError struct {
	Op             string // Operation that failed
	Err            error  // Underlying error
	ConversationID string // Conversation ID if applicable
}

// Error implements the error interface
func (e *ChatError) Error() string {
	if e.ConversationID != "" {
		return fmt.Sprintf("%s (conversation=%s): %v", e.Op, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *ChatError) Unwrap() error {
	return e.Err
}

// NewChatError creates a new ChatError
func NewChatError(op string, err error) *ChatError {
	return &ChatError{
		Op:  op,
		Err: err,
	}
}

// NewChatErrorWithConversation creates a new ChatError with a conversation ID
func NewChatErrorWithConversation(op string, conversationID string, err error) *ChatError {
	return &ChatError{
		Op:             op,
		Err:            err,
		ConversationID: conversationID,
	}
}
