package chatpg

import (
	"context"

	"github.com/chatpg/chatpg/storage"
)

// Router resolves which conversation a user turn belongs to: reuse a recent
// active conversation on the same topic, or start a fresh one.
type Router struct {
	store    storage.Store
	budget   Budget
	lookback int
}

// NewRouter creates a router that inspects at most lookback recent
// conversations per resolve.
func NewRouter(store storage.Store, budget Budget, lookback int) *Router {
	return &Router{store: store, budget: budget, lookback: lookback}
}

// Resolve returns the conversation ID for a user turn, whether it was newly
// created, and its stored token total. With a topic hint, the user's most
// recently updated active conversations are scanned newest first and the
// first one whose topic matches the hint and whose token total is still
// under budget is reused. Without a hint, or with no match, a new
// conversation is created.
func (r *Router) Resolve(ctx context.Context, userID, topicHint string) (string, bool, int, error) {
	if topicHint != "" {
		recent, err := r.store.FindRecentActiveConversations(ctx, userID, r.lookback)
		if err != nil {
			return "", false, 0, NewChatError("resolve_conversation", err)
		}

		for _, conv := range recent {
			if conv.Topic == nil || *conv.Topic != topicHint {
				continue
			}
			if !r.budget.Allows(conv.TokenTotal) {
				continue
			}
			return conv.ID, false, conv.TokenTotal, nil
		}
	}

	id := NewConversationID()
	var topic *string
	if topicHint != "" {
		topic = &topicHint
	}
	if err := r.store.CreateConversation(ctx, id, userID, topic); err != nil {
		return "", false, 0, NewChatError("create_conversation", err)
	}
	return id, true, 0, nil
}
