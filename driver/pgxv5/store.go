package pgxv5

import (
	"context"
	"fmt"

	"github.com/chatpg/chatpg/driver"
	"github.com/chatpg/chatpg/storage"
	"github.com/jackc/pgx/v5"
)

// Store implements storage.Store using the pgxv5 driver.
type Store struct {
	driver *Driver
}

// NewStore creates a new pgxv5 Store.
func NewStore(d *Driver) *Store {
	return &Store{driver: d}
}

// getExecutor returns the executor from context if present, otherwise the
// default pool executor.
func (s *Store) getExecutor(ctx context.Context) driver.Executor {
	if exec := driver.ExecutorFromContext(ctx); exec != nil {
		return exec
	}
	return s.driver.GetExecutor()
}

// FindRecentActiveConversations returns the user's active conversations,
// most recently updated first.
func (s *Store) FindRecentActiveConversations(ctx context.Context, userID string, limit int) ([]*storage.Conversation, error) {
	query := `
		SELECT id, user_id, topic, token_total, active, created_at, updated_at
		FROM chatpg_conversations
		WHERE user_id = $1 AND active = true
		ORDER BY updated_at DESC
		LIMIT $2
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	return scanConversations(rows)
}

// CreateConversation creates a conversation with a zero token total.
func (s *Store) CreateConversation(ctx context.Context, id, userID string, topic *string) error {
	if id == "" {
		return fmt.Errorf("conversation id is required")
	}
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	query := `
		INSERT INTO chatpg_conversations (id, user_id, topic, token_total, active, created_at, updated_at)
		VALUES ($1, $2, $3, 0, true, NOW(), NOW())
	`

	_, err := s.getExecutor(ctx).Exec(ctx, query, id, userID, topic)
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*storage.Conversation, error) {
	query := `
		SELECT id, user_id, topic, token_total, active, created_at, updated_at
		FROM chatpg_conversations
		WHERE id = $1
	`

	var conv storage.Conversation
	row := s.getExecutor(ctx).QueryRow(ctx, query, conversationID)
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Topic,
		&conv.TokenTotal,
		&conv.Active,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("conversation not found: %s", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return &conv, nil
}

// GetTokenTotal returns the stored cumulative token total for a conversation.
func (s *Store) GetTokenTotal(ctx context.Context, conversationID string) (int, error) {
	query := `SELECT token_total FROM chatpg_conversations WHERE id = $1`

	var total int
	err := s.getExecutor(ctx).QueryRow(ctx, query, conversationID).Scan(&total)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("conversation not found: %s", conversationID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get token total: %w", err)
	}

	return total, nil
}

// AppendTurnsAndBumpTotal persists a batch of turns and bumps the
// conversation's token total in one transaction. Either all rows are
// recorded and the total is bumped, or neither happens.
func (s *Store) AppendTurnsAndBumpTotal(ctx context.Context, conversationID string, turns []*storage.TurnRecord, totalDelta int) error {
	if len(turns) == 0 {
		return nil
	}

	// Join an executor already in context, otherwise open our own
	// transaction so the batch write and the total bump stay atomic.
	if exec := driver.ExecutorFromContext(ctx); exec != nil {
		return appendAndBump(ctx, exec, conversationID, turns, totalDelta)
	}

	tx, err := s.driver.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin flush transaction: %w", err)
	}

	if err := appendAndBump(ctx, tx, conversationID, turns, totalDelta); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit flush transaction: %w", err)
	}

	return nil
}

const insertMessageQuery = `
	INSERT INTO chatpg_messages (id, conversation_id, session_run_id, role, content, cost, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const bumpTotalQuery = `
	UPDATE chatpg_conversations
	SET token_total = token_total + $2, updated_at = NOW()
	WHERE id = $1
`

// appendAndBump runs the message inserts and the total update on the given
// executor as one batch.
func appendAndBump(ctx context.Context, exec driver.Executor, conversationID string, turns []*storage.TurnRecord, totalDelta int) error {
	batchExec, ok := exec.(driver.BatchExecutor)
	if !ok {
		return fmt.Errorf("executor does not support batch operations")
	}

	items := make([]driver.BatchItem, 0, len(turns)+1)
	for _, turn := range turns {
		items = append(items, driver.BatchItem{
			Query: insertMessageQuery,
			Args: []any{
				turn.ID,
				conversationID,
				turn.SessionRunID,
				turn.Role,
				turn.Content,
				turn.Cost,
				turn.CreatedAt,
			},
		})
	}
	items = append(items, driver.BatchItem{
		Query: bumpTotalQuery,
		Args:  []any{conversationID, totalDelta},
	})

	affected, err := batchExec.SendBatch(ctx, items)
	if err != nil {
		return fmt.Errorf("failed to persist turns: %w", err)
	}

	if affected[len(affected)-1] == 0 {
		return fmt.Errorf("conversation not found: %s", conversationID)
	}

	return nil
}

// ListConversations returns the user's conversations with message counts.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]*storage.ConversationSummary, error) {
	query := `
		SELECT c.id, c.user_id, c.topic, c.token_total, c.active, c.created_at, c.updated_at,
		       COUNT(m.id) AS message_count
		FROM chatpg_conversations c
		LEFT JOIN chatpg_messages m ON c.id = m.conversation_id
		WHERE c.user_id = $1
		GROUP BY c.id, c.user_id, c.topic, c.token_total, c.active, c.created_at, c.updated_at
		ORDER BY c.updated_at DESC
		LIMIT $2
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var summaries []*storage.ConversationSummary
	for rows.Next() {
		var sum storage.ConversationSummary
		err := rows.Scan(
			&sum.ID,
			&sum.UserID,
			&sum.Topic,
			&sum.TokenTotal,
			&sum.Active,
			&sum.CreatedAt,
			&sum.UpdatedAt,
			&sum.MessageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		summaries = append(summaries, &sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return summaries, nil
}

// ListMessages returns a conversation's messages oldest-first.
func (s *Store) ListMessages(ctx context.Context, conversationID string, limit int) ([]*storage.MessageRecord, error) {
	query := `
		SELECT id, conversation_id, session_run_id, role, content, cost, created_at
		FROM chatpg_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*storage.MessageRecord
	for rows.Next() {
		var msg storage.MessageRecord
		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SessionRunID,
			&msg.Role,
			&msg.Content,
			&msg.Cost,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

// scanConversations is a helper to scan conversation rows.
func scanConversations(rows driver.Rows) ([]*storage.Conversation, error) {
	var conversations []*storage.Conversation
	for rows.Next() {
		var conv storage.Conversation
		err := rows.Scan(
			&conv.ID,
			&conv.UserID,
			&conv.Topic,
			&conv.TokenTotal,
			&conv.Active,
			&conv.CreatedAt,
			&conv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, &conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)
