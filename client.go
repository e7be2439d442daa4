package chatpg

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/chatpg/chatpg/driver"
	"github.com/chatpg/chatpg/maintenance"
	"github.com/chatpg/chatpg/storage"
)

// Version is the current ChatPG version
const Version = "1.0.0"

// Client is the top-level entry point. It resolves conversations, runs the
// turn pipeline, and manages the background sweeper that flushes idle
// buffers.
//
// TTx is the native transaction type from the driver (e.g., pgx.Tx, *sql.Tx).
type Client[TTx any] struct {
	driver   driver.Driver[TTx]
	store    storage.Store
	config   *ClientConfig
	provider Provider
	budget   Budget
	router   *Router
	buffers  *BufferRegistry
	pipe     *pipeline

	sweeper *maintenance.Sweeper

	started atomic.Bool
	cancel  context.CancelFunc
}

// NewClient creates a new ChatPG client with the given driver and
// configuration. The transaction type TTx is inferred from the driver
// argument.
//
// Example:
//
//	drv := pgxv5.New(pool)
//	client, err := chatpg.NewClient(drv, &chatpg.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := client.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Stop(ctx)
//
//	result, err := client.RunTurn(ctx, "user-1", "Hello!", "greetings")
func NewClient[TTx any](drv driver.Driver[TTx], config *ClientConfig, opts ...Option) (*Client[TTx], error) {
	if drv == nil {
		return nil, fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	}
	if !drv.PoolIsSet() {
		return nil, fmt.Errorf("%w: driver pool is not set", ErrInvalidConfig)
	}

	if config == nil {
		config = DefaultClientConfig()
	}
	cfg := config.withDefaults()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := cfg.Provider
	if provider == nil {
		var anthropicClient *anthropic.Client
		if cfg.Client != nil {
			anthropicClient = cfg.Client
		} else {
			ac := anthropic.NewClient(option.WithAPIKey(cfg.APIKey))
			anthropicClient = &ac
		}
		provider = NewAnthropicProvider(anthropicClient, cfg.Model, cfg.MaxModelTokens, cfg.ProviderTimeout)
	}

	store := drv.GetStore()
	budget := NewBudget(cfg.MaxModelTokens, cfg.ContextMultiplier, cfg.FlushInterval, cfg.IdleSessionInterval)
	buffers := NewBufferRegistry(store, cfg.FlushInterval)

	c := &Client[TTx]{
		driver:   drv,
		store:    store,
		config:   cfg,
		provider: provider,
		budget:   budget,
		router:   NewRouter(store, budget, cfg.ConversationLookback),
		buffers:  buffers,
		pipe: &pipeline{
			store:    store,
			buffers:  buffers,
			provider: provider,
			budget:   budget,
			hooks:    cfg.Hooks,
			preamble: cfg.SystemPreamble,
			msgLimit: cfg.MessageListLimit,
			onError:  cfg.OnError,
		},
	}

	return c, nil
}

// Start begins background operations. Currently that is the idle-buffer
// sweeper; RunTurn requires a started client so shutdown can guarantee
// every buffer is drained.
func (c *Client[TTx]) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrClientAlreadyStarted
	}

	ctx, c.cancel = context.WithCancel(ctx)

	c.sweeper = maintenance.NewSweeper(c.pipe.flushIdle, &maintenance.SweeperConfig{
		Interval: c.config.SweepInterval,
		IdleFor:  c.config.IdleSessionInterval,
		OnError:  c.config.OnError,
	})
	if err := c.sweeper.Start(ctx); err != nil {
		c.started.Store(false)
		return fmt.Errorf("failed to start sweeper: %w", err)
	}

	return nil
}

// Stop gracefully shuts down the client. The sweeper is stopped first, then
// every remaining buffer is force-flushed so no buffered turn is lost.
func (c *Client[TTx]) Stop(ctx context.Context) error {
	if !c.started.Load() {
		return ErrClientNotStarted
	}

	if c.cancel != nil {
		c.cancel()
	}

	if c.sweeper != nil && c.sweeper.IsRunning() {
		_ = c.sweeper.Stop(ctx)
	}

	_, err := c.buffers.FlushAll(ctx)
	c.started.Store(false)
	if err != nil {
		return fmt.Errorf("failed to drain buffers: %w", err)
	}
	return nil
}

// IsRunning returns true if the client has been started.
func (c *Client[TTx]) IsRunning() bool {
	return c.started.Load()
}

// RunTurn runs one user turn. The conversation is resolved from the user's
// recent active conversations by topic hint, a new one is created when none
// matches, and the turn pipeline runs to completion. The conversation's
// buffer is force-flushed before returning, so every call leaves the turn
// durable.
func (c *Client[TTx]) RunTurn(ctx context.Context, userID, userText, topicHint string) (*TurnResult, error) {
	if !c.started.Load() {
		return nil, ErrClientNotStarted
	}
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyUserText
	}

	conversationID, _, storedTotal, err := c.router.Resolve(ctx, userID, topicHint)
	if err != nil {
		return nil, err
	}

	return c.runResolved(ctx, conversationID, userID, userText, storedTotal)
}

// RunConversationTurn runs one user turn against a specific conversation,
// bypassing the router. The conversation must exist.
func (c *Client[TTx]) RunConversationTurn(ctx context.Context, conversationID, userID, userText string) (*TurnResult, error) {
	if !c.started.Load() {
		return nil, ErrClientNotStarted
	}
	if strings.TrimSpace(userText) == "" {
		return nil, ErrEmptyUserText
	}

	storedTotal, err := c.store.GetTokenTotal(ctx, conversationID)
	if err != nil {
		return nil, NewChatErrorWithConversation("get_token_total", conversationID, fmt.Errorf("%w: %v", ErrConversationNotFound, err))
	}

	return c.runResolved(ctx, conversationID, userID, userText, storedTotal)
}

func (c *Client[TTx]) runResolved(ctx context.Context, conversationID, userID, userText string, storedTotal int) (*TurnResult, error) {
	sessionRunID := NewSessionRunID()

	result, err := c.pipe.run(ctx, conversationID, sessionRunID, userID, userText, storedTotal)
	if err != nil {
		return nil, err
	}

	// Session boundary: every returned turn must already be durable.
	c.pipe.flush(ctx, conversationID, true)

	return result, nil
}

// EndSession force-flushes and discards a conversation's buffer. Call it
// when an interactive attachment to the conversation ends.
func (c *Client[TTx]) EndSession(ctx context.Context, conversationID string) error {
	if _, err := c.buffers.Flush(ctx, conversationID, true); err != nil {
		return err
	}
	c.buffers.Drop(conversationID)
	return nil
}

// ListConversations returns the user's conversations with message counts,
// newest first. A non-positive limit takes the configured default.
func (c *Client[TTx]) ListConversations(ctx context.Context, userID string, limit int) ([]*storage.ConversationSummary, error) {
	if limit <= 0 {
		limit = c.config.ConversationListLimit
	}
	out, err := c.store.ListConversations(ctx, userID, limit)
	if err != nil {
		return nil, NewChatError("list_conversations", err)
	}
	return out, nil
}

// ListMessages returns a conversation's persisted messages oldest first.
// Turns still sitting in the buffer are not included. A non-positive limit
// takes the configured default.
func (c *Client[TTx]) ListMessages(ctx context.Context, conversationID string, limit int) ([]*storage.MessageRecord, error) {
	if limit <= 0 {
		limit = c.config.MessageListLimit
	}
	out, err := c.store.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, NewChatErrorWithConversation("list_messages", conversationID, err)
	}
	return out, nil
}

// GetConversation retrieves a conversation by ID.
func (c *Client[TTx]) GetConversation(ctx context.Context, conversationID string) (*storage.Conversation, error) {
	conv, err := c.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, NewChatErrorWithConversation("get_conversation", conversationID, err)
	}
	return conv, nil
}

// Store returns the underlying storage interface.
func (c *Client[TTx]) Store() storage.Store {
	return c.store
}

// Driver returns the underlying database driver.
func (c *Client[TTx]) Driver() driver.Driver[TTx] {
	return c.driver
}

// Buffers exposes the buffer registry, mainly for inspection in tests and
// operational tooling.
func (c *Client[TTx]) Buffers() *BufferRegistry {
	return c.buffers
}
