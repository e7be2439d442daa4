package chatpg

import (
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/chatpg/chatpg/hooks"
	"github.com/chatpg/chatpg/maintenance"
)

// Defaults applied by NewClient for zero-valued ClientConfig fields.
const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "claude-3-5-haiku-20241022"

	// DefaultMaxModelTokens is the per-reply generation ceiling and the
	// context-window term of the conversation budget.
	DefaultMaxModelTokens = 8000

	// DefaultContextMultiplier scales the model window into the lifetime
	// conversation budget.
	DefaultContextMultiplier = 10

	// DefaultFlushInterval gates the timer-based buffer flush.
	DefaultFlushInterval = 3 * time.Minute

	// DefaultProviderTimeout bounds a single completion call.
	DefaultProviderTimeout = 60 * time.Second

	// DefaultConversationLookback is how many recent conversations the
	// router inspects per resolve.
	DefaultConversationLookback = 5

	// DefaultConversationListLimit caps ListConversations.
	DefaultConversationListLimit = 50

	// DefaultMessageListLimit caps ListMessages and transcript assembly.
	DefaultMessageListLimit = 100

	// DefaultSystemPreamble is the system prompt sent with every
	// completion call.
	DefaultSystemPreamble = "You are a helpful AI assistant. Be concise and helpful in your responses."
)

// ClientConfig holds configuration for the Client. Zero values take the
// package defaults; there is no global configuration.
type ClientConfig struct {
	// APIKey is the Anthropic API key (required unless Client or Provider
	// is set)
	APIKey string

	// Client is an existing Anthropic client (optional, takes precedence
	// over APIKey)
	Client *anthropic.Client

	// Provider overrides the completion provider entirely (optional,
	// takes precedence over Client and APIKey). Used to swap models or
	// inject fakes in tests.
	Provider Provider

	// Model is the model ID to use.
	// Default: DefaultModel
	Model string

	// MaxModelTokens is the generation ceiling per reply and the window
	// term of the budget.
	// Default: 8000
	MaxModelTokens int

	// ContextMultiplier scales MaxModelTokens into the lifetime budget
	// (MaxModelTokens × ContextMultiplier tokens per conversation).
	// Default: 10
	ContextMultiplier int

	// FlushInterval is the minimum time between timer-gated flushes of a
	// conversation's buffer.
	// Default: 3 minutes
	FlushInterval time.Duration

	// IdleSessionInterval is how long a buffer may sit idle before the
	// sweeper force-flushes it.
	// Default: 5 minutes
	IdleSessionInterval time.Duration

	// SweepInterval is how often the sweeper scans for idle buffers.
	// Default: 1 minute
	SweepInterval time.Duration

	// ProviderTimeout bounds each completion call.
	// Default: 60 seconds
	ProviderTimeout time.Duration

	// ConversationLookback is how many recent conversations the router
	// inspects when resolving a topic hint.
	// Default: 5
	ConversationLookback int

	// ConversationListLimit caps ListConversations results.
	// Default: 50
	ConversationListLimit int

	// MessageListLimit caps ListMessages results and the transcript sent
	// to the provider.
	// Default: 100
	MessageListLimit int

	// SystemPreamble is the system prompt sent with every completion
	// call.
	// Default: DefaultSystemPreamble
	SystemPreamble string

	// Hooks receives pipeline lifecycle callbacks (optional).
	Hooks *hooks.Registry

	// OnError is called when background operations fail: flush write
	// failures, sweeper errors, provider failures that degraded to an
	// apology. Never called for a user turn's own error return.
	OnError func(err error)
}

// DefaultClientConfig returns the default client configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Model:                 DefaultModel,
		MaxModelTokens:        DefaultMaxModelTokens,
		ContextMultiplier:     DefaultContextMultiplier,
		FlushInterval:         DefaultFlushInterval,
		IdleSessionInterval:   maintenance.DefaultIdleSessionInterval,
		SweepInterval:         maintenance.DefaultSweepInterval,
		ProviderTimeout:       DefaultProviderTimeout,
		ConversationLookback:  DefaultConversationLookback,
		ConversationListLimit: DefaultConversationListLimit,
		MessageListLimit:      DefaultMessageListLimit,
		SystemPreamble:        DefaultSystemPreamble,
	}
}

// withDefaults fills zero-valued fields with the package defaults.
func (c *ClientConfig) withDefaults() *ClientConfig {
	out := *c
	if out.Model == "" {
		out.Model = DefaultModel
	}
	if out.MaxModelTokens == 0 {
		out.MaxModelTokens = DefaultMaxModelTokens
	}
	if out.ContextMultiplier == 0 {
		out.ContextMultiplier = DefaultContextMultiplier
	}
	if out.FlushInterval == 0 {
		out.FlushInterval = DefaultFlushInterval
	}
	if out.IdleSessionInterval == 0 {
		out.IdleSessionInterval = maintenance.DefaultIdleSessionInterval
	}
	if out.SweepInterval == 0 {
		out.SweepInterval = maintenance.DefaultSweepInterval
	}
	if out.ProviderTimeout == 0 {
		out.ProviderTimeout = DefaultProviderTimeout
	}
	if out.ConversationLookback == 0 {
		out.ConversationLookback = DefaultConversationLookback
	}
	if out.ConversationListLimit == 0 {
		out.ConversationListLimit = DefaultConversationListLimit
	}
	if out.MessageListLimit == 0 {
		out.MessageListLimit = DefaultMessageListLimit
	}
	if out.SystemPreamble == "" {
		out.SystemPreamble = DefaultSystemPreamble
	}
	if out.Hooks == nil {
		out.Hooks = hooks.NewRegistry()
	}
	return &out
}

// Validate validates the configuration.
func (c *ClientConfig) Validate() error {
	if c.Provider == nil && c.Client == nil && c.APIKey == "" {
		return fmt.Errorf("%w: one of Provider, Client or APIKey is required", ErrInvalidConfig)
	}
	if c.MaxModelTokens < 0 {
		return fmt.Errorf("%w: MaxModelTokens must not be negative", ErrInvalidConfig)
	}
	if c.ContextMultiplier < 0 {
		return fmt.Errorf("%w: ContextMultiplier must not be negative", ErrInvalidConfig)
	}
	return nil
}
