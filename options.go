package chatpg

import (
	"time"

	"github.com/chatpg/chatpg/hooks"
)

// Option is a functional option for configuring a Client
type Option func(*ClientConfig) error

// WithProvider overrides the completion provider. Takes precedence over
// any configured Anthropic client or API key.
func WithProvider(p Provider) Option {
	return func(c *ClientConfig) error {
		c.Provider = p
		return nil
	}
}

// WithModel sets the model ID to use for completions
func WithModel(model string) Option {
	return func(c *ClientConfig) error {
		c.Model = model
		return nil
	}
}

// WithMaxModelTokens sets the per-reply generation ceiling
func WithMaxModelTokens(n int) Option {
	return func(c *ClientConfig) error {
		c.MaxModelTokens = n
		return nil
	}
}

// WithContextMultiplier sets the budget multiplier applied to the model
// window
func WithContextMultiplier(n int) Option {
	return func(c *ClientConfig) error {
		c.ContextMultiplier = n
		return nil
	}
}

// WithFlushInterval sets the minimum time between timer-gated flushes
func WithFlushInterval(d time.Duration) Option {
	return func(c *ClientConfig) error {
		c.FlushInterval = d
		return nil
	}
}

// WithIdleSessionInterval sets how long a buffer may sit idle before the
// sweeper force-flushes it
func WithIdleSessionInterval(d time.Duration) Option {
	return func(c *ClientConfig) error {
		c.IdleSessionInterval = d
		return nil
	}
}

// WithSweepInterval sets how often the sweeper scans for idle buffers
func WithSweepInterval(d time.Duration) Option {
	return func(c *ClientConfig) error {
		c.SweepInterval = d
		return nil
	}
}

// WithProviderTimeout bounds each completion call
func WithProviderTimeout(d time.Duration) Option {
	return func(c *ClientConfig) error {
		c.ProviderTimeout = d
		return nil
	}
}

// WithConversationLookback sets how many recent conversations the router
// inspects when resolving a topic hint
func WithConversationLookback(n int) Option {
	return func(c *ClientConfig) error {
		c.ConversationLookback = n
		return nil
	}
}

// WithSystemPreamble sets the system prompt sent with a conversation's
// first turn
func WithSystemPreamble(preamble string) Option {
	return func(c *ClientConfig) error {
		c.SystemPreamble = preamble
		return nil
	}
}

// WithHooks sets the hook registry receiving lifecycle callbacks
func WithHooks(registry *hooks.Registry) Option {
	return func(c *ClientConfig) error {
		c.Hooks = registry
		return nil
	}
}

// WithOnError sets the callback for background errors
func WithOnError(fn func(error)) Option {
	return func(c *ClientConfig) error {
		c.OnError = fn
		return nil
	}
}
