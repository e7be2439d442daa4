package chatpg

import "time"

// Budget holds the process-wide session limits. It is constructed once at
// client start and read-only afterwards.
type Budget struct {
	// MaxTokens is the token budget per conversation, derived as the
	// model's context window size times a multiplier.
	MaxTokens int

	// FlushInterval is the minimum time between timer-gated flushes of a
	// conversation's buffered turns.
	FlushInterval time.Duration

	// IdleSessionInterval is how long a conversation's buffer may sit idle
	// before the sweeper force-flushes it.
	IdleSessionInterval time.Duration
}

// NewBudget derives a Budget from the model context window and multiplier.
func NewBudget(contextWindow, multiplier int, flushInterval, idleInterval time.Duration) Budget {
	return Budget{
		MaxTokens:           contextWindow * multiplier,
		FlushInterval:       flushInterval,
		IdleSessionInterval: idleInterval,
	}
}

// Allows reports whether a conversation with the given accumulated token
// total may accept another turn. It returns false iff tokenTotal has reached
// MaxTokens.
//
// The total passed here is the stored one; cost buffered but not yet flushed
// is not reflected, so a conversation can exceed its budget by up to one
// unflushed batch before the gate notices. That bounded overrun is accepted.
func (b Budget) Allows(tokenTotal int) bool {
	return tokenTotal < b.MaxTokens
}
