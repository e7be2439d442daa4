// Package hooks provides lifecycle callbacks for observing chatpg:
// completion calls, buffering, flushes, and budget rejections.
package hooks

import (
	"context"
	"sync"
	"time"
)

// CompletionInfo describes a completion call about to be sent to the model
// provider.
type CompletionInfo struct {
	ConversationID string
	SessionRunID   string
	TranscriptLen  int
}

// CompletionResult describes a finished completion call.
type CompletionResult struct {
	ConversationID string
	SessionRunID   string
	Reply          string
	Cost           int
	Duration       time.Duration
}

// TurnInfo describes a turn that was appended to an in-memory session
// buffer.
type TurnInfo struct {
	ConversationID string
	Role           string
	Cost           int
	PendingTurns   int
	PendingCost    int
}

// FlushInfo describes a buffer flush to the store.
type FlushInfo struct {
	ConversationID string
	Turns          int
	CostDelta      int
	Forced         bool
	Duration       time.Duration
}

// BudgetInfo describes a turn rejected by the token budget gate.
type BudgetInfo struct {
	ConversationID string
	TokenTotal     int
	MaxTokens      int
}

// BeforeCompleteHook is called before sending a transcript to the provider
type BeforeCompleteHook func(ctx context.Context, info *CompletionInfo) error

// AfterCompleteHook is called after receiving a reply from the provider
type AfterCompleteHook func(ctx context.Context, result *CompletionResult) error

// TurnBufferedHook is called when a turn lands in a session buffer
type TurnBufferedHook func(ctx context.Context, info *TurnInfo) error

// FlushHook is called after a buffer flush succeeds
type FlushHook func(ctx context.Context, info *FlushInfo) error

// BudgetExceededHook is called when a conversation hits its token budget
type BudgetExceededHook func(ctx context.Context, info *BudgetInfo) error

// Registry holds all registered hooks
type Registry struct {
	mu             sync.RWMutex
	beforeComplete []BeforeCompleteHook
	afterComplete  []AfterCompleteHook
	turnBuffered   []TurnBufferedHook
	flush          []FlushHook
	budgetExceeded []BudgetExceededHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		beforeComplete: []BeforeCompleteHook{},
		afterComplete:  []AfterCompleteHook{},
		turnBuffered:   []TurnBufferedHook{},
		flush:          []FlushHook{},
		budgetExceeded: []BudgetExceededHook{},
	}
}

// OnBeforeComplete registers a hook to be called before each provider call
func (r *Registry) OnBeforeComplete(hook BeforeCompleteHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeComplete = append(r.beforeComplete, hook)
}

// OnAfterComplete registers a hook to be called after each provider call
func (r *Registry) OnAfterComplete(hook AfterCompleteHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterComplete = append(r.afterComplete, hook)
}

// OnTurnBuffered registers a hook to be called when a turn is buffered
func (r *Registry) OnTurnBuffered(hook TurnBufferedHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turnBuffered = append(r.turnBuffered, hook)
}

// OnFlush registers a hook to be called after each successful flush
func (r *Registry) OnFlush(hook FlushHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flush = append(r.flush, hook)
}

// OnBudgetExceeded registers a hook to be called on budget rejections
func (r *Registry) OnBudgetExceeded(hook BudgetExceededHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.budgetExceeded = append(r.budgetExceeded, hook)
}

// TriggerBeforeComplete calls all registered before-complete hooks
func (r *Registry) TriggerBeforeComplete(ctx context.Context, info *CompletionInfo) error {
	r.mu.RLock()
	hooks := make([]BeforeCompleteHook, len(r.beforeComplete))
	copy(hooks, r.beforeComplete)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterComplete calls all registered after-complete hooks
func (r *Registry) TriggerAfterComplete(ctx context.Context, result *CompletionResult) error {
	r.mu.RLock()
	hooks := make([]AfterCompleteHook, len(r.afterComplete))
	copy(hooks, r.afterComplete)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerTurnBuffered calls all registered turn-buffered hooks
func (r *Registry) TriggerTurnBuffered(ctx context.Context, info *TurnInfo) error {
	r.mu.RLock()
	hooks := make([]TurnBufferedHook, len(r.turnBuffered))
	copy(hooks, r.turnBuffered)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

// TriggerFlush calls all registered flush hooks
func (r *Registry) TriggerFlush(ctx context.Context, info *FlushInfo) error {
	r.mu.RLock()
	hooks := make([]FlushHook, len(r.flush))
	copy(hooks, r.flush)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, info); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBudgetExceeded calls all registered budget-exceeded hooks
func (r *Registry) TriggerBudgetExceeded(ctx context.Context, info *BudgetInfo) error {
	r.mu.RLock()
	hooks := make([]BudgetExceededHook, len(r.budgetExceeded))
	copy(hooks, r.budgetExceeded)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, info); err != nil {
			return err
		}
	}
	return nil
}
