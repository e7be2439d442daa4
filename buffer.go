package chatpg

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chatpg/chatpg/storage"
)

// FlushResult describes one buffer flush to the store.
type FlushResult struct {
	ConversationID string
	Turns          int
	CostDelta      int
	Forced         bool
	Duration       time.Duration
}

// bufferEntry holds the unsaved turns of one conversation. The entry mutex
// serializes appends and flushes for that conversation only.
type bufferEntry struct {
	mu           sync.Mutex
	pending      []*Turn
	pendingCost  int
	lastFlushAt  time.Time
	lastAppendAt time.Time
}

// BufferRegistry is a write-back buffer for conversation turns, keyed by
// conversation ID. Turns accumulate in memory and are persisted in batches,
// either when the flush interval has elapsed or when a flush is forced.
//
// Operations on different conversations never block each other; the
// registry-level lock is held only for entry lookup and insertion.
type BufferRegistry struct {
	mu      sync.RWMutex
	entries map[string]*bufferEntry

	store    storage.Store
	interval time.Duration

	// now is overridable in tests
	now func() time.Time
}

// NewBufferRegistry creates a buffer registry that persists through store
// and considers a conversation due for a timed flush once interval has
// elapsed since its last flush.
func NewBufferRegistry(store storage.Store, interval time.Duration) *BufferRegistry {
	return &BufferRegistry{
		entries:  make(map[string]*bufferEntry),
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// entry returns the buffer entry for a conversation, creating it if needed.
func (r *BufferRegistry) entry(conversationID string) *bufferEntry {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok = r.entries[conversationID]; ok {
		return e
	}
	e = &bufferEntry{}
	r.entries[conversationID] = e
	return e
}

// flushDue reports whether the conversation is due for a timed flush: it has
// never been flushed, or the flush interval has elapsed since the last one.
// Callers hold e.mu.
func (r *BufferRegistry) flushDue(e *bufferEntry) bool {
	return e.lastFlushAt.IsZero() || r.now().Sub(e.lastFlushAt) >= r.interval
}

// ShouldFlush reports whether the conversation is due for a timed flush:
// it has never been flushed, or the flush interval has elapsed since the
// last one. The predicate is purely about the timestamp; whether there is
// anything to write is Flush's concern.
func (r *BufferRegistry) ShouldFlush(conversationID string) bool {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if !ok {
		return true
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return r.flushDue(e)
}

// Append adds a turn to the conversation's buffer and returns the pending
// turn count and pending cost after the append.
func (r *BufferRegistry) Append(conversationID string, turn *Turn) (int, int) {
	e := r.entry(conversationID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pending = append(e.pending, turn)
	e.pendingCost += turn.Cost
	e.lastAppendAt = r.now()
	return len(e.pending), e.pendingCost
}

// PendingLen returns the number of unsaved turns for a conversation.
func (r *BufferRegistry) PendingLen(conversationID string) int {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// PendingCost returns the total estimated cost of unsaved turns for a
// conversation.
func (r *BufferRegistry) PendingCost(conversationID string) int {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if !ok {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingCost
}

// PendingTranscript returns copies of the unsaved turns for a conversation,
// oldest first, for transcript assembly.
func (r *BufferRegistry) PendingTranscript(conversationID string) []TranscriptTurn {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	transcript := make([]TranscriptTurn, 0, len(e.pending))
	for _, turn := range e.pending {
		transcript = append(transcript, TranscriptTurn{Role: turn.Role, Text: turn.Text})
	}
	return transcript
}

// Flush persists the conversation's pending turns and clears the buffer.
// Without force, the flush is skipped unless the flush interval has elapsed.
// Returns nil when nothing was flushed.
//
// On store failure the buffer is left intact so a later flush can retry.
//
// The entry mutex is held across the store write, so a concurrent Append to
// the same conversation waits for the write to finish. Appends to other
// conversations are unaffected. Conversations are driven by one pipeline run
// at a time, so in practice nothing contends.
func (r *BufferRegistry) Flush(ctx context.Context, conversationID string, force bool) (*FlushResult, error) {
	r.mu.RLock()
	e, ok := r.entries[conversationID]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.pending) == 0 {
		return nil, nil
	}
	if !force && !r.flushDue(e) {
		return nil, nil
	}

	start := r.now()
	records := make([]*storage.TurnRecord, 0, len(e.pending))
	for _, turn := range e.pending {
		records = append(records, turn.Record())
	}

	if err := r.store.AppendTurnsAndBumpTotal(ctx, conversationID, records, e.pendingCost); err != nil {
		return nil, NewChatErrorWithConversation("flush", conversationID, fmt.Errorf("%w: %v", ErrFlushFailed, err))
	}

	result := &FlushResult{
		ConversationID: conversationID,
		Turns:          len(e.pending),
		CostDelta:      e.pendingCost,
		Forced:         force,
		Duration:       r.now().Sub(start),
	}

	e.pending = nil
	e.pendingCost = 0
	e.lastFlushAt = r.now()
	return result, nil
}

// FlushIdle force-flushes every conversation whose buffer has pending turns
// and has not seen an append for at least idleFor. The first flush error is
// returned after all candidates have been attempted.
func (r *BufferRegistry) FlushIdle(ctx context.Context, idleFor time.Duration) ([]*FlushResult, error) {
	r.mu.RLock()
	candidates := make([]string, 0, len(r.entries))
	for id := range r.entries {
		candidates = append(candidates, id)
	}
	r.mu.RUnlock()

	horizon := r.now().Add(-idleFor)

	var results []*FlushResult
	var firstErr error
	for _, id := range candidates {
		r.mu.RLock()
		e, ok := r.entries[id]
		r.mu.RUnlock()
		if !ok {
			continue
		}

		e.mu.Lock()
		idle := len(e.pending) > 0 && e.lastAppendAt.Before(horizon)
		e.mu.Unlock()
		if !idle {
			continue
		}

		result, err := r.Flush(ctx, id, true)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	return results, firstErr
}

// FlushAll force-flushes every conversation with pending turns. The first
// flush error is returned after all conversations have been attempted.
func (r *BufferRegistry) FlushAll(ctx context.Context) ([]*FlushResult, error) {
	r.mu.RLock()
	candidates := make([]string, 0, len(r.entries))
	for id := range r.entries {
		candidates = append(candidates, id)
	}
	r.mu.RUnlock()

	var results []*FlushResult
	var firstErr error
	for _, id := range candidates {
		result, err := r.Flush(ctx, id, true)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if result != nil {
			results = append(results, result)
		}
	}

	return results, firstErr
}

// Drop removes a conversation's buffer entry. Pending turns are discarded;
// callers flush first.
func (r *BufferRegistry) Drop(conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, conversationID)
}

// Len returns the number of conversations with a buffer entry.
func (r *BufferRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
