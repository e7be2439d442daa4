package chatpg

import (
	"context"
	"errors"
	"time"

	"github.com/chatpg/chatpg/hooks"
	"github.com/chatpg/chatpg/storage"
	"github.com/chatpg/chatpg/turnstate"
)

// TurnResult is the outcome of one pipeline run.
type TurnResult struct {
	ConversationID string
	SessionRunID   string
	Reply          string
	State          turnstate.State
	Verdict        turnstate.Verdict

	// Cost is the estimated token cost this run added to the buffer.
	Cost int

	// TokenTotal is the stored total the budget gate observed. Turns
	// flushed by other runs after that read are not included.
	TokenTotal int
}

// turnState carries one user turn through the pipeline.
type turnState struct {
	conversationID string
	sessionRunID   string
	userID         string
	userText       string

	state      turnstate.State
	verdict    turnstate.Verdict
	tokenTotal int
	transcript []TranscriptTurn
	reply      string
	runCost    int
}

func (s *turnState) result() *TurnResult {
	return &TurnResult{
		ConversationID: s.conversationID,
		SessionRunID:   s.sessionRunID,
		Reply:          s.reply,
		State:          s.state,
		Verdict:        s.verdict,
		Cost:           s.runCost,
		TokenTotal:     s.tokenTotal,
	}
}

// pipeline drives a user turn through budget validation, reply generation,
// buffering and the timer-gated auto flush.
type pipeline struct {
	store    storage.Store
	buffers  *BufferRegistry
	provider Provider
	budget   Budget
	hooks    *hooks.Registry
	preamble string
	msgLimit int
	onError  func(error)
}

// run executes the pipeline for one user turn. storedTotal is the
// conversation's persisted token total as observed by the caller; turns
// still sitting in other sessions' buffers are not counted. That staleness
// window is accepted: totals only move forward, so a conversation is blocked
// at most a few turns late, never early.
func (p *pipeline) run(ctx context.Context, conversationID, sessionRunID, userID, userText string, storedTotal int) (*TurnResult, error) {
	s := &turnState{
		conversationID: conversationID,
		sessionRunID:   sessionRunID,
		userID:         userID,
		userText:       userText,
		state:          turnstate.StateValidatingBudget,
		verdict:        turnstate.VerdictContinue,
		tokenTotal:     storedTotal,
	}

	if !p.budget.Allows(s.tokenTotal) {
		return p.block(ctx, s)
	}

	s.state = turnstate.StateGenerating
	if err := p.buildTranscript(ctx, s); err != nil {
		return nil, err
	}
	p.generate(ctx, s)

	s.state = turnstate.StateBuffering
	p.buffer(ctx, s)

	s.state = turnstate.StateAutoFlushing
	p.autoFlush(ctx, s)

	s.state = turnstate.StateDone
	return s.result(), nil
}

// block handles the over-budget path: the reply is a fixed notice, the
// verdict is End, and the provider is never called. Nothing is buffered or
// persisted; a conversation at budget is closed to new turns.
func (p *pipeline) block(ctx context.Context, s *turnState) (*TurnResult, error) {
	p.triggerHook(p.hooks.TriggerBudgetExceeded(ctx, &hooks.BudgetInfo{
		ConversationID: s.conversationID,
		TokenTotal:     s.tokenTotal,
		MaxTokens:      p.budget.MaxTokens,
	}))

	s.reply = BudgetExceededNotice
	s.verdict = turnstate.VerdictEnd

	s.state = turnstate.StateBlocked
	return s.result(), nil
}

// buildTranscript assembles persisted history, the conversation's pending
// buffered turns, and the incoming user turn, oldest first.
func (p *pipeline) buildTranscript(ctx context.Context, s *turnState) error {
	records, err := p.store.ListMessages(ctx, s.conversationID, p.msgLimit)
	if err != nil {
		return NewChatErrorWithConversation("load_transcript", s.conversationID, err)
	}

	transcript := make([]TranscriptTurn, 0, len(records)+2)
	for _, rec := range records {
		transcript = append(transcript, TranscriptTurn{Role: Role(rec.Role), Text: rec.Content})
	}
	transcript = append(transcript, p.buffers.PendingTranscript(s.conversationID)...)
	transcript = append(transcript, TranscriptTurn{Role: RoleUser, Text: s.userText})

	s.transcript = transcript
	return nil
}

// generate calls the provider. Failures and timeouts degrade to a fixed
// apology; the turn still completes and the conversation stays open.
func (p *pipeline) generate(ctx context.Context, s *turnState) {
	p.triggerHook(p.hooks.TriggerBeforeComplete(ctx, &hooks.CompletionInfo{
		ConversationID: s.conversationID,
		SessionRunID:   s.sessionRunID,
		TranscriptLen:  len(s.transcript),
	}))

	// Every run handles exactly one user turn, so every completion call is
	// the first of its run and carries the preamble.
	start := time.Now()
	reply, err := p.provider.Complete(ctx, p.preamble, s.transcript)
	if err != nil {
		p.reportError(NewChatErrorWithConversation("generate", s.conversationID, err))
		s.reply = ProviderFailureApology
		return
	}
	s.reply = reply

	p.triggerHook(p.hooks.TriggerAfterComplete(ctx, &hooks.CompletionResult{
		ConversationID: s.conversationID,
		SessionRunID:   s.sessionRunID,
		Reply:          reply,
		Cost:           EstimateCost(reply),
		Duration:       time.Since(start),
	}))
}

// buffer appends the user turn and then the assistant turn.
func (p *pipeline) buffer(ctx context.Context, s *turnState) {
	p.bufferTurn(ctx, s, RoleUser, s.userText)
	p.bufferTurn(ctx, s, RoleAssistant, s.reply)
}

func (p *pipeline) bufferTurn(ctx context.Context, s *turnState, role Role, text string) {
	cost := EstimateCost(text)
	turn := NewTurn(s.conversationID, s.sessionRunID, role, text, cost)
	pendingTurns, pendingCost := p.buffers.Append(s.conversationID, turn)
	s.runCost += cost

	p.triggerHook(p.hooks.TriggerTurnBuffered(ctx, &hooks.TurnInfo{
		ConversationID: s.conversationID,
		Role:           string(role),
		Cost:           cost,
		PendingTurns:   pendingTurns,
		PendingCost:    pendingCost,
	}))
}

// autoFlush runs the timer-gated flush. A skip is normal; a write failure
// keeps the buffer and is reported, never surfaced to the conversation.
func (p *pipeline) autoFlush(ctx context.Context, s *turnState) {
	p.flush(ctx, s.conversationID, false)
}

func (p *pipeline) flush(ctx context.Context, conversationID string, force bool) {
	result, err := p.buffers.Flush(ctx, conversationID, force)
	if err != nil {
		p.reportError(err)
		return
	}
	if result == nil {
		return
	}
	p.triggerHook(p.hooks.TriggerFlush(ctx, &hooks.FlushInfo{
		ConversationID: result.ConversationID,
		Turns:          result.Turns,
		CostDelta:      result.CostDelta,
		Forced:         result.Forced,
		Duration:       result.Duration,
	}))
}

// flushIdle force-flushes every buffer that has seen no append for idleFor,
// firing the flush hook for each drained buffer. The sweeper calls it on a
// timer.
func (p *pipeline) flushIdle(ctx context.Context, idleFor time.Duration) error {
	results, err := p.buffers.FlushIdle(ctx, idleFor)
	for _, result := range results {
		p.triggerHook(p.hooks.TriggerFlush(ctx, &hooks.FlushInfo{
			ConversationID: result.ConversationID,
			Turns:          result.Turns,
			CostDelta:      result.CostDelta,
			Forced:         result.Forced,
			Duration:       result.Duration,
		}))
	}
	return err
}

// triggerHook routes observer errors to the operator channel. Hooks observe
// the pipeline; they cannot fail a user's turn.
func (p *pipeline) triggerHook(err error) {
	p.reportError(err)
}

func (p *pipeline) reportError(err error) {
	if err == nil || p.onError == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	p.onError(err)
}
