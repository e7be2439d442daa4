package hooks

import (
	"context"
	"log"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// BeforeComplete logs before sending a transcript to the provider
func (h *LoggingHooks) BeforeComplete(ctx context.Context, info *CompletionInfo) error {
	h.logger.Printf("[ChatPG] Sending %d transcript turns for conversation %s", info.TranscriptLen, info.ConversationID)
	return nil
}

// AfterComplete logs after receiving a reply
func (h *LoggingHooks) AfterComplete(ctx context.Context, result *CompletionResult) error {
	h.logger.Printf("[ChatPG] Received reply for conversation %s: cost=%d duration=%v",
		result.ConversationID, result.Cost, result.Duration)
	return nil
}

// TurnBuffered logs buffered turns
func (h *LoggingHooks) TurnBuffered(ctx context.Context, info *TurnInfo) error {
	h.logger.Printf("[ChatPG] Buffered %s turn for conversation %s: pending=%d pending_cost=%d",
		info.Role, info.ConversationID, info.PendingTurns, info.PendingCost)
	return nil
}

// Flush logs buffer flushes
func (h *LoggingHooks) Flush(ctx context.Context, info *FlushInfo) error {
	kind := "timed"
	if info.Forced {
		kind = "forced"
	}
	h.logger.Printf("[ChatPG] Flushed %d turns (%s) for conversation %s: cost_delta=%d duration=%v",
		info.Turns, kind, info.ConversationID, info.CostDelta, info.Duration)
	return nil
}

// BudgetExceeded logs budget rejections
func (h *LoggingHooks) BudgetExceeded(ctx context.Context, info *BudgetInfo) error {
	h.logger.Printf("[ChatPG] Conversation %s over budget: total=%d max=%d",
		info.ConversationID, info.TokenTotal, info.MaxTokens)
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// AfterComplete records completion metrics
func (h *MetricsHooks) AfterComplete(ctx context.Context, result *CompletionResult) error {
	h.OnMetric("chat.completion.cost", float64(result.Cost), nil)
	h.OnMetric("chat.completion.duration_ms", float64(result.Duration.Milliseconds()), nil)
	return nil
}

// Flush records flush metrics
func (h *MetricsHooks) Flush(ctx context.Context, info *FlushInfo) error {
	tags := map[string]string{"forced": "false"}
	if info.Forced {
		tags["forced"] = "true"
	}

	h.OnMetric("chat.flush.turns", float64(info.Turns), tags)
	h.OnMetric("chat.flush.cost_delta", float64(info.CostDelta), tags)
	return nil
}

// BudgetExceeded records budget rejections
func (h *MetricsHooks) BudgetExceeded(ctx context.Context, info *BudgetInfo) error {
	h.OnMetric("chat.budget.exceeded", 1, map[string]string{"conversation": info.ConversationID})
	return nil
}
