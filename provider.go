package chatpg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Provider produces assistant replies from a conversation transcript.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Complete sends the transcript to the model and returns the reply
	// text. The system prompt may be empty.
	Complete(ctx context.Context, system string, transcript []TranscriptTurn) (string, error)
}

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// NewAnthropicProvider creates a provider with the given Anthropic client
// and model configuration. A timeout of zero disables the per-call deadline.
func NewAnthropicProvider(client *anthropic.Client, model string, maxTokens int, timeout time.Duration) *AnthropicProvider {
	return &AnthropicProvider{
		client:    client,
		model:     model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Complete sends the transcript to the Anthropic API and returns the reply
// text.
func (p *AnthropicProvider) Complete(ctx context.Context, system string, transcript []TranscriptTurn) (string, error) {
	if len(transcript) == 0 {
		return "", fmt.Errorf("%w: empty transcript", ErrProviderFailure)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages:  buildMessages(transcript),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	var reply strings.Builder
	for _, block := range message.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			reply.WriteString(text.Text)
		}
	}

	if reply.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from model", ErrProviderFailure)
	}

	return reply.String(), nil
}

func buildMessages(transcript []TranscriptTurn) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(transcript))
	for _, turn := range transcript {
		role := anthropic.MessageParamRoleUser
		if turn.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(turn.Text)},
		})
	}
	return messages
}

var _ Provider = (*AnthropicProvider)(nil)
