package reflection

import (
	"context"
	"strings"

	"github.com/wolfman30/reflection-coach/internal/llm"
)

// Oracle call purposes, carried in the context for metrics and tracing.
const (
	PurposeExtraction  = "extraction"
	PurposeReply       = "reply"
	PurposeNormalize   = "normalize"
	PurposeSchedule    = "schedule"
	PurposePassthrough = "passthrough"
)

// CallOptions are the per-call oracle options.
type CallOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
	MaxTokens   int32   `json:"maxTokens,omitempty"`
}

// Options groups call options by purpose.
type Options struct {
	Extraction CallOptions
	Reply      CallOptions
	Normalize  CallOptions
	Schedule   CallOptions
}

func DefaultOptions() Options {
	return Options{
		Extraction: CallOptions{Temperature: 0, MaxTokens: 300},
		Reply:      CallOptions{Temperature: 0.7, MaxTokens: 150},
		Normalize:  CallOptions{Temperature: 0, MaxTokens: 120},
		Schedule:   CallOptions{Temperature: 0, MaxTokens: 120},
	}
}

// ask issues one oracle request: the component's instruction goes first as a
// system message, then the prior transcript, then userContent as the newest
// user turn (omitted when blank).
func ask(ctx context.Context, client llm.Client, purpose, instruction string, prior []Message, userContent string, opts CallOptions) (llm.Response, error) {
	messages := make([]Message, 0, len(prior)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: instruction})
	messages = append(messages, prior...)
	if strings.TrimSpace(userContent) != "" {
		messages = append(messages, Message{Role: RoleUser, Content: userContent})
	}
	return client.Complete(llm.WithPurpose(ctx, purpose), llm.Request{
		Model:       opts.Model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	})
}
