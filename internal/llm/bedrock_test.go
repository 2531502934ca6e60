package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type mockConverse struct {
	input *bedrockruntime.ConverseInput
	out   *bedrockruntime.ConverseOutput
	err   error
}

func (m *mockConverse) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	m.input = params
	return m.out, m.err
}

func textOutput(text string) *bedrockruntime.ConverseOutput {
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "  " + text + " "}},
		}},
		Usage: &brtypes.TokenUsage{InputTokens: aws.Int32(10), OutputTokens: aws.Int32(4), TotalTokens: aws.Int32(14)},
	}
}

func TestBedrockClient_MapsSystemMessagesAndMergesRoles(t *testing.T) {
	api := &mockConverse{out: textOutput("Why were you able to accomplish this goal?")}
	client := NewBedrockClient(api, "anthropic.claude-3-haiku")

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You are a reflective coach."},
			{Role: RoleUser, Content: "Yes"},
			{Role: RoleUser, Content: "I did it"},
			{Role: RoleAssistant, Content: "Great"},
		},
		MaxTokens:   150,
		Temperature: 0.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "Why were you able to accomplish this goal?" {
		t.Fatalf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 14 {
		t.Fatalf("expected usage to be mapped, got %+v", resp.Usage)
	}
	if got := aws.ToString(api.input.ModelId); got != "anthropic.claude-3-haiku" {
		t.Fatalf("expected default model id, got %q", got)
	}
	if len(api.input.System) != 1 {
		t.Fatalf("expected system message to become a system block, got %d", len(api.input.System))
	}
	if len(api.input.Messages) != 2 {
		t.Fatalf("expected consecutive user turns to be merged, got %d messages", len(api.input.Messages))
	}
	if len(api.input.Messages[0].Content) != 2 {
		t.Fatalf("expected merged user message to carry two blocks, got %d", len(api.input.Messages[0].Content))
	}
}

func TestBedrockClient_Errors(t *testing.T) {
	client := NewBedrockClient(&mockConverse{err: errors.New("throttled")}, "model")
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected transport error")
	}

	client = NewBedrockClient(&mockConverse{out: textOutput("ok")}, "")
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err == nil {
		t.Fatal("expected missing model error")
	}

	client = NewBedrockClient(&mockConverse{out: textOutput("ok")}, "model")
	if _, err := client.Complete(context.Background(), Request{Messages: []Message{{Role: "tool", Content: "hi"}}}); err == nil {
		t.Fatal("expected unsupported role error")
	}
}

func TestBedrockExtractOutputText_Empty(t *testing.T) {
	out := &bedrockruntime.ConverseOutput{Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{}}}
	if _, err := bedrockExtractOutputText(out); err == nil {
		t.Fatal("expected error for empty content")
	}
	if _, err := bedrockExtractOutputText(nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}
