package llm

import (
	"context"
	"strings"
)

// StubClient answers without a provider. Extraction-style prompts get an
// empty JSON object so callers exercise their fallbacks; everything else is
// echoed back. Used for LLM_PROVIDER=stub local runs.
type StubClient struct{}

func (StubClient) Complete(_ context.Context, req Request) (Response, error) {
	last := ""
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			last = req.Messages[i].Content
			break
		}
	}
	if strings.Contains(strings.ToLower(strings.Join(systemTexts(req), " ")), "json") {
		return Response{Text: "{}"}, nil
	}
	return Response{Text: "Thanks for sharing. (stub reply to: " + last + ")"}, nil
}

func systemTexts(req Request) []string {
	out := append([]string(nil), req.System...)
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			out = append(out, msg.Content)
		}
	}
	return out
}
