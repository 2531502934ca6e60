package reflection

import (
	"fmt"
	"strings"
)

// GuessOutstandingPrompt scans the transcript backwards for the most recent
// scripted question the coach asked. It is the recovery heuristic used when
// slot inference failed, and never feeds the primary inference path.
func GuessOutstandingPrompt(transcript []Message) PromptType {
	for i := len(transcript) - 1; i >= 0; i-- {
		msg := transcript[i]
		if msg.Role != RoleAssistant {
			continue
		}
		switch {
		case IsNextGoalQuery(msg.Content):
			return PromptAskedNextGoal
		case IsWhyQuery(msg.Content):
			return PromptAskedWhy
		case IsInitialQuery(msg.Content):
			return PromptAskedInitial
		}
	}
	return PromptNone
}

// BuildRecoveryInstruction produces a self-healing directive: acknowledge
// what the user just said, then re-ask the question that most likely is
// still open. With no recognisable question it restarts at the outcome.
func BuildRecoveryInstruction(currentMessage string, transcript []Message) string {
	question := InitialQuestion
	switch GuessOutstandingPrompt(transcript) {
	case PromptAskedNextGoal:
		question = NextGoalQuestion
	case PromptAskedWhy:
		question = WhyQuestion
	}
	return fmt.Sprintf("%s. The user just said: %q. Acknowledge what they said in one short sentence, then ask exactly: '%s' Be direct.",
		coachRole, strings.TrimSpace(currentMessage), question)
}
