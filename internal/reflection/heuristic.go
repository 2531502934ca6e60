package reflection

import (
	"context"
	"regexp"
	"strings"
)

// timingPattern finds the first timing phrase in a goal answer.
var timingPattern = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow|this (?:morning|afternoon|evening|week(?:end)?)|next (?:week|month|monday|tuesday|wednesday|thursday|friday|saturday|sunday)|sometime next week|(?:on )?(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday)|in \d+ (?:days?|weeks?|hours?)|at \d{1,2}(?::\d{2})? ?(?:am|pm)?|at (?:noon|midnight))\b`)

// HeuristicInferencer rebuilds the SlotState by matching the coach's own
// question phrasings, without calling the oracle. A user message counts as the
// answer to the scripted question immediately before it.
type HeuristicInferencer struct{}

func (HeuristicInferencer) Infer(_ context.Context, transcript []Message) SlotState {
	state := SlotState{
		NextGoalText:              NotSpecified,
		NextGoalTiming:            NotSpecified,
		LastSignificantPromptType: PromptNone,
	}

	pending := PromptNone
	for _, msg := range transcript {
		switch msg.Role {
		case RoleAssistant:
			prompt := ClassifyPrompt(msg.Content)
			// Unscripted coach messages (follow-ups such as "When will you
			// do it?") leave the last scripted prompt open.
			if prompt == PromptNone {
				continue
			}
			pending = prompt
			state.LastSignificantPromptType = prompt
			if prompt == PromptConcludedSession {
				state.ConversationConcluded = true
			}
		case RoleUser:
			switch pending {
			case PromptAskedInitial:
				state.OutcomeProvided = true
			case PromptAskedWhy:
				state.WhyProvided = true
			case PromptAskedNextGoal:
				applyGoalAnswer(&state, msg.Content)
			}
		}
	}
	return state
}

func applyGoalAnswer(state *SlotState, answer string) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return
	}
	loc := timingPattern.FindStringIndex(answer)

	if !state.NextGoalProvided {
		state.NextGoalProvided = true
		state.NextGoalText = answer
		if loc != nil {
			if goal := trimClause(answer[:loc[0]]); goal != "" {
				state.NextGoalText = goal
			}
		}
	}
	if !state.NextGoalTimingProvided && loc != nil {
		state.NextGoalTimingProvided = true
		state.NextGoalTiming = trimClause(answer[loc[0]:])
	}
}

func trimClause(s string) string {
	return strings.Trim(strings.TrimSpace(s), ".,!?;: ")
}
