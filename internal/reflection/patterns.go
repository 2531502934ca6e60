package reflection

import "strings"

// Fixed phrasings the coach uses when it asks each scripted question. The
// instruction table tells the oracle to use them verbatim, which is what lets
// the matchers below recognise our own questions in a transcript.
const (
	PhraseGoalWas       = "your goal was"
	PhraseAbleToDoIt    = "were you able to do it?"
	PhraseWhyAble       = "Why were you able to accomplish this goal"
	PhraseWhyNotAble    = "why were you NOT able to accomplish this goal?"
	PhraseNextGoal      = "What's your goal for tomorrow?"
	PhraseGoodLuck      = "Good luck."
	PhraseEndReflection = "This is the end of this reflection."
)

// Canonical questions built from the phrasings.
const (
	InitialQuestion     = "Thinking back on what " + PhraseGoalWas + ", " + PhraseAbleToDoIt
	WhyQuestion         = PhraseWhyAble + ", or " + PhraseWhyNotAble
	NextGoalQuestion    = PhraseNextGoal + " And when will you do it?"
	ConclusionStatement = PhraseGoodLuck + " " + PhraseEndReflection
)

func IsInitialQuery(text string) bool {
	return text != "" && strings.Contains(text, PhraseGoalWas) && strings.Contains(text, PhraseAbleToDoIt)
}

func IsWhyQuery(text string) bool {
	return text != "" && (strings.Contains(text, PhraseWhyAble) || strings.Contains(text, PhraseWhyNotAble))
}

func IsNextGoalQuery(text string) bool {
	return text != "" && strings.Contains(text, PhraseNextGoal)
}

func IsConclusion(text string) bool {
	return text != "" && strings.Contains(text, PhraseGoodLuck) && strings.Contains(text, PhraseEndReflection)
}

// ClassifyPrompt maps an assistant message to the scripted prompt it carries.
// Conclusion wins over questions because a closing message may quote the goal
// question back to the user.
func ClassifyPrompt(text string) PromptType {
	switch {
	case IsConclusion(text):
		return PromptConcludedSession
	case IsNextGoalQuery(text):
		return PromptAskedNextGoal
	case IsWhyQuery(text):
		return PromptAskedWhy
	case IsInitialQuery(text):
		return PromptAskedInitial
	default:
		return PromptNone
	}
}
