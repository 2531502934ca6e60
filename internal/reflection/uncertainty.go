package reflection

import "strings"

var uncertaintyPhrases = []string{
	"i am not sure",
	"i don't know",
	"not sure",
	"unsure",
	"no idea",
}

// ExpressesUncertainty reports whether message contains one of the fixed
// uncertainty phrases, ignoring case.
func ExpressesUncertainty(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// ApplyUncertaintyOverride accepts "I don't know" as a final answer to the
// why question: the decision jumps to the next-goal request and the why slot
// is reported as provided. Any other stage is returned unchanged.
func (r *Resolver) ApplyUncertaintyOverride(d StageDecision, currentMessage string) (StageDecision, bool) {
	if d.Stage != StageAwaitingWhy || !ExpressesUncertainty(currentMessage) {
		return d, false
	}
	d.InstructionKey = InstructionRequestNextGoal
	d.InstructionText = r.instructions[InstructionRequestNextGoal]
	d.Stage = StageAwaitingNextGoal
	d.Collected.WhyProvided = true
	return d, true
}
