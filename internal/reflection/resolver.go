package reflection

import "strings"

// Stage is the named point of the reflection script the conversation is in.
type Stage string

const (
	StageAwaitingInitial    Stage = "AWAITING_INITIAL"
	StageAwaitingWhy        Stage = "AWAITING_WHY"
	StageAwaitingNextGoal   Stage = "AWAITING_NEXT_GOAL"
	StageAwaitingConclusion Stage = "AWAITING_CONCLUSION"
	StageConcluded          Stage = "CONCLUDED"
	StageError              Stage = "ERROR"
	StageGeneral            Stage = "GENERAL"
)

// Stages lists every declared stage.
var Stages = []Stage{
	StageAwaitingInitial,
	StageAwaitingWhy,
	StageAwaitingNextGoal,
	StageAwaitingConclusion,
	StageConcluded,
	StageError,
	StageGeneral,
}

// StageDecision is what the resolver tells the orchestrator to do next.
type StageDecision struct {
	InstructionKey            InstructionKey
	InstructionText           string
	Stage                     Stage
	Collected                 CollectedInfo
	LastSignificantPromptType PromptType
}

// Resolver maps a SlotState to the next instruction. It holds only its
// private copy of the instruction table, so Resolve is pure.
type Resolver struct {
	instructions Instructions
}

// NewResolver copies the table; nil means DefaultInstructions.
func NewResolver(instructions Instructions) *Resolver {
	if instructions == nil {
		instructions = DefaultInstructions()
	}
	return &Resolver{instructions: instructions.clone()}
}

// Resolve applies the script in order; the first matching rule wins.
func (r *Resolver) Resolve(state SlotState) StageDecision {
	last := state.LastSignificantPromptType
	switch {
	case state.Failed:
		return r.decide(InstructionGeneral, StageError, state)
	case state.ConversationConcluded:
		return r.decide(InstructionPostConclusion, StageConcluded, state)
	case !state.OutcomeProvided:
		// Asking for the first time and clarifying share one wording.
		return r.decide(InstructionRequestOutcome, StageAwaitingInitial, state)
	case !state.WhyProvided:
		if last == PromptAskedWhy {
			return r.decide(InstructionClarifyWhy, StageAwaitingWhy, state)
		}
		return r.decide(InstructionRequestWhy, StageAwaitingWhy, state)
	case !state.NextGoalProvided:
		if last == PromptAskedNextGoal {
			return r.decide(InstructionClarifyNextGoal, StageAwaitingNextGoal, state)
		}
		return r.decide(InstructionRequestNextGoal, StageAwaitingNextGoal, state)
	case !state.NextGoalTimingProvided:
		if last == PromptAskedNextGoal && IsConcrete(state.NextGoalText) {
			d := r.decide(InstructionRequestTiming, StageAwaitingNextGoal, state)
			d.InstructionText = strings.ReplaceAll(d.InstructionText, goalPlaceholder, strings.TrimSpace(state.NextGoalText))
			return d
		}
		return r.decide(InstructionClarifyNextGoal, StageAwaitingNextGoal, state)
	default:
		return r.decide(InstructionRequestConclude, StageAwaitingConclusion, state)
	}
}

// Instruction returns the table entry for key.
func (r *Resolver) Instruction(key InstructionKey) string {
	return r.instructions[key]
}

func (r *Resolver) decide(key InstructionKey, stage Stage, state SlotState) StageDecision {
	return StageDecision{
		InstructionKey:            key,
		InstructionText:           r.instructions[key],
		Stage:                     stage,
		Collected:                 state.Collected(),
		LastSignificantPromptType: state.LastSignificantPromptType,
	}
}
