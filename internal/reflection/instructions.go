package reflection

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// InstructionKey names one system directive in the instruction table.
type InstructionKey string

const (
	InstructionRequestOutcome  InstructionKey = "REQUEST_OUTCOME"
	InstructionRequestWhy      InstructionKey = "REQUEST_WHY"
	InstructionClarifyWhy      InstructionKey = "CLARIFY_WHY"
	InstructionRequestNextGoal InstructionKey = "REQUEST_NEXT_GOAL"
	InstructionClarifyNextGoal InstructionKey = "CLARIFY_NEXT_GOAL"
	InstructionRequestTiming   InstructionKey = "REQUEST_TIMING"
	InstructionRequestConclude InstructionKey = "REQUEST_CONCLUDE"
	InstructionPostConclusion  InstructionKey = "POST_CONCLUSION"
	InstructionGeneral         InstructionKey = "GENERAL"
)

var instructionKeys = []InstructionKey{
	InstructionRequestOutcome,
	InstructionRequestWhy,
	InstructionClarifyWhy,
	InstructionRequestNextGoal,
	InstructionClarifyNextGoal,
	InstructionRequestTiming,
	InstructionRequestConclude,
	InstructionPostConclusion,
	InstructionGeneral,
}

// goalPlaceholder is replaced with the captured goal text in REQUEST_TIMING.
const goalPlaceholder = "{{goal}}"

const coachRole = "You are a reflective coach"

// Instructions maps each key to the system directive sent with the reply
// request. Resolvers copy the table at construction and never write to it.
type Instructions map[InstructionKey]string

// DefaultInstructions returns a fresh copy of the built-in table.
func DefaultInstructions() Instructions {
	return Instructions{
		InstructionRequestOutcome: coachRole + ". We still need to know whether the user accomplished their previous goal. " +
			"If their latest message clearly says whether they did, acknowledge it in one short sentence and ask exactly: '" + WhyQuestion + "' " +
			"If it does not, ask them to clarify with exactly: '" + InitialQuestion + "' Be direct.",
		InstructionRequestWhy: coachRole + ". User shared their outcome. Ask exactly: '" + WhyQuestion + "' Be direct.",
		InstructionClarifyWhy: coachRole + ". You already asked why the outcome happened. " +
			"If the user's latest message gives a reason, briefly acknowledge it and ask exactly: '" + NextGoalQuestion + "' " +
			"If it does not, gently ask again with exactly: '" + WhyQuestion + "' Be direct.",
		InstructionRequestNextGoal: coachRole + ". User shared their reasons or indicated uncertainty. " +
			"Briefly acknowledge, then ask exactly: '" + NextGoalQuestion + "' Be direct.",
		InstructionClarifyNextGoal: coachRole + ". You already asked for the user's next goal. " +
			"If their latest message names both a concrete goal and when they will do it, respond only: '" + ConclusionStatement + "' " +
			"If it names the goal but not when, ask when they will do it. " +
			"Otherwise ask again with exactly: '" + NextGoalQuestion + "' Be direct.",
		InstructionRequestTiming: coachRole + ". The user's next goal is \"" + goalPlaceholder + "\" but they have not said when. " +
			"If their latest message says when, respond only: '" + ConclusionStatement + "' " +
			"Otherwise ask exactly: 'When will you " + goalPlaceholder + "?' Be direct.",
		InstructionRequestConclude: coachRole + ". User shared their next goal and when they will do it. Respond only: '" + ConclusionStatement + "'",
		InstructionPostConclusion:  coachRole + ". The reflection has ended. Answer briefly, do not restart the reflection, and ask how else you can help.",
		InstructionGeneral:         coachRole + ". Let's continue your reflection.",
	}
}

func (in Instructions) clone() Instructions {
	out := make(Instructions, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Validate reports missing or unknown keys.
func (in Instructions) Validate() error {
	known := make(map[InstructionKey]struct{}, len(instructionKeys))
	for _, key := range instructionKeys {
		known[key] = struct{}{}
		if strings.TrimSpace(in[key]) == "" {
			return fmt.Errorf("reflection: instruction %s is empty", key)
		}
	}
	for key := range in {
		if _, ok := known[key]; !ok {
			return fmt.Errorf("reflection: unknown instruction key %q", key)
		}
	}
	if !strings.Contains(in[InstructionRequestTiming], goalPlaceholder) {
		return fmt.Errorf("reflection: %s must reference %s", InstructionRequestTiming, goalPlaceholder)
	}
	return nil
}

// LoadInstructions overlays YAML overrides (key: text) on the defaults.
// An empty path returns the defaults.
func LoadInstructions(path string) (Instructions, error) {
	table := DefaultInstructions()
	if strings.TrimSpace(path) == "" {
		return table, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reflection: read instructions: %w", err)
	}
	return overlayInstructions(table, data)
}

func overlayInstructions(table Instructions, data []byte) (Instructions, error) {
	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("reflection: parse instructions: %w", err)
	}
	for k, v := range overrides {
		table[InstructionKey(strings.ToUpper(strings.TrimSpace(k)))] = v
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}
