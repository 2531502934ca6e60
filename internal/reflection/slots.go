package reflection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NotSpecified is the text-slot value used when the user has not given one.
const NotSpecified = "not specified"

// PromptType names the last scripted prompt the coach issued.
type PromptType string

const (
	PromptNone             PromptType = "NONE"
	PromptAskedInitial     PromptType = "ASKED_INITIAL"
	PromptAskedWhy         PromptType = "ASKED_WHY"
	PromptAskedNextGoal    PromptType = "ASKED_NEXT_GOAL"
	PromptConcludedSession PromptType = "CONCLUDED_SESSION"
)

func (p PromptType) Valid() bool {
	switch p {
	case PromptNone, PromptAskedInitial, PromptAskedWhy, PromptAskedNextGoal, PromptConcludedSession:
		return true
	}
	return false
}

// SlotState is what the conversation has established so far. It is rebuilt
// from the transcript on every turn.
type SlotState struct {
	OutcomeProvided           bool       `json:"outcomeProvided"`
	WhyProvided               bool       `json:"whyProvided"`
	NextGoalProvided          bool       `json:"nextGoalProvided"`
	NextGoalText              string     `json:"nextGoalText"`
	NextGoalTimingProvided    bool       `json:"nextGoalTimingProvided"`
	NextGoalTiming            string     `json:"nextGoalTiming"`
	ConversationConcluded     bool       `json:"conversationConcluded"`
	LastSignificantPromptType PromptType `json:"lastSignificantPromptType"`
	Failed                    bool       `json:"-"`
}

// FailedSlotState is the canonical result when inference produced nothing usable.
func FailedSlotState() SlotState {
	return SlotState{
		NextGoalText:              NotSpecified,
		NextGoalTiming:            NotSpecified,
		LastSignificantPromptType: PromptNone,
		Failed:                    true,
	}
}

// CollectedInfo is the slice of SlotState reported back to the caller.
type CollectedInfo struct {
	OutcomeProvided        bool   `json:"outcomeProvided" dynamodbav:"outcomeProvided"`
	WhyProvided            bool   `json:"whyProvided" dynamodbav:"whyProvided"`
	NextGoalProvided       bool   `json:"nextGoalProvided" dynamodbav:"nextGoalProvided"`
	NextGoalText           string `json:"nextGoalText" dynamodbav:"nextGoalText"`
	NextGoalTimingProvided bool   `json:"nextGoalTimingProvided" dynamodbav:"nextGoalTimingProvided"`
	NextGoalTiming         string `json:"nextGoalTiming" dynamodbav:"nextGoalTiming"`
	ConversationConcluded  bool   `json:"conversationConcluded" dynamodbav:"conversationConcluded"`
}

func (s SlotState) Collected() CollectedInfo {
	return CollectedInfo{
		OutcomeProvided:        s.OutcomeProvided,
		WhyProvided:            s.WhyProvided,
		NextGoalProvided:       s.NextGoalProvided,
		NextGoalText:           s.NextGoalText,
		NextGoalTimingProvided: s.NextGoalTimingProvided,
		NextGoalTiming:         s.NextGoalTiming,
		ConversationConcluded:  s.ConversationConcluded,
	}
}

// IsConcrete reports whether a text slot carries a real value.
func IsConcrete(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && !strings.EqualFold(text, NotSpecified)
}

var errSchema = errors.New("reflection: slot state does not match schema")

var (
	boolSlotFields = []string{
		"outcomeProvided",
		"whyProvided",
		"nextGoalProvided",
		"nextGoalTimingProvided",
		"conversationConcluded",
	}
	textSlotFields = []string{"nextGoalText", "nextGoalTiming"}
)

// slotStateFromObject checks every field's presence and JSON type before
// building a SlotState. Extra keys are ignored.
func slotStateFromObject(obj map[string]json.RawMessage) (SlotState, error) {
	bools := make(map[string]bool, len(boolSlotFields))
	for _, name := range boolSlotFields {
		v, err := boolField(obj, name)
		if err != nil {
			return SlotState{}, err
		}
		bools[name] = v
	}
	texts := make(map[string]string, len(textSlotFields))
	for _, name := range textSlotFields {
		v, err := textField(obj, name)
		if err != nil {
			return SlotState{}, err
		}
		if !IsConcrete(v) {
			v = NotSpecified
		}
		texts[name] = strings.TrimSpace(v)
	}
	prompt, err := textField(obj, "lastSignificantPromptType")
	if err != nil {
		return SlotState{}, err
	}
	if !PromptType(prompt).Valid() {
		return SlotState{}, fmt.Errorf("%w: lastSignificantPromptType %q is not a known prompt type", errSchema, prompt)
	}

	return SlotState{
		OutcomeProvided:           bools["outcomeProvided"],
		WhyProvided:               bools["whyProvided"],
		NextGoalProvided:          bools["nextGoalProvided"],
		NextGoalText:              texts["nextGoalText"],
		NextGoalTimingProvided:    bools["nextGoalTimingProvided"],
		NextGoalTiming:            texts["nextGoalTiming"],
		ConversationConcluded:     bools["conversationConcluded"],
		LastSignificantPromptType: PromptType(prompt),
	}, nil
}

func rawField(obj map[string]json.RawMessage, name string) (json.RawMessage, error) {
	raw, ok := obj[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %s", errSchema, name)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, fmt.Errorf("%w: %s is null", errSchema, name)
	}
	return raw, nil
}

func boolField(obj map[string]json.RawMessage, name string) (bool, error) {
	raw, err := rawField(obj, name)
	if err != nil {
		return false, err
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errSchema, name)
	}
	return v, nil
}

func textField(obj map[string]json.RawMessage, name string) (string, error) {
	raw, err := rawField(obj, name)
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", errSchema, name)
	}
	return v, nil
}
