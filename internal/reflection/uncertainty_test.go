package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpressesUncertainty(t *testing.T) {
	for _, msg := range []string{
		"I am not sure",
		"honestly I don't know",
		"Not sure really",
		"I'm UNSURE",
		"no idea!",
	} {
		assert.True(t, ExpressesUncertainty(msg), msg)
	}
	for _, msg := range []string{"", "Because I was tired", "I know exactly why", "I'm sure"} {
		assert.False(t, ExpressesUncertainty(msg), msg)
	}
}

func TestApplyUncertaintyOverride_OnlyForAwaitingWhy(t *testing.T) {
	r := NewResolver(nil)
	states := []SlotState{
		FailedSlotState(),
		{ConversationConcluded: true},
		{},
		{OutcomeProvided: true, LastSignificantPromptType: PromptAskedWhy},
		{OutcomeProvided: true, WhyProvided: true},
		{OutcomeProvided: true, WhyProvided: true, NextGoalProvided: true, NextGoalTimingProvided: true},
	}

	for _, state := range states {
		d := r.Resolve(state)
		for _, msg := range []string{"no idea", "I worked hard"} {
			got, fired := r.ApplyUncertaintyOverride(d, msg)
			shouldFire := d.Stage == StageAwaitingWhy && msg == "no idea"
			assert.Equal(t, shouldFire, fired, "stage %s msg %q", d.Stage, msg)
			if !shouldFire {
				assert.Equal(t, d, got)
				continue
			}
			assert.Equal(t, StageAwaitingNextGoal, got.Stage)
			assert.Equal(t, InstructionRequestNextGoal, got.InstructionKey)
			assert.Equal(t, r.Instruction(InstructionRequestNextGoal), got.InstructionText)
			assert.True(t, got.Collected.WhyProvided)
			assert.True(t, got.Collected.OutcomeProvided)
		}
	}
}
