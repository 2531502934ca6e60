package reflection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolver_Rules(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name      string
		state     SlotState
		wantKey   InstructionKey
		wantStage Stage
	}{
		{
			name:      "failed inference",
			state:     FailedSlotState(),
			wantKey:   InstructionGeneral,
			wantStage: StageError,
		},
		{
			name:      "failed wins over concluded",
			state:     SlotState{Failed: true, ConversationConcluded: true, OutcomeProvided: true},
			wantKey:   InstructionGeneral,
			wantStage: StageError,
		},
		{
			name:      "concluded",
			state:     SlotState{ConversationConcluded: true},
			wantKey:   InstructionPostConclusion,
			wantStage: StageConcluded,
		},
		{
			name:      "nothing collected",
			state:     SlotState{LastSignificantPromptType: PromptNone},
			wantKey:   InstructionRequestOutcome,
			wantStage: StageAwaitingInitial,
		},
		{
			name:      "initial already asked",
			state:     SlotState{LastSignificantPromptType: PromptAskedInitial},
			wantKey:   InstructionRequestOutcome,
			wantStage: StageAwaitingInitial,
		},
		{
			name:      "why not asked yet",
			state:     SlotState{OutcomeProvided: true, LastSignificantPromptType: PromptAskedInitial},
			wantKey:   InstructionRequestWhy,
			wantStage: StageAwaitingWhy,
		},
		{
			name:      "why already asked",
			state:     SlotState{OutcomeProvided: true, LastSignificantPromptType: PromptAskedWhy},
			wantKey:   InstructionClarifyWhy,
			wantStage: StageAwaitingWhy,
		},
		{
			name:      "next goal not asked yet",
			state:     SlotState{OutcomeProvided: true, WhyProvided: true, LastSignificantPromptType: PromptAskedWhy},
			wantKey:   InstructionRequestNextGoal,
			wantStage: StageAwaitingNextGoal,
		},
		{
			name:      "next goal already asked",
			state:     SlotState{OutcomeProvided: true, WhyProvided: true, LastSignificantPromptType: PromptAskedNextGoal},
			wantKey:   InstructionClarifyNextGoal,
			wantStage: StageAwaitingNextGoal,
		},
		{
			name: "timing missing with concrete goal",
			state: SlotState{
				OutcomeProvided: true, WhyProvided: true,
				NextGoalProvided: true, NextGoalText: "go running",
				NextGoalTiming: NotSpecified, LastSignificantPromptType: PromptAskedNextGoal,
			},
			wantKey:   InstructionRequestTiming,
			wantStage: StageAwaitingNextGoal,
		},
		{
			name: "timing missing with unspecified goal",
			state: SlotState{
				OutcomeProvided: true, WhyProvided: true,
				NextGoalProvided: true, NextGoalText: NotSpecified,
				NextGoalTiming: NotSpecified, LastSignificantPromptType: PromptAskedNextGoal,
			},
			wantKey:   InstructionClarifyNextGoal,
			wantStage: StageAwaitingNextGoal,
		},
		{
			name: "timing missing after another prompt",
			state: SlotState{
				OutcomeProvided: true, WhyProvided: true,
				NextGoalProvided: true, NextGoalText: "go running",
				LastSignificantPromptType: PromptAskedWhy,
			},
			wantKey:   InstructionClarifyNextGoal,
			wantStage: StageAwaitingNextGoal,
		},
		{
			name: "all slots filled",
			state: SlotState{
				OutcomeProvided: true, WhyProvided: true,
				NextGoalProvided: true, NextGoalText: "go running",
				NextGoalTimingProvided: true, NextGoalTiming: "tomorrow",
				LastSignificantPromptType: PromptAskedNextGoal,
			},
			wantKey:   InstructionRequestConclude,
			wantStage: StageAwaitingConclusion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Resolve(tt.state)
			assert.Equal(t, tt.wantKey, d.InstructionKey)
			assert.Equal(t, tt.wantStage, d.Stage)
			assert.NotEmpty(t, d.InstructionText)
			assert.Equal(t, tt.state.Collected(), d.Collected)
			assert.Equal(t, tt.state.LastSignificantPromptType, d.LastSignificantPromptType)
		})
	}
}

func TestResolver_TimingInstructionQuotesGoal(t *testing.T) {
	d := NewResolver(nil).Resolve(SlotState{
		OutcomeProvided: true, WhyProvided: true,
		NextGoalProvided: true, NextGoalText: " read two chapters ",
		LastSignificantPromptType: PromptAskedNextGoal,
	})
	require.Equal(t, InstructionRequestTiming, d.InstructionKey)
	assert.Contains(t, d.InstructionText, `"read two chapters"`)
	assert.NotContains(t, d.InstructionText, goalPlaceholder)
}

// The stage depends only on the first unfilled slot in script order.
func TestResolver_StageIsFirstMissingSlot(t *testing.T) {
	r := NewResolver(nil)
	prompts := []PromptType{PromptNone, PromptAskedInitial, PromptAskedWhy, PromptAskedNextGoal}

	for mask := 0; mask < 16; mask++ {
		outcome, why, goal, timing := mask&1 != 0, mask&2 != 0, mask&4 != 0, mask&8 != 0
		want := StageAwaitingConclusion
		switch {
		case !outcome:
			want = StageAwaitingInitial
		case !why:
			want = StageAwaitingWhy
		case !goal, !timing:
			want = StageAwaitingNextGoal
		}
		for _, last := range prompts {
			state := SlotState{
				OutcomeProvided:           outcome,
				WhyProvided:               why,
				NextGoalProvided:          goal,
				NextGoalText:              "walk",
				NextGoalTimingProvided:    timing,
				NextGoalTiming:            "today",
				LastSignificantPromptType: last,
			}
			t.Run(fmt.Sprintf("mask=%04b/last=%s", mask, last), func(t *testing.T) {
				assert.Equal(t, want, r.Resolve(state).Stage)
			})
		}
	}
}

func TestResolver_Idempotent(t *testing.T) {
	r := NewResolver(nil)
	state := SlotState{OutcomeProvided: true, LastSignificantPromptType: PromptAskedWhy}
	assert.Equal(t, r.Resolve(state), r.Resolve(state))
}

func TestResolver_CopiesInstructionTable(t *testing.T) {
	table := DefaultInstructions()
	r := NewResolver(table)
	table[InstructionGeneral] = "mutated"

	d := r.Resolve(FailedSlotState())
	assert.Equal(t, DefaultInstructions()[InstructionGeneral], d.InstructionText)
}

// A black-box inferencer may report later slots without earlier ones.
func TestResolver_ToleratesNonMonotonicState(t *testing.T) {
	d := NewResolver(nil).Resolve(SlotState{
		NextGoalProvided: true, NextGoalTimingProvided: true,
		NextGoalText: "swim", NextGoalTiming: "Friday",
	})
	assert.Equal(t, StageAwaitingInitial, d.Stage)
}
