package reflection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/reflection-coach/internal/llm"
)

var checkInNow = time.Date(2023, 10, 26, 10, 0, 0, 0, time.UTC)

func TestCheckInScheduler_Schedules(t *testing.T) {
	oracle := newScriptedOracle().reply(PurposeSchedule, `{"isoCheckInDateTime": "2023-10-27T00:00:00Z", "descriptiveCheckIn": "Tomorrow at midnight"}`)
	s := NewCheckInScheduler(oracle, DefaultOptions().Schedule, nil, nil)

	got := s.Schedule(context.Background(), GoalDisplay{Goal: "Go to the gym", Timing: "In 1 day at midnight"}, checkInNow)
	assert.Equal(t, "2023-10-27T00:00:00Z", got.IsoCheckInDateTime)
	assert.Equal(t, "Tomorrow at midnight", got.DescriptiveCheckIn)
	assert.True(t, got.Scheduled())

	reqs := oracle.callsFor(PurposeSchedule)
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Messages[0].Content, "23:00:00Z")
	assert.Contains(t, reqs[0].Messages[1].Content, "2023-10-26T10:00:00Z")
	assert.Contains(t, reqs[0].Messages[1].Content, "In 1 day at midnight")
}

func TestCheckInScheduler_AcceptsFractionalSeconds(t *testing.T) {
	oracle := newScriptedOracle().reply(PurposeSchedule, `{"isoCheckInDateTime": "2023-10-29T23:00:00.000Z", "descriptiveCheckIn": "Sunday evening"}`)
	got := NewCheckInScheduler(oracle, CallOptions{}, nil, nil).Schedule(context.Background(), GoalDisplay{Goal: "Plan meals", Timing: "Sometime next week"}, checkInNow)
	assert.Equal(t, "2023-10-29T23:00:00.000Z", got.IsoCheckInDateTime)
}

func TestCheckInScheduler_ShortCircuitsOnIncompleteGoal(t *testing.T) {
	oracle := newScriptedOracle()
	s := NewCheckInScheduler(oracle, CallOptions{}, nil, nil)

	assert.Equal(t, CheckIn{}, s.Schedule(context.Background(), GoalDisplay{Goal: "Run"}, checkInNow))
	assert.Equal(t, CheckIn{}, s.Schedule(context.Background(), GoalDisplay{}, checkInNow))
	assert.Zero(t, oracle.calls())
}

func TestCheckInScheduler_FallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{name: "oracle error", err: errors.New("unavailable")},
		{name: "garbage", reply: "Tomorrow works"},
		{name: "missing description", reply: `{"isoCheckInDateTime": "2023-10-27T00:00:00Z"}`},
		{name: "offset instead of Z", reply: `{"isoCheckInDateTime": "2023-10-27T00:00:00+00:00", "descriptiveCheckIn": "x"}`},
		{name: "date only", reply: `{"isoCheckInDateTime": "2023-10-27", "descriptiveCheckIn": "x"}`},
		{name: "impossible date", reply: `{"isoCheckInDateTime": "2023-13-45T00:00:00Z", "descriptiveCheckIn": "x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := newScriptedOracle().reply(PurposeSchedule, tt.reply)
			if tt.err != nil {
				oracle.fail(PurposeSchedule, tt.err)
			}
			obs := &recordingObserver{}
			got := NewCheckInScheduler(oracle, CallOptions{}, nil, obs).Schedule(context.Background(), GoalDisplay{Goal: "Run", Timing: "In 2 days"}, checkInNow)
			assert.Equal(t, FallbackCheckIn(), got)
			assert.Equal(t, DefaultCheckInDescription, got.DescriptiveCheckIn)
			assert.False(t, got.Scheduled())
			assert.Equal(t, []string{"scheduler"}, obs.fallbacks)
		})
	}
}

func TestCheckInScheduler_RecoversFromOraclePanic(t *testing.T) {
	oracle := llm.ClientFunc(func(context.Context, llm.Request) (llm.Response, error) {
		panic("provider exploded")
	})
	obs := &recordingObserver{}

	var got CheckIn
	require.NotPanics(t, func() {
		got = NewCheckInScheduler(oracle, CallOptions{}, nil, obs).Schedule(context.Background(), GoalDisplay{Goal: "Run", Timing: "In 2 days"}, checkInNow)
	})
	assert.Equal(t, FallbackCheckIn(), got)
	assert.Equal(t, []string{"scheduler"}, obs.fallbacks)
}
