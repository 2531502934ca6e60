package reflection

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/reflection-coach/internal/http/middleware"
)

type recordedCheckIn struct {
	owner   string
	goal    GoalDisplay
	checkIn CheckIn
}

type fakeRecorder struct {
	records []recordedCheckIn
	err     error
}

func (f *fakeRecorder) RecordCheckIn(_ context.Context, ownerID string, goal GoalDisplay, checkIn CheckIn) error {
	f.records = append(f.records, recordedCheckIn{owner: ownerID, goal: goal, checkIn: checkIn})
	return f.err
}

func doRespond(t *testing.T, h *Handler, body, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat/respond", strings.NewReader(body))
	if owner != "" {
		req = req.WithContext(middleware.WithOwnerID(req.Context(), owner))
	}
	rec := httptest.NewRecorder()
	h.Respond(rec, req)
	return rec
}

func TestHandlerRespond_MissingContentIsClientError(t *testing.T) {
	for name, body := range map[string]string{
		"no content":      `{"currentUserMessage": {}, "chatHistory": []}`,
		"no message":      `{"chatHistory": [{"role": "assistant", "content": "hi"}]}`,
		"null content":    `{"currentUserMessage": {"content": null}}`,
		"invalid payload": `{"currentUserMessage":`,
	} {
		t.Run(name, func(t *testing.T) {
			oracle := newScriptedOracle()
			h := NewHandler(newTestCoach(oracle, nil, nil), nil, 0, nil)

			rec := doRespond(t, h, body, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
			assert.Zero(t, oracle.calls())
		})
	}
}

func TestHandlerRespond_UnknownHistoryRoleIsClientError(t *testing.T) {
	oracle := newScriptedOracle().reply(PurposeReply, "hi")
	h := NewHandler(newTestCoach(oracle, &fixedInferencer{}, nil), nil, 0, nil)

	body := `{"currentUserMessage": {"content": "Yes"}, "chatHistory": [{"role": "bot", "content": "Hello!"}]}`
	rec := doRespond(t, h, body, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid message role")
	assert.Zero(t, oracle.calls())
}

func TestHandlerRespond_Success(t *testing.T) {
	oracle := newScriptedOracle().reply(PurposeReply, "Thanks. "+WhyQuestion)
	inferencer := &fixedInferencer{state: SlotState{NextGoalText: NotSpecified, NextGoalTiming: NotSpecified}}
	h := NewHandler(newTestCoach(oracle, inferencer, nil), nil, 0, nil)

	rec := doRespond(t, h, `{"currentUserMessage": {"content": "No"}, "chatHistory": []}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	for _, key := range []string{"aiMessage", "currentStage", "collectedInformation", "nextGoalDisplay", "checkInDetails"} {
		assert.Contains(t, body, key)
	}
	assert.JSONEq(t, `"AWAITING_INITIAL"`, string(body["currentStage"]))
	assert.JSONEq(t, `{"goal": "", "timing": ""}`, string(body["nextGoalDisplay"]))
}

func TestHandlerRespond_ReplyFailureIsGeneric(t *testing.T) {
	oracle := newScriptedOracle().fail(PurposeReply, errors.New("openai: 401 invalid key sk-123"))
	h := NewHandler(newTestCoach(oracle, &fixedInferencer{}, nil), nil, 0, nil)

	rec := doRespond(t, h, `{"currentUserMessage": {"content": "hello"}}`, "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to generate response"}`, rec.Body.String())
}

func TestHandlerRespond_RecordsCheckInForOwner(t *testing.T) {
	oracle := newScriptedOracle().
		reply(PurposeReply, ConclusionStatement).
		reply(PurposeNormalize, `{"goal": "Go to the gym", "timing": "In 1 day at midnight"}`).
		reply(PurposeSchedule, `{"isoCheckInDateTime": "2023-10-27T00:00:00Z", "descriptiveCheckIn": "Tomorrow at midnight"}`)
	inferencer := &fixedInferencer{state: SlotState{
		OutcomeProvided: true, WhyProvided: true,
		NextGoalProvided: true, NextGoalText: "go to the gym again",
		NextGoalTimingProvided: true, NextGoalTiming: "tomorrow at midnight",
	}}
	recorder := &fakeRecorder{err: errors.New("db down")}
	h := NewHandler(newTestCoach(oracle, inferencer, nil), recorder, 0, nil)

	rec := doRespond(t, h, `{"currentUserMessage": {"content": "ok"}}`, "user-1")
	require.Equal(t, http.StatusOK, rec.Code, "recording failures must not fail the turn")
	require.Len(t, recorder.records, 1)
	assert.Equal(t, "user-1", recorder.records[0].owner)
	assert.Equal(t, "2023-10-27T00:00:00Z", recorder.records[0].checkIn.IsoCheckInDateTime)

	rec = doRespond(t, h, `{"currentUserMessage": {"content": "ok"}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, recorder.records, 1, "anonymous turns are not recorded")
}

func TestHandlerText(t *testing.T) {
	oracle := newScriptedOracle().reply(PurposePassthrough, "Hello there")
	h := NewHandler(newTestCoach(oracle, &fixedInferencer{}, nil), nil, 0, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/text", strings.NewReader(`{"message": "hi", "options": {"model": "gpt-4o-mini", "maxTokens": 50}}`))
	rec := httptest.NewRecorder()
	h.Text(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Message string          `json:"message"`
		Usage   json.RawMessage `json:"usage"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Hello there", body.Message)
	assert.NotEmpty(t, body.Usage)

	sent := oracle.callsFor(PurposePassthrough)[0]
	assert.Equal(t, "gpt-4o-mini", sent.Model)
	assert.Equal(t, int32(50), sent.MaxTokens)
	assert.InDelta(t, DefaultOptions().Reply.Temperature, sent.Temperature, 1e-6)

	req = httptest.NewRequest(http.MethodPost, "/api/chat/text", strings.NewReader(`{"message": ""}`))
	rec = httptest.NewRecorder()
	h.Text(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "Message is required"}`, rec.Body.String())
}
