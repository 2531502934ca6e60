package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/reflection-coach/internal/http/middleware"
)

func serve(h http.HandlerFunc, method, target, body, owner string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if owner != "" {
		req = req.WithContext(middleware.WithOwnerID(context.Background(), owner))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestHandler_RequiresOwner(t *testing.T) {
	transcripts, _ := newTestTranscriptStore(t)
	h := NewHandler(transcripts, nil, nil, nil)

	rec := serve(h.History, http.MethodGet, "/api/chat/history", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error": "User not authenticated"}`, rec.Body.String())
}

func TestHandler_UnconfiguredStores(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil)
	for name, fn := range map[string]http.HandlerFunc{
		"history":   h.History,
		"snapshot":  h.CollectedInformation,
		"check-ins": h.CheckIns,
	} {
		t.Run(name, func(t *testing.T) {
			rec := serve(fn, http.MethodGet, "/", "", "user-1")
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		})
	}
}

func TestHandler_StoreAndLoadHistory(t *testing.T) {
	transcripts, _ := newTestTranscriptStore(t)
	h := NewHandler(transcripts, nil, nil, nil)

	rec := serve(h.History, http.MethodGet, "/api/chat/history", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"chatHistory": [{"role": "assistant", "content": "Thinking back on what your goal was, were you able to do it?"}, {"role": "user", "content": "No"}]}`
	rec = serve(h.StoreHistory, http.MethodPost, "/api/chat/store-chat-history", body, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success": true}`, rec.Body.String())

	rec = serve(h.History, http.MethodGet, "/api/chat/history", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, body, rec.Body.String())

	rec = serve(h.ClearHistory, http.MethodDelete, "/api/chat/history", "", "user-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(h.History, http.MethodGet, "/api/chat/history", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_StoreHistoryRejectsBadRole(t *testing.T) {
	transcripts, mr := newTestTranscriptStore(t)
	h := NewHandler(transcripts, nil, nil, nil)

	rec := serve(h.StoreHistory, http.MethodPost, "/api/chat/store-chat-history", `{"chatHistory": [{"role": "bot", "content": "hi"}]}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, mr.Exists("chat:transcript:user-1"))
}

func TestHandler_CollectedInformation(t *testing.T) {
	mock := &mockDynamo{}
	h := NewHandler(nil, NewSnapshotStore(mock, "snapshots", nil), nil, nil)

	rec := serve(h.CollectedInformation, http.MethodGet, "/api/chat/collected-information", "", "user-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body := `{"collectedInformation": {"outcomeProvided": true, "whyProvided": true, "nextGoalProvided": true, "nextGoalText": "read", "nextGoalTimingProvided": true, "nextGoalTiming": "tonight", "conversationConcluded": true}, "nextGoalDisplay": {"goal": "Read", "timing": "Tonight"}, "nextGoalTiming": "tonight"}`
	rec = serve(h.SetCollectedInformation, http.MethodPost, "/api/chat/set-collected-information", body, "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var stored Snapshot
	require.NoError(t, attributevalue.UnmarshalMap(mock.putInput.Item, &stored))
	assert.Equal(t, "user-1", stored.OwnerID)
	assert.True(t, stored.CollectedInformation.ConversationConcluded)
	assert.Equal(t, "Tonight", stored.NextGoalDisplay.Timing)

	mock.getOutput = &dynamodb.GetItemOutput{Item: mock.putInput.Item}
	rec = serve(h.CollectedInformation, http.MethodGet, "/api/chat/collected-information", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.JSONEq(t, `{"goal": "Read", "timing": "Tonight"}`, string(got["nextGoalDisplay"]))
	assert.NotContains(t, got, "ownerId")
}

func TestHandler_CheckIns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	h := NewHandler(nil, nil, NewCheckInStore(mock), nil)

	due := time.Date(2023, 10, 27, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id::text, owner_id, goal`).
		WithArgs("user-1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "owner_id", "goal", "timing", "due_at", "description", "created_at"}).
			AddRow("6f1c7e0a-3f1b-4c1e-9a43-1b1c9f1a0c01", "user-1", "Go to the gym", "In 1 day at midnight", due, "Tomorrow at midnight", due.Add(-14*time.Hour)))

	rec := serve(h.CheckIns, http.MethodGet, "/api/chat/check-ins?limit=5", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		CheckIns []CheckInRecord `json:"checkIns"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.CheckIns, 1)
	assert.Equal(t, "Go to the gym", body.CheckIns[0].Goal)
	assert.True(t, body.CheckIns[0].DueAt.Equal(due))
	require.NoError(t, mock.ExpectationsWereMet())

	rec = serve(h.CheckIns, http.MethodGet, "/api/chat/check-ins?limit=abc", "", "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
