// Package main runs end-to-end scenarios against a running reflection-coach API.
//
// Scenarios drive real oracle calls, so checks look at stage progression and
// response shape rather than exact wording:
//   - Full reflection from greeting to conclusion with a scheduled check-in
//   - Uncertain answers re-ask the current question
//   - Malformed turns are rejected
//   - Transcript persistence round trip
//   - Plain text passthrough
//
// Usage:
//
//	API_BASE_URL=http://localhost:3005 go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"time"
)

const ownerHeader = "X-User-ID"

var (
	apiBase    string
	ownerID    string
	httpClient = &http.Client{Timeout: 90 * time.Second}
	isoPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?Z$`)
)

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type turnResult struct {
	AIMessage            string         `json:"aiMessage"`
	CurrentStage         string         `json:"currentStage"`
	CollectedInformation map[string]any `json:"collectedInformation"`
	NextGoalDisplay      struct {
		Goal   string `json:"goal"`
		Timing string `json:"timing"`
	} `json:"nextGoalDisplay"`
	CheckInDetails struct {
		IsoCheckInDateTime string `json:"isoCheckInDateTime"`
		DescriptiveCheckIn string `json:"descriptiveCheckIn"`
	} `json:"checkInDetails"`
}

func call(method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(ownerHeader, ownerID)
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

// conversation keeps the transcript the way the mobile client does.
type conversation struct {
	history []message
}

func (c *conversation) say(text string) (*turnResult, error) {
	status, body, err := call(http.MethodPost, "/api/chat/respond", map[string]any{
		"currentUserMessage": map[string]string{"content": text},
		"chatHistory":        c.history,
	})
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("respond returned %d: %s", status, string(body))
	}
	var result turnResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	c.history = append(c.history, message{"user", text}, message{"assistant", result.AIMessage})
	fmt.Printf("    user:  %s\n    coach: %s [%s]\n", text, result.AIMessage, result.CurrentStage)
	return &result, nil
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioFullReflection(t *T) {
	conv := &conversation{}
	answers := []string{
		"Hi",
		"Yes, I finished the report on time.",
		"Because I blocked two hours every morning and turned off notifications.",
		"I want to go to the gym tomorrow at 7am.",
		"Thanks!",
		"Bye",
	}
	var last *turnResult
	sawGoal, sawCheckIn, concluded := false, false, false
	for _, answer := range answers {
		result, err := conv.say(answer)
		if err != nil {
			t.fatalf("turn failed: %v", err)
			return
		}
		last = result
		if result.NextGoalDisplay.Goal != "" {
			sawGoal = true
		}
		if result.CheckInDetails.IsoCheckInDateTime != "" {
			sawCheckIn = isoPattern.MatchString(result.CheckInDetails.IsoCheckInDateTime)
		}
		if result.CurrentStage == "CONCLUDED" {
			concluded = true
			break
		}
	}
	t.check("every turn returned a reply", last != nil && last.AIMessage != "")
	t.check("goal display produced", sawGoal)
	t.check("check-in timestamp is ISO-8601 UTC", sawCheckIn)
	t.check("conversation concluded", concluded)
}

func scenarioUncertainty(t *T) {
	conv := &conversation{}
	first, err := conv.say("Hello")
	if err != nil {
		t.fatalf("turn failed: %v", err)
		return
	}
	second, err := conv.say("I'm not sure")
	if err != nil {
		t.fatalf("turn failed: %v", err)
		return
	}
	t.check("stage unchanged after uncertain answer", first.CurrentStage == second.CurrentStage)
}

func scenarioMalformedTurn(t *T) {
	status, _, err := call(http.MethodPost, "/api/chat/respond", map[string]any{"chatHistory": []message{}})
	if err != nil {
		t.fatalf("request failed: %v", err)
		return
	}
	t.check("missing content rejected with 400", status == http.StatusBadRequest)

	status, _, err = call(http.MethodPost, "/api/chat/respond", map[string]any{
		"currentUserMessage": map[string]string{"content": "   "},
	})
	if err != nil {
		t.fatalf("request failed: %v", err)
		return
	}
	t.check("blank content rejected with 400", status == http.StatusBadRequest)
}

func scenarioPersistence(t *T) {
	history := []message{{"assistant", "Were you able to accomplish your previous goal?"}, {"user", "Yes"}}
	status, body, err := call(http.MethodPost, "/api/chat/store-chat-history", map[string]any{"chatHistory": history})
	if err != nil {
		t.fatalf("store failed: %v", err)
		return
	}
	if status == http.StatusServiceUnavailable {
		fmt.Println("    SKIP: transcript storage not configured")
		return
	}
	t.check("history stored", status == http.StatusOK)

	status, body, err = call(http.MethodGet, "/api/chat/history", nil)
	if err != nil {
		t.fatalf("load failed: %v", err)
		return
	}
	var loaded struct {
		ChatHistory []message `json:"chatHistory"`
	}
	_ = json.Unmarshal(body, &loaded)
	t.check("history loaded", status == http.StatusOK && len(loaded.ChatHistory) == len(history))

	status, _, err = call(http.MethodDelete, "/api/chat/history", nil)
	t.check("history cleared", err == nil && status == http.StatusNoContent)

	status, _, _ = call(http.MethodGet, "/api/chat/history", nil)
	t.check("cleared history is gone", status == http.StatusNotFound)
}

func scenarioTextPassthrough(t *T) {
	status, body, err := call(http.MethodPost, "/api/chat/text", map[string]any{"message": "Say hello in five words."})
	if err != nil {
		t.fatalf("request failed: %v", err)
		return
	}
	var resp struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &resp)
	t.check("passthrough returned a message", status == http.StatusOK && resp.Message != "")
}

func main() {
	apiBase = os.Getenv("API_BASE_URL")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}
	ownerID = os.Getenv("E2E_OWNER_ID")
	if ownerID == "" {
		ownerID = fmt.Sprintf("e2e-%d", time.Now().Unix())
	}

	scenarios := []scenario{
		{"full-reflection", scenarioFullReflection},
		{"uncertainty", scenarioUncertainty},
		{"malformed-turn", scenarioMalformedTurn},
		{"persistence", scenarioPersistence},
		{"text-passthrough", scenarioTextPassthrough},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "PASS"
		if t.failed > 0 {
			status = "FAIL"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME SCENARIOS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL SCENARIOS PASSED")
}
