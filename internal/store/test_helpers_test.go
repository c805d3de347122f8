package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/pointsjourney/internal/journey"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun builds a three-step run starting at start.
// The second step fails when pass is false.
func createTestRun(id string, start time.Time, pass bool) Run {
	second := StepRecord{Index: 1, Name: "login", Call: journey.CallLogin, Status: journey.StepPassed, HTTPStatus: 200, Duration: 12 * time.Millisecond}
	third := StepRecord{Index: 2, Name: "balance", Call: journey.CallBalance, Status: journey.StepPassed, HTTPStatus: 200, Duration: 8 * time.Millisecond}
	if !pass {
		second.Status = journey.StepFailed
		second.HTTPStatus = 401
		second.Errors = []string{fmt.Sprintf("step login: status: expected 200, got 401 (run %s)", id)}
		third = StepRecord{Index: 2, Name: "balance", Call: journey.CallBalance, Status: journey.StepSkipped}
	}
	return Run{
		ID:         id,
		Scenario:   "rethink_bank_user_journey",
		BaseURL:    "http://127.0.0.1:8080",
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Pass:       pass,
		Steps: []StepRecord{
			{Index: 0, Name: "register_primary", Call: journey.CallRegister, Status: journey.StepPassed, HTTPStatus: 201, Duration: 30 * time.Millisecond},
			second,
			third,
		},
	}
}
