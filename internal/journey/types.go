package journey

import (
	"sync/atomic"
	"time"
)

// Step statuses.
const (
	StepPassed  = "passed"
	StepFailed  = "failed"
	StepSkipped = "skipped"
)

// Trace event types.
const (
	EventRequest  = "request"
	EventResponse = "response"
)

// TraceEvent records one request sent or one response received.
// Secrets are redacted before an event is stored.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Step   string `json:"step"`
	Type   string `json:"type"`
	Call   string `json:"call,omitempty"`
	Args   any    `json:"args,omitempty"`
	Status int    `json:"status,omitempty"`
	Body   any    `json:"body,omitempty"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index      int           `json:"index"`
	Name       string        `json:"name"`
	Call       string        `json:"call"`
	Status     string        `json:"status"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// Passed reports whether the step ran and every check held.
func (s StepResult) Passed() bool {
	return s.Status == StepPassed
}

// Result is the outcome of a scenario run.
type Result struct {
	RunID      string       `json:"run_id"`
	Scenario   string       `json:"scenario"`
	Pass       bool         `json:"pass"`
	Steps      []StepResult `json:"steps"`
	Trace      []TraceEvent `json:"trace"`
	Errors     []string     `json:"errors,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// NewResult creates a new passing result.
func NewResult(runID, scenario string) *Result {
	return &Result{
		RunID:    runID,
		Scenario: scenario,
		Pass:     true,
		Steps:    []StepResult{},
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddStep appends a step outcome. A step that did not pass fails the run.
func (r *Result) AddStep(s StepResult) {
	r.Steps = append(r.Steps, s)
	if !s.Passed() {
		r.Pass = false
	}
}

// Counts returns the number of passed, failed and skipped steps.
func (r *Result) Counts() (passed, failed, skipped int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StepPassed:
			passed++
		case StepFailed:
			failed++
		case StepSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Clock is a monotonic logical clock stamping trace events.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0. The first call to Next
// returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
