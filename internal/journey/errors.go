package journey

import (
	"fmt"
	"strings"
)

// ScenarioError is returned when a scenario cannot be parsed or is invalid.
type ScenarioError struct {
	Where string // "steps[3]" or "" for scenario-level problems
	Msg   string
	Err   error
}

func (e *ScenarioError) Error() string {
	var b strings.Builder
	b.WriteString("invalid scenario: ")
	if e.Where != "" {
		b.WriteString(e.Where)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ScenarioError) Unwrap() error {
	return e.Err
}

func stepWhere(i int) string {
	return fmt.Sprintf("steps[%d]", i)
}

// DependencyError means a step's inputs were not produced by earlier steps.
type DependencyError struct {
	Step      string
	Missing   []string
	Producers map[string]string // missing key -> step expected to produce it
}

func (e *DependencyError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, key := range e.Missing {
		if p := e.Producers[key]; p != "" {
			parts = append(parts, fmt.Sprintf("%s (from step %s)", key, p))
		} else {
			parts = append(parts, key)
		}
	}
	return fmt.Sprintf("step %s: missing required state: %s", e.Step, strings.Join(parts, ", "))
}

// AssertionError is a single failed check on a response.
type AssertionError struct {
	Step     string
	Check    string // "status", "message", "body", "field normal_balance", ...
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("step %s: %s: expected %s, got %s", e.Step, e.Check, e.Expected, e.Actual)
}
