package journey

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gowebpki/jcs"
	"github.com/sebdah/goldie/v2"
)

// TraceSnapshot captures the trace of a scenario execution for golden
// comparison. Run IDs and timings are left out so snapshots are stable.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// CanonicalJSON serializes the snapshot per RFC 8785.
func (s *TraceSnapshot) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return jcs.Transform(raw)
}

// RunWithGolden executes a scenario and compares the trace against
// testdata/golden/{scenario.Name}.golden.
//
// Use a FixedGenerator so identities, and therefore request bodies, repeat
// across runs. Tokens are redacted in the trace.
//
// To regenerate golden files, run:
//
//	go test ./internal/journey -update
func RunWithGolden(t *testing.T, runner *Runner, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := runner.Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: name,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.CanonicalJSON()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, traceJSON)
	return nil
}
