package journey

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios/rethink_bank.yaml
var defaultScenarioYAML []byte

// Scenario is an ordered chain of dependent steps.
type Scenario struct {
	// Name uniquely identifies this scenario. Also used as the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps run in order, exactly once each.
	Steps []Step `yaml:"steps"`
}

// Step is one bank call plus the checks applied to its response.
type Step struct {
	// Name identifies the step in results, logs and dependency diagnostics.
	Name string `yaml:"name"`

	// Description is free text shown in verbose output.
	Description string `yaml:"description,omitempty"`

	// Call is the bank operation to invoke (see CallNames).
	Call string `yaml:"call"`

	// Args are the call arguments. String values may contain ${key} templates.
	Args map[string]any `yaml:"args,omitempty"`

	// Requires lists state keys that must be present in addition to those
	// inferred from templates and the call itself.
	Requires []string `yaml:"requires,omitempty"`

	// Expect is the response contract.
	Expect Expect `yaml:"expect"`

	// Capture maps response fields to state keys for later steps.
	Capture map[string]string `yaml:"capture,omitempty"`
}

// Expect describes the response a step must receive.
type Expect struct {
	// Status is the exact HTTP status code.
	Status int `yaml:"status"`

	// Message is the exact value of the body's "message" field.
	Message string `yaml:"message,omitempty"`

	// Body is the exact body text.
	Body string `yaml:"body,omitempty"`

	// Fields are exact top-level field values. Values may be templates.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Present lists fields that must exist with a non-empty value.
	Present []string `yaml:"present,omitempty"`
}

// DefaultScenario returns the built-in nine-step user journey.
func DefaultScenario() (*Scenario, error) {
	return ParseScenario(defaultScenarioYAML)
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // reject "expects:" and similar typos
	if err := decoder.Decode(&scenario); err != nil {
		return nil, &ScenarioError{Msg: "failed to parse YAML", Err: err}
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// ValidateScenario checks s against the scenario schema, then checks that
// step names are unique and every referenced state key is seeded or
// captured by an earlier step.
func ValidateScenario(s *Scenario) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return &ScenarioError{Msg: "failed to encode scenario", Err: err}
	}
	if err := checkSchema(data); err != nil {
		return err
	}

	available := map[string]bool{}
	for _, k := range SeedKeys {
		available[k] = true
	}
	names := map[string]bool{}

	for i := range s.Steps {
		step := &s.Steps[i]
		if names[step.Name] {
			return &ScenarioError{Where: stepWhere(i), Msg: fmt.Sprintf("duplicate step name %q", step.Name)}
		}
		names[step.Name] = true

		for _, key := range requiredKeys(step) {
			if !available[key] {
				return &ScenarioError{Where: stepWhere(i), Msg: fmt.Sprintf("state key %q is neither seeded nor captured by an earlier step", key)}
			}
		}
		for _, key := range step.Capture {
			available[key] = true
		}
	}
	return nil
}

// requiredKeys is the full dependency set of a step.
func requiredKeys(step *Step) []string {
	seen := map[string]bool{}
	for _, k := range step.Requires {
		seen[k] = true
	}
	for _, k := range templateKeys(step.Args) {
		seen[k] = true
	}
	for _, k := range templateKeys(step.Expect.Fields) {
		seen[k] = true
	}
	if calls[step.Call].authorized {
		seen[KeySessionToken] = true
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// producers maps each captured key to the first step that captures it.
func (s *Scenario) producers() map[string]string {
	out := map[string]string{}
	for _, step := range s.Steps {
		for _, key := range step.Capture {
			if _, ok := out[key]; !ok {
				out[key] = step.Name
			}
		}
	}
	return out
}
