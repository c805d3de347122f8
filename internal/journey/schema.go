package journey

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	cueyaml "cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaCUE []byte

// checkSchema validates scenario YAML against the #Scenario definition:
// required fields, status range, call names, per-call arguments and
// capture targets.
func checkSchema(data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	file, err := cueyaml.Extract("scenario.yaml", data)
	if err != nil {
		return &ScenarioError{Msg: "failed to parse YAML", Err: err}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return &ScenarioError{Msg: "failed to parse YAML", Err: err}
	}

	v := doc.Unify(schema.LookupPath(cue.ParsePath("#Scenario")))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatSchemaError(err)
	}
	return nil
}

// formatSchemaError reports the first CUE error at each path, sorted.
func formatSchemaError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &ScenarioError{Msg: "schema validation failed", Err: err}
	}

	seen := map[string]bool{}
	var lines []string
	for _, e := range errs {
		where := schemaPath(e.Path())
		if seen[where] {
			continue
		}
		seen[where] = true
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if where != "" {
			msg = where + ": " + msg
		}
		lines = append(lines, msg)
	}
	sort.Strings(lines)
	return &ScenarioError{Msg: strings.Join(lines, "; ")}
}

// schemaPath renders ["steps", "0", "call"] as "steps[0].call".
func schemaPath(path []string) string {
	var b strings.Builder
	for _, elem := range path {
		switch {
		case strings.HasPrefix(elem, "#"):
			continue
		case isIndex(elem):
			fmt.Fprintf(&b, "[%s]", elem)
		default:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(elem)
		}
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
