package journey

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/pointsjourney/internal/bankapi"
)

// EvaluateExpect checks resp against expect and returns every failed check.
// expect.Fields must already be resolved against the run state.
//
// Checks run in a fixed order (status, message, body, present, fields) so
// failure output is stable.
func EvaluateExpect(step string, expect Expect, resp *bankapi.Response) []*AssertionError {
	var errs []*AssertionError

	if resp.Status != expect.Status {
		errs = append(errs, &AssertionError{
			Step:     step,
			Check:    "status",
			Expected: strconv.Itoa(expect.Status),
			Actual:   fmt.Sprintf("%d (body %s)", resp.Status, describe(redact(resp.Value()))),
		})
	}

	if expect.Message != "" {
		if err := assertMessage(step, expect.Message, resp); err != nil {
			errs = append(errs, err)
		}
	}

	if expect.Body != "" {
		if actual := resp.Text(); !textEqual(expect.Body, actual) {
			errs = append(errs, &AssertionError{
				Step:     step,
				Check:    "body",
				Expected: strconv.Quote(expect.Body),
				Actual:   strconv.Quote(actual),
			})
		}
	}

	for _, field := range expect.Present {
		v, ok := resp.Field(field)
		if !ok || isEmpty(v) {
			errs = append(errs, &AssertionError{
				Step:     step,
				Check:    "field " + field,
				Expected: "present and non-empty",
				Actual:   describePresence(v, ok),
			})
		}
	}

	fields := make([]string, 0, len(expect.Fields))
	for f := range expect.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, field := range fields {
		want := expect.Fields[field]
		got, ok := resp.Field(field)
		if !ok || !valuesEqual(want, got) {
			errs = append(errs, &AssertionError{
				Step:     step,
				Check:    "field " + field,
				Expected: describe(want),
				Actual:   describePresence(got, ok),
			})
		}
	}

	return errs
}

func assertMessage(step, want string, resp *bankapi.Response) *AssertionError {
	v, ok := resp.Field("message")
	got, isString := v.(string)
	if ok && isString && textEqual(want, got) {
		return nil
	}
	return &AssertionError{
		Step:     step,
		Check:    "message",
		Expected: strconv.Quote(want),
		Actual:   describePresence(v, ok),
	}
}

// textEqual compares after NFC normalization, so "Depósito" typed with a
// combining accent matches the precomposed form the service sends.
func textEqual(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}

// valuesEqual compares an expected value (from YAML or state) with a decoded
// JSON value. Numbers compare by value regardless of representation.
func valuesEqual(want, got any) bool {
	if wf, ok := toFloat(want); ok {
		gf, ok := toFloat(got)
		return ok && wf == gf
	}
	if ws, ok := want.(string); ok {
		gs, ok := got.(string)
		return ok && textEqual(ws, gs)
	}
	return reflect.DeepEqual(normalizeJSON(want), normalizeJSON(got))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeJSON round-trips v through encoding/json so YAML and JSON shapes
// (int vs float64, map types) become comparable.
func normalizeJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

func describe(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func describePresence(v any, ok bool) string {
	if !ok {
		return "absent"
	}
	return describe(v)
}
