package journey

// Redacted replaces secret values in traces and logs.
const Redacted = "[redacted]"

// secretFields are argument and response field names whose values never
// leave the run state.
var secretFields = map[string]bool{
	"password":        true,
	"confirmPassword": true,
	"token":           true,
	"confirmToken":    true,
}

// redact returns a copy of v with secret fields masked. Non-map values are
// returned unchanged.
func redact(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if secretFields[k] && !isEmpty(elem) {
				out[k] = Redacted
				continue
			}
			out[k] = redact(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = redact(elem)
		}
		return out
	default:
		return v
	}
}
