package planner

import (
	"encoding/json"
	"fmt"
)

// textFields are the top-level wrapper fields probed first, in priority
// order, when the engine returns a structured value.
var textFields = []string{"response", "result", "output_text"}

// ToText converts a value of unknown shape returned by the generation engine
// into its best-effort plain-text form. Plain strings pass through unchanged;
// structured values are probed for the common text-bearing fields, then for a
// nested message.content; anything else is serialized. It never fails.
func ToText(result any) string {
	switch v := result.(type) {
	case string:
		return v
	case map[string]any:
		for _, field := range textFields {
			if s, ok := v[field].(string); ok {
				return s
			}
		}
		if msg, ok := v["message"].(map[string]any); ok {
			if s, ok := msg["content"].(string); ok {
				return s
			}
		}
		return stringify(v)
	case nil:
		return "<nil>"
	default:
		return stringify(v)
	}
}

// stringify serializes a value to JSON text, falling back to fmt.Sprint for
// values the encoder rejects (NaN floats and the like).
func stringify(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
