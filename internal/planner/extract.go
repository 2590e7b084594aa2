package planner

import (
	"encoding/json"
	"strings"
)

// envelopeField is the well-known wrapper some engines put around the
// payload object: {"response": {"reply": ...}}.
const envelopeField = "response"

// ExtractObject recovers a JSON object embedded anywhere inside text, or nil
// when none is recoverable. It first attempts a full-text parse, then scans
// from the first opening brace, trying every position where brace depth
// returns to zero. The depth count only tracks the brace characters
// themselves; a brace inside a string literal confuses it. That limitation is
// deliberate: the system prompt forbids braces in replies, and the scan stays
// cheap and predictable.
func ExtractObject(text string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj
	}

	start := strings.IndexByte(text, '{')
	if start == -1 {
		return nil
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var candidate map[string]any
				if err := json.Unmarshal([]byte(text[start:i+1]), &candidate); err == nil {
					return candidate
				}
			}
		}
	}
	return nil
}

// ExtractPayload recovers the turn payload from raw text, unwrapping the
// response envelope when present. Returns nil when no object parses.
func ExtractPayload(text string) Payload {
	obj := ExtractObject(text)
	if obj == nil {
		return nil
	}
	return unwrapEnvelope(obj)
}

// unwrapEnvelope resolves {"response": {...}} wrapping to the inner object;
// an object without the envelope is the payload itself.
func unwrapEnvelope(obj map[string]any) Payload {
	if inner, ok := obj[envelopeField].(map[string]any); ok {
		return Payload(inner)
	}
	return Payload(obj)
}
