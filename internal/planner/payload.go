package planner

// Payload is the structured object recovered from a generation response:
// {"reply": string, "memory_update": {...}}. It is consumed within the turn
// that produced it and never persisted.
type Payload map[string]any

// Reply returns the payload's reply field when it is a non-empty string.
func (p Payload) Reply() (string, bool) {
	s, ok := p["reply"].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// MemoryUpdate returns the optional memory delta the payload carries.
func (p Payload) MemoryUpdate() (map[string]any, bool) {
	update, ok := p["memory_update"].(map[string]any)
	return update, ok
}
