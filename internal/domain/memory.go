// Package domain contains core domain types for the study planner.
package domain

const (
	// ChatHistoryCap bounds the persisted transcript per session. When the
	// cap is exceeded the oldest entries are dropped first.
	ChatHistoryCap = 40

	// PromptWindow is how many recent transcript turns are replayed to the
	// generation engine on each turn.
	PromptWindow = 12
)

// Chat roles used in transcripts and prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one persisted transcript entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is the durable record accumulated across turns for one session.
type Memory struct {
	Goals       []string            `json:"goals"`
	Constraints []string            `json:"constraints"`
	Deadlines   []string            `json:"deadlines"`
	Plan        map[string][]string `json:"plan"`
	Chat        []Turn              `json:"chat"`
}

// NewMemory returns the all-empty default record. A session with no prior
// record and an explicitly reset session both start from this value.
func NewMemory() *Memory {
	return &Memory{
		Goals:       []string{},
		Constraints: []string{},
		Deadlines:   []string{},
		Plan:        map[string][]string{},
		Chat:        []Turn{},
	}
}

// Normalize replaces nil containers with empty ones so a round-tripped record
// is indistinguishable from the default.
func (m *Memory) Normalize() {
	if m.Goals == nil {
		m.Goals = []string{}
	}
	if m.Constraints == nil {
		m.Constraints = []string{}
	}
	if m.Deadlines == nil {
		m.Deadlines = []string{}
	}
	if m.Plan == nil {
		m.Plan = map[string][]string{}
	}
	if m.Chat == nil {
		m.Chat = []Turn{}
	}
}

// Snapshot is the memory projection returned to clients. It deliberately
// excludes the transcript.
type Snapshot struct {
	Goals       []string            `json:"goals"`
	Constraints []string            `json:"constraints"`
	Deadlines   []string            `json:"deadlines"`
	Plan        map[string][]string `json:"plan"`
}

// Snapshot returns the client-facing projection of the memory.
func (m *Memory) Snapshot() Snapshot {
	return Snapshot{
		Goals:       m.Goals,
		Constraints: m.Constraints,
		Deadlines:   m.Deadlines,
		Plan:        m.Plan,
	}
}

// ApplyUpdate merges a memory_update object into the record. Each field is
// wholesale replaced when present and well formed; absent or malformed fields
// leave the prior value untouched. The plan is never deep-merged.
func (m *Memory) ApplyUpdate(update map[string]any) {
	if update == nil {
		return
	}
	if goals, ok := stringSlice(update["goals"]); ok {
		m.Goals = goals
	}
	if constraints, ok := stringSlice(update["constraints"]); ok {
		m.Constraints = constraints
	}
	if deadlines, ok := stringSlice(update["deadlines"]); ok {
		m.Deadlines = deadlines
	}
	if plan, ok := planMap(update["plan"]); ok {
		m.Plan = plan
	}
}

// AppendTurn appends a transcript entry and truncates to the most recent
// ChatHistoryCap entries, preserving order.
func (m *Memory) AppendTurn(role, content string) {
	m.Chat = append(m.Chat, Turn{Role: role, Content: content})
	if len(m.Chat) > ChatHistoryCap {
		m.Chat = m.Chat[len(m.Chat)-ChatHistoryCap:]
	}
}

// RecentChat returns up to the last n transcript entries, oldest first.
func (m *Memory) RecentChat(n int) []Turn {
	if n <= 0 || len(m.Chat) == 0 {
		return nil
	}
	if len(m.Chat) > n {
		return m.Chat[len(m.Chat)-n:]
	}
	return m.Chat
}

// stringSlice converts a decoded JSON value into a string slice. It reports
// false when the value is absent, not an array, or contains non-strings.
func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// planMap converts a decoded JSON value into a plan mapping. The value must
// be an object; period keys whose task lists are not string arrays are
// dropped. Keys are caller-supplied and not validated further.
func planMap(v any) (map[string][]string, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string][]string, len(obj))
	for label, tasks := range obj {
		if list, ok := stringSlice(tasks); ok {
			out[label] = list
		}
	}
	return out, true
}
