package conversation

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one prior chat message supplied by the caller.
type Message struct {
	ID        string `json:"id,omitempty"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp,omitempty"` // unix millis
}

// Valid reports whether the role is one the pipeline understands.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Tail returns at most the last n messages. The result shares the backing array.
func Tail(history []Message, n int) []Message {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

// Compact renders messages as "ROLE: content" lines.
func Compact(history []Message) string {
	lines := make([]string, len(history))
	for i, m := range history {
		lines[i] = strings.ToUpper(string(m.Role)) + ": " + m.Content
	}
	return strings.Join(lines, "\n")
}
