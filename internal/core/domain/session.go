package domain

import "time"

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// Turn is one message in a session's conversation log. Sessions themselves
// are just the set of turns sharing a session id; history is bounded and
// inactive sessions are evicted after the configured TTL.
type Turn struct {
	SessionID string    `json:"session_id"`
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
