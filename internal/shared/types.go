package shared

import "time"

type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleSystem || r == RoleUser
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRecord is the stored unit of one dispatched request and its responses.
// Responses line up with Models by index.
type ChatRecord struct {
	ID          string        `json:"_id"`
	Models      []string      `json:"models"`
	Messages    []ChatMessage `json:"messages"`
	Responses   []string      `json:"responses"`
	Timestamp   time.Time     `json:"timestamp"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens"`
	ImageURL    *string       `json:"image_url,omitempty"`
}

type Preview struct {
	ID        string    `json:"id"`
	Preview   string    `json:"preview"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorBody struct {
	Detail string `json:"detail"`
}
