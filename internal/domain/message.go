package domain

// Message roles stored in the conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StoredMessage is a persisted conversation history entry.
type StoredMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
