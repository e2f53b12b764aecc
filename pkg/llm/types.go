package llm

// Message is a role-tagged chat message in provider vocabulary.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider role vocabulary.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Config holds common configuration for providers.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}
