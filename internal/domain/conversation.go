package domain

// Role tags a message with its author.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is a single user or assistant utterance within a session.
type ConversationTurn struct {
	Role    Role
	Content string
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleUser, Content: content}
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content string) ConversationTurn {
	return ConversationTurn{Role: RoleAssistant, Content: content}
}

// Message is a role-tagged entry of the prompt sent to the completion provider.
type Message struct {
	Role    Role
	Content string
}

// GenerationParams are the fixed knobs passed alongside a prompt.
type GenerationParams struct {
	Model       string
	Temperature float32
	MaxTokens   int
}
