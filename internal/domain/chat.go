package domain

import "context"

// Role tags a conversation turn.
type Role string

// Conversation roles understood by generation providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Generator is the language model contract. The engine consumes final text
// only; streaming is a provider concern.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}
