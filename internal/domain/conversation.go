package domain

// Chat roles as stored in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a persisted chat history keyed by an opaque identifier.
type Conversation struct {
	ID       string    `json:"conversation_id"`
	Messages []Message `json:"chat_history"`
}

// LastUserMessage returns the content of the most recent user turn.
func LastUserMessage(history []Message) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content, true
		}
	}
	return "", false
}
