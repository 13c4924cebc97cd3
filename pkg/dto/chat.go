package dto

type ChatHistoryItem struct {
	Role    any `json:"role"`
	Content any `json:"content"`
}

// ChatRequest keeps Message untyped so a non-string value can be rejected as a validation error.
type ChatRequest struct {
	Message             any               `json:"message"`
	ConversationHistory []ChatHistoryItem `json:"conversation_history"`
}

type ChatMessageResponse struct {
	ID        any `json:"id"`
	Role      any `json:"role"`
	Content   any `json:"content"`
	Timestamp any `json:"timestamp"`
}
