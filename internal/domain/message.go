package domain

import "time"

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage is the wire-format message sent to the chat-completions endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationTurn is one entry of the session history. User turns carry only
// Content; assistant turns additionally carry the raw response, the parsed
// parts and, when the statement was executed, the result.
type ConversationTurn struct {
	Role             MessageRole  `json:"role"`
	Content          string       `json:"content"`
	SQL              string       `json:"sql,omitempty"`
	Explanation      string       `json:"explanation,omitempty"`
	EducationalNotes string       `json:"educational_notes,omitempty"`
	Result           *QueryResult `json:"result,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}
