package models

import "gorm.io/datatypes"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered message sequence of a conversation, stored as a
// single JSON column. Append order is significant.
type Transcript = datatypes.JSONSlice[Message]

// Exchange returns the user/assistant pair recorded for one chat turn.
func Exchange(input, reply string) []Message {
	return []Message{
		{Role: RoleUser, Content: input},
		{Role: RoleAssistant, Content: reply},
	}
}
