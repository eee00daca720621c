package services

import "FitCoachAI/models"

// CoachPrompt is the fixed persona of the assistant.
const CoachPrompt = "You are a professional fitness coach specializing in workout plans, nutrition, and healthy living. " +
	"Only respond to fitness-related questions. If the input is not fitness-related, politely inform the user " +
	"that you can only answer fitness-related questions."

// BuildPrompt lays out the coach persona, the conversation's remembered
// turns and the new user input.
func BuildPrompt(history []models.Message, input string) []ChatMessage {
	msgs := make([]ChatMessage, 0, len(history)+2)
	msgs = append(msgs, ChatMessage{Role: RoleSystem, Content: CoachPrompt})
	for _, m := range history {
		role := RoleUser
		if m.Role == models.RoleAssistant {
			role = RoleAssistant
		}
		msgs = append(msgs, ChatMessage{Role: role, Content: m.Content})
	}
	return append(msgs, ChatMessage{Role: RoleUser, Content: input})
}
