package models

import "time"

// Conversation is a named chat transcript. The id is assigned by the
// datastore on insert; the name is cosmetic and not unique.
type Conversation struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"size:120;not null" json:"name"`
	Messages  Transcript `gorm:"not null" json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
