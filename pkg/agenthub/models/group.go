package models

import "time"

// Group is a named collection scope. Groups own agents (via GroupAgent)
// and users (via GroupMembership).
type Group struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"size:1000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Members []GroupMembership `gorm:"foreignKey:GroupID" json:"members,omitempty"`
	Agents  []GroupAgent      `gorm:"foreignKey:GroupID" json:"agents,omitempty"`
}
