package models

import "time"

// Agent is a registrable resource. An agent is created together with its
// first group link and may be assigned to additional groups afterwards.
type Agent struct {
	ID              uint      `gorm:"primarykey" json:"id"`
	AgentExternalID string    `gorm:"uniqueIndex;size:255;not null" json:"agent_external_id"`
	Name            string    `gorm:"size:255;not null" json:"name"`
	CreatedBy       string    `gorm:"size:36" json:"created_by"` // Entra object ID of the registering user
	CreatedAt       time.Time `json:"created_at"`
}
