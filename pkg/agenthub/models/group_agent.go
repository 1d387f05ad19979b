package models

import "time"

// GroupAgent links an agent to a group. A (group, agent) pair is unique —
// assigning the same agent to the same group twice is a conflict.
type GroupAgent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	GroupID   uint      `gorm:"not null;uniqueIndex:idx_group_agent" json:"group_id"`
	AgentID   uint      `gorm:"not null;uniqueIndex:idx_group_agent" json:"agent_id"`
	AddedBy   string    `gorm:"size:36" json:"added_by"` // Entra object ID of whoever added the link
	CreatedAt time.Time `json:"created_at"`

	// Relationships
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Agent Agent `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}
