package models

import "time"

// GroupRole represents a user's role within a specific group
type GroupRole string

const (
	GroupRoleAdmin GroupRole = "admin"
	GroupRoleUser  GroupRole = "user"
)

// Valid reports whether the role is one of the two known values.
// Unknown role strings are rejected at the request boundary; the service
// layer can assume validated input.
func (r GroupRole) Valid() bool {
	return r == GroupRoleAdmin || r == GroupRoleUser
}

// GroupMembership represents the many-to-many relationship between users
// and groups. A user holds exactly one role per group; the membership is
// keyed by the federated identity rather than the local user row.
type GroupMembership struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	GroupID       uint      `gorm:"not null;uniqueIndex:idx_group_member" json:"group_id"`
	EntraObjectID string    `gorm:"size:36;not null;uniqueIndex:idx_group_member" json:"entra_object_id"`
	Role          GroupRole `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt     time.Time `json:"created_at"`

	// Relationships
	Group Group `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}
