package models

import "time"

// User anchors an externally federated identity to a local row.
// Exactly one row exists per Entra object ID; provisioning updates the
// profile fields in place rather than creating duplicates.
type User struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	EntraObjectID string    `gorm:"uniqueIndex;size:36;not null" json:"entra_object_id"`
	DisplayName   string    `gorm:"size:255" json:"display_name"`
	Email         string    `gorm:"size:255" json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
