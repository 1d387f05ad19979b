package service

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/models"
)

// MembershipService enforces the same existence-check-before-write and
// uniqueness discipline as AgentService, for group memberships.
type MembershipService struct {
	log *logrus.Entry
}

// NewMembershipService creates a new membership service
func NewMembershipService() *MembershipService {
	return &MembershipService{log: logrus.WithField("component", "memberships")}
}

// Member is the external view of a group membership, joined with the
// member's directory fields.
type Member struct {
	EntraObjectID string           `json:"entra_object_id"`
	DisplayName   string           `json:"display_name"`
	Email         string           `json:"email"`
	Role          models.GroupRole `json:"role"`
	CreatedAt     time.Time        `json:"created_at"`
}

// AddMember adds a user to a group with a role. The group and the user must
// both exist; a user holds at most one membership per group.
func (s *MembershipService) AddMember(tx *gorm.DB, groupID uint, entraObjectID string, role models.GroupRole) (*Member, error) {
	if err := tx.First(&models.Group{}, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	var user models.User
	if err := tx.Where("entra_object_id = ?", entraObjectID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	membership := models.GroupMembership{
		GroupID:       groupID,
		EntraObjectID: entraObjectID,
		Role:          role,
	}
	if err := tx.Create(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateMembership
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"group_id":        groupID,
		"entra_object_id": entraObjectID,
		"role":            role,
	}).Info("added group member")
	return &Member{
		EntraObjectID: user.EntraObjectID,
		DisplayName:   user.DisplayName,
		Email:         user.Email,
		Role:          membership.Role,
		CreatedAt:     membership.CreatedAt,
	}, nil
}

// UpdateMemberRole changes an existing member's role.
func (s *MembershipService) UpdateMemberRole(tx *gorm.DB, groupID uint, entraObjectID string, role models.GroupRole) (*Member, error) {
	var membership models.GroupMembership
	if err := tx.Where("group_id = ? AND entra_object_id = ?", groupID, entraObjectID).First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, err
	}

	membership.Role = role
	if err := tx.Save(&membership).Error; err != nil {
		return nil, err
	}

	var user models.User
	if err := tx.Where("entra_object_id = ?", entraObjectID).First(&user).Error; err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"group_id":        groupID,
		"entra_object_id": entraObjectID,
		"role":            role,
	}).Info("updated member role")
	return &Member{
		EntraObjectID: user.EntraObjectID,
		DisplayName:   user.DisplayName,
		Email:         user.Email,
		Role:          membership.Role,
		CreatedAt:     membership.CreatedAt,
	}, nil
}

// RemoveMember deletes a user's membership in a group. Removing a
// membership that does not exist is an error, not a no-op.
func (s *MembershipService) RemoveMember(tx *gorm.DB, groupID uint, entraObjectID string) error {
	result := tx.Where("group_id = ? AND entra_object_id = ?", groupID, entraObjectID).Delete(&models.GroupMembership{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}

	s.log.WithFields(logrus.Fields{
		"group_id":        groupID,
		"entra_object_id": entraObjectID,
	}).Info("removed group member")
	return nil
}

// ListMembers returns every member of the group with their directory fields.
func (s *MembershipService) ListMembers(tx *gorm.DB, groupID uint) ([]Member, error) {
	if err := tx.First(&models.Group{}, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	var members []Member
	err := tx.Table("group_memberships").
		Select("users.entra_object_id, users.display_name, users.email, group_memberships.role, group_memberships.created_at").
		Joins("JOIN users ON users.entra_object_id = group_memberships.entra_object_id").
		Where("group_memberships.group_id = ?", groupID).
		Order("group_memberships.id").
		Scan(&members).Error
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []Member{}
	}
	return members, nil
}
