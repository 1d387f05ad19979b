package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/models"
)

// UserService manages the local row behind a federated identity.
type UserService struct{}

// NewUserService creates a new user service
func NewUserService() *UserService {
	return &UserService{}
}

// EnsureUser creates the user row for an Entra object ID if it does not
// exist, or refreshes the profile fields if it does. The unique index on
// entra_object_id is the backstop against concurrent provisioning: on a
// lost race the winner's row is reread and updated instead.
func (s *UserService) EnsureUser(tx *gorm.DB, entraObjectID, displayName, email string) (*models.User, error) {
	var user models.User
	err := tx.Where("entra_object_id = ?", entraObjectID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			EntraObjectID: entraObjectID,
			DisplayName:   displayName,
			Email:         email,
		}
		err = tx.Create(&user).Error
		if err == nil {
			return &user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		if err := tx.Where("entra_object_id = ?", entraObjectID).First(&user).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	user.Email = email
	if err := tx.Save(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEntraID returns the user row for a federated identity.
func (s *UserService) GetUserByEntraID(tx *gorm.DB, entraObjectID string) (*models.User, error) {
	var user models.User
	if err := tx.Where("entra_object_id = ?", entraObjectID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
