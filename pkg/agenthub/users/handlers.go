package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/identity"
	"github.com/mikepea/agenthub/pkg/agenthub/models"
	"github.com/mikepea/agenthub/pkg/agenthub/service"
)

// Handler handles user provisioning requests
type Handler struct {
	db  *gorm.DB
	svc *service.UserService
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB, svc *service.UserService) *Handler {
	return &Handler{db: db, svc: svc}
}

// ProvisionRequest represents the request to provision the calling identity
type ProvisionRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=255"`
	Email       string `json:"email" binding:"required,email,max=255"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            uint      `json:"id"`
	EntraObjectID string    `json:"entra_object_id"`
	DisplayName   string    `json:"display_name"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func userResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		EntraObjectID: u.EntraObjectID,
		DisplayName:   u.DisplayName,
		Email:         u.Email,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

// Provision creates or refreshes the caller's user row
// @Summary Provision the calling identity
// @Description Creates the user row for the caller's federated identity, or updates its profile fields
// @Tags users
// @Accept json
// @Produce json
// @Param request body ProvisionRequest true "Profile details"
// @Success 200 {object} UserResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Router /users [post]
func (h *Handler) Provision(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	var req ProvisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user *models.User
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = h.svc.EnsureUser(tx, callerID, req.DisplayName, req.Email)
		return err
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to provision user"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

// Me returns the caller's user row
// @Summary Get the calling user
// @Tags users
// @Produce json
// @Success 200 {object} UserResponse
// @Failure 404 {object} map[string]string "User not found"
// @Router /me [get]
func (h *Handler) Me(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	user, err := h.svc.GetUserByEntraID(h.db, callerID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, userResponse(user))
}

// RegisterRoutes registers user routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/users", h.Provision)
	rg.GET("/me", h.Me)
}
