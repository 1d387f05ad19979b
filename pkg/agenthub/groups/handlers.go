package groups

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/identity"
	"github.com/mikepea/agenthub/pkg/agenthub/models"
	"github.com/mikepea/agenthub/pkg/agenthub/service"
)

// Handler handles group-related requests
type Handler struct {
	db      *gorm.DB
	members *service.MembershipService
}

// NewHandler creates a new groups handler
func NewHandler(db *gorm.DB, members *service.MembershipService) *Handler {
	return &Handler{db: db, members: members}
}

// CreateGroupRequest represents the request to create a group
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"max=1000"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Role        string `json:"role,omitempty"` // Caller's role in this group
}

// List returns the groups visible to the caller
// @Summary List groups
// @Description Superadmins see all groups; everyone else sees groups they are a member of
// @Tags groups
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /groups [get]
func (h *Handler) List(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	if identity.IsSuperadmin(c) {
		var groups []models.Group
		if err := h.db.Find(&groups).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
			return
		}
		responses := make([]GroupResponse, len(groups))
		for i, g := range groups {
			responses[i] = GroupResponse{ID: g.ID, Name: g.Name, Description: g.Description}
		}
		c.JSON(http.StatusOK, responses)
		return
	}

	var memberships []models.GroupMembership
	if err := h.db.Preload("Group").Where("entra_object_id = ?", callerID).Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}

	responses := make([]GroupResponse, len(memberships))
	for i, m := range memberships {
		responses[i] = GroupResponse{
			ID:          m.Group.ID,
			Name:        m.Group.Name,
			Description: m.Group.Description,
			Role:        string(m.Role),
		}
	}
	c.JSON(http.StatusOK, responses)
}

// Create creates a new group and adds the creator as admin
// @Summary Create a group
// @Tags groups
// @Accept json
// @Produce json
// @Param request body CreateGroupRequest true "Group details"
// @Success 201 {object} GroupResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Router /groups [post]
func (h *Handler) Create(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var group models.Group
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		group = models.Group{
			Name:        req.Name,
			Description: req.Description,
		}
		if err := tx.Create(&group).Error; err != nil {
			return err
		}

		// Add creator as admin
		membership := models.GroupMembership{
			GroupID:       group.ID,
			EntraObjectID: callerID,
			Role:          models.GroupRoleAdmin,
		}
		return tx.Create(&membership).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Role:        string(models.GroupRoleAdmin),
	})
}

// Get returns a specific group
// @Summary Get a group
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {object} GroupResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var role string
	if !identity.IsSuperadmin(c) {
		// Non-members don't learn whether the group exists
		var membership models.GroupMembership
		if err := h.db.Where("entra_object_id = ? AND group_id = ?", callerID, groupID).First(&membership).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "group_not_found"})
			return
		}
		role = string(membership.Role)
	}

	var group models.Group
	if err := h.db.First(&group, groupID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "group_not_found"})
		return
	}

	c.JSON(http.StatusOK, GroupResponse{
		ID:          group.ID,
		Name:        group.Name,
		Description: group.Description,
		Role:        role,
	})
}

// RegisterRoutes registers group routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Get)
}
