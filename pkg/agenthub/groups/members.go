package groups

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/identity"
	"github.com/mikepea/agenthub/pkg/agenthub/models"
	"github.com/mikepea/agenthub/pkg/agenthub/service"
)

// AddMemberRequest represents a request to add a member
type AddMemberRequest struct {
	EntraObjectID string `json:"entra_object_id" binding:"required,min=1,max=36"`
	Role          string `json:"role" binding:"omitempty,oneof=admin user"`
}

// UpdateMemberRequest represents a request to update a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,oneof=admin user"`
}

// memberError maps a membership service failure to its HTTP status.
func memberError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateMembership):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// requireGroupAdmin aborts unless the caller is a superadmin or holds the
// admin role in the group. Returns false when the request was aborted.
func (h *Handler) requireGroupAdmin(c *gin.Context, groupID uint) bool {
	if identity.IsSuperadmin(c) {
		return true
	}

	callerID, _ := identity.GetEntraObjectID(c)
	err := h.db.Where("entra_object_id = ? AND group_id = ? AND role = ?", callerID, groupID, models.GroupRoleAdmin).
		First(&models.GroupMembership{}).Error
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		c.Abort()
		return false
	}
	return true
}

// ListMembers returns all members of a group
// @Summary List group members
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} service.Member
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{id}/members [get]
func (h *Handler) ListMembers(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	members, err := h.members.ListMembers(h.db, uint(groupID))
	if err != nil {
		memberError(c, err)
		return
	}

	c.JSON(http.StatusOK, members)
}

// AddMember adds a user to a group (group admin only)
// @Summary Add a group member
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body AddMemberRequest true "Member details"
// @Success 201 {object} service.Member
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "Group or user not found"
// @Failure 409 {object} map[string]string "Duplicate membership"
// @Router /groups/{id}/members [post]
func (h *Handler) AddMember(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	if !h.requireGroupAdmin(c, uint(groupID)) {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := models.GroupRole(req.Role)
	if req.Role == "" {
		role = models.GroupRoleUser
	}

	var member *service.Member
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		member, err = h.members.AddMember(tx, uint(groupID), req.EntraObjectID, role)
		return err
	})
	if err != nil {
		memberError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// UpdateMember updates a member's role (group admin only)
// @Summary Update a group member's role
// @Tags groups
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param objectId path string true "Member Entra object ID"
// @Param request body UpdateMemberRequest true "New role"
// @Success 200 {object} service.Member
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "Member not found"
// @Router /groups/{id}/members/{objectId} [put]
func (h *Handler) UpdateMember(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	if !h.requireGroupAdmin(c, uint(groupID)) {
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var member *service.Member
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		member, err = h.members.UpdateMemberRole(tx, uint(groupID), c.Param("objectId"), models.GroupRole(req.Role))
		return err
	})
	if err != nil {
		memberError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

// RemoveMember removes a user from a group (group admin only)
// @Summary Remove a group member
// @Tags groups
// @Produce json
// @Param id path int true "Group ID"
// @Param objectId path string true "Member Entra object ID"
// @Success 200 {object} map[string]string "Member removed"
// @Failure 403 {object} map[string]string "Admin access required"
// @Failure 404 {object} map[string]string "Member not found"
// @Router /groups/{id}/members/{objectId} [delete]
func (h *Handler) RemoveMember(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	if !h.requireGroupAdmin(c, uint(groupID)) {
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return h.members.RemoveMember(tx, uint(groupID), c.Param("objectId"))
	})
	if err != nil {
		memberError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// RegisterMemberRoutes registers member management routes
func (h *Handler) RegisterMemberRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/members", h.ListMembers)
	rg.POST("/:id/members", h.AddMember)
	rg.PUT("/:id/members/:objectId", h.UpdateMember)
	rg.DELETE("/:id/members/:objectId", h.RemoveMember)
}
