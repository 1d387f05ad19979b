package agents

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/identity"
	"github.com/mikepea/agenthub/pkg/agenthub/models"
	"github.com/mikepea/agenthub/pkg/agenthub/service"
)

// Handler handles agent registry requests
type Handler struct {
	db  *gorm.DB
	svc *service.AgentService
}

// NewHandler creates a new agents handler
func NewHandler(db *gorm.DB, svc *service.AgentService) *Handler {
	return &Handler{db: db, svc: svc}
}

// RegisterAgentRequest represents the request to register a new agent
type RegisterAgentRequest struct {
	AgentExternalID string `json:"agent_external_id" binding:"required,min=1,max=255"`
	Name            string `json:"name" binding:"required,min=1,max=255"`
	GroupID         uint   `json:"group_id" binding:"required"`
}

// AssignAgentRequest represents the request to assign an agent to a group
type AssignAgentRequest struct {
	AgentID uint `json:"agent_id" binding:"required"`
}

// AgentResponse represents an agent in API responses
type AgentResponse struct {
	ID              uint      `json:"id"`
	AgentExternalID string    `json:"agent_external_id"`
	Name            string    `json:"name"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// AssignmentResponse represents a group-agent link in API responses
type AssignmentResponse struct {
	ID        uint      `json:"id"`
	GroupID   uint      `json:"group_id"`
	AgentID   uint      `json:"agent_id"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupResponse represents a group in API responses
type GroupResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func agentResponse(a *models.Agent) AgentResponse {
	return AgentResponse{
		ID:              a.ID,
		AgentExternalID: a.AgentExternalID,
		Name:            a.Name,
		CreatedBy:       a.CreatedBy,
		CreatedAt:       a.CreatedAt,
	}
}

// serviceError maps a service failure to its HTTP status. The error text of
// the typed failures doubles as the machine-readable code.
func serviceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrAgentNotFound),
		errors.Is(err, service.ErrAssignmentNotFound),
		errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateAgent),
		errors.Is(err, service.ErrDuplicateAssignment):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// Register registers a new agent in a group
// @Summary Register an agent
// @Description Register a new agent and assign it to its first group
// @Tags agents
// @Accept json
// @Produce json
// @Param request body RegisterAgentRequest true "Agent details"
// @Success 201 {object} AgentResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Failure 409 {object} map[string]string "Duplicate agent"
// @Router /agents [post]
func (h *Handler) Register(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var agent *models.Agent
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		agent, err = h.svc.RegisterAgent(tx, req.AgentExternalID, req.Name, req.GroupID, callerID)
		return err
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, agentResponse(agent))
}

// Assign assigns an existing agent to an additional group
// @Summary Assign an agent to a group
// @Tags agents
// @Accept json
// @Produce json
// @Param id path int true "Group ID"
// @Param request body AssignAgentRequest true "Agent to assign"
// @Success 201 {object} AssignmentResponse
// @Failure 404 {object} map[string]string "Group or agent not found"
// @Failure 409 {object} map[string]string "Duplicate assignment"
// @Router /groups/{id}/agents [post]
func (h *Handler) Assign(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	var req AssignAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var link *models.GroupAgent
	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		link, err = h.svc.AssignAgentToGroup(tx, uint(groupID), req.AgentID, callerID)
		return err
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AssignmentResponse{
		ID:        link.ID,
		GroupID:   link.GroupID,
		AgentID:   link.AgentID,
		AddedBy:   link.AddedBy,
		CreatedAt: link.CreatedAt,
	})
}

// Remove removes an agent from a group
// @Summary Remove an agent from a group
// @Tags agents
// @Produce json
// @Param id path int true "Group ID"
// @Param agentId path int true "Agent ID"
// @Success 200 {object} map[string]string "Agent removed"
// @Failure 404 {object} map[string]string "Assignment not found"
// @Router /groups/{id}/agents/{agentId} [delete]
func (h *Handler) Remove(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}
	agentID, err := strconv.ParseUint(c.Param("agentId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid agent ID"})
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return h.svc.RemoveAgentFromGroup(tx, uint(groupID), uint(agentID))
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Agent removed from group"})
}

// ListInGroup lists all agents assigned to a group
// @Summary List agents in a group
// @Tags agents
// @Produce json
// @Param id path int true "Group ID"
// @Success 200 {array} AgentResponse
// @Failure 404 {object} map[string]string "Group not found"
// @Router /groups/{id}/agents [get]
func (h *Handler) ListInGroup(c *gin.Context) {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid group ID"})
		return
	}

	agents, err := h.svc.ListAgentsInGroup(h.db, uint(groupID))
	if err != nil {
		serviceError(c, err)
		return
	}

	responses := make([]AgentResponse, len(agents))
	for i := range agents {
		responses[i] = agentResponse(&agents[i])
	}
	c.JSON(http.StatusOK, responses)
}

// ListMine returns the caller's visible-agent set
// @Summary List the caller's visible agents
// @Description Superadmins see every agent; everyone else sees agents of groups they belong to
// @Tags agents
// @Produce json
// @Success 200 {array} service.UserAgent
// @Failure 404 {object} map[string]string "User not found"
// @Router /me/agents [get]
func (h *Handler) ListMine(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	agents, err := h.svc.GetUserAgents(h.db, callerID, identity.IsSuperadmin(c))
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusOK, agents)
}

// AdminGroups returns the groups the caller administers
// @Summary List groups where the caller holds the admin role
// @Tags agents
// @Produce json
// @Success 200 {array} GroupResponse
// @Router /me/admin-groups [get]
func (h *Handler) AdminGroups(c *gin.Context) {
	callerID, _ := identity.GetEntraObjectID(c)

	groups, err := h.svc.GetAdminGroups(h.db, callerID)
	if err != nil {
		serviceError(c, err)
		return
	}

	responses := make([]GroupResponse, len(groups))
	for i, g := range groups {
		responses[i] = GroupResponse{ID: g.ID, Name: g.Name, Description: g.Description}
	}
	c.JSON(http.StatusOK, responses)
}

// RegisterRoutes registers agent registry routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/agents", h.Register)
	rg.GET("/me/agents", h.ListMine)
	rg.GET("/me/admin-groups", h.AdminGroups)
	rg.POST("/groups/:id/agents", h.Assign)
	rg.GET("/groups/:id/agents", h.ListInGroup)
	rg.DELETE("/groups/:id/agents/:agentId", h.Remove)
}
