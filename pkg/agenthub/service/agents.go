package service

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/models"
)

// AgentService enforces the referential and uniqueness rules around agent
// registration and group assignment, and computes the authorization-scoped
// view of agents for a caller. It holds no per-request state: every method
// operates on the transaction it is handed, so callers decide the unit of
// work. Mutating methods are expected to run inside db.Transaction — any
// error returned rolls the whole unit back.
type AgentService struct {
	log *logrus.Entry
}

// NewAgentService creates a new agent service
func NewAgentService() *AgentService {
	return &AgentService{log: logrus.WithField("component", "agents")}
}

// AgentGroup is one group reference inside a UserAgent entry.
type AgentGroup struct {
	GroupID   uint   `json:"group_id"`
	GroupName string `json:"group_name"`
}

// UserAgent is one agent in a caller's visible set, together with the
// groups that put it in scope.
type UserAgent struct {
	ID              uint         `json:"id"`
	AgentExternalID string       `json:"agent_external_id"`
	Name            string       `json:"name"`
	CreatedBy       string       `json:"created_by"`
	CreatedAt       time.Time    `json:"created_at"`
	Groups          []AgentGroup `json:"groups"`
}

// RegisterAgent creates a new agent and links it to its first group.
// The agent row and the link land in the same transaction: a duplicate
// external ID, or any failure on the link insert, leaves nothing behind.
func (s *AgentService) RegisterAgent(tx *gorm.DB, externalID, name string, groupID uint, createdBy string) (*models.Agent, error) {
	if err := tx.First(&models.Group{}, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	agent := models.Agent{
		AgentExternalID: externalID,
		Name:            name,
		CreatedBy:       createdBy,
	}
	if err := tx.Create(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAgent
		}
		return nil, err
	}

	link := models.GroupAgent{
		GroupID: groupID,
		AgentID: agent.ID,
		AddedBy: createdBy,
	}
	if err := tx.Create(&link).Error; err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"agent_id":    agent.ID,
		"external_id": externalID,
		"group_id":    groupID,
	}).Info("registered agent")
	return &agent, nil
}

// AssignAgentToGroup links an existing agent to an additional group.
// The group is checked before the agent so the caller learns which side
// of the pair is missing.
func (s *AgentService) AssignAgentToGroup(tx *gorm.DB, groupID, agentID uint, addedBy string) (*models.GroupAgent, error) {
	if err := tx.First(&models.Group{}, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}
	if err := tx.First(&models.Agent{}, agentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}

	link := models.GroupAgent{
		GroupID: groupID,
		AgentID: agentID,
		AddedBy: addedBy,
	}
	if err := tx.Create(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateAssignment
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"agent_id": agentID,
		"group_id": groupID,
	}).Info("assigned agent to group")
	return &link, nil
}

// RemoveAgentFromGroup deletes the link between a group and an agent.
// Removing a link that does not exist is an error, not a no-op.
func (s *AgentService) RemoveAgentFromGroup(tx *gorm.DB, groupID, agentID uint) error {
	result := tx.Where("group_id = ? AND agent_id = ?", groupID, agentID).Delete(&models.GroupAgent{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}

	s.log.WithFields(logrus.Fields{
		"agent_id": agentID,
		"group_id": groupID,
	}).Info("removed agent from group")
	return nil
}

// ListAgentsInGroup returns every agent linked to the group.
func (s *AgentService) ListAgentsInGroup(tx *gorm.DB, groupID uint) ([]models.Agent, error) {
	if err := tx.First(&models.Group{}, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		return nil, err
	}

	var agents []models.Agent
	err := tx.Joins("JOIN group_agents ON group_agents.agent_id = agents.id").
		Where("group_agents.group_id = ?", groupID).
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

// GetAdminGroups returns every group in which the given identity holds the
// admin role. A user with no admin groups gets an empty list, not an error.
func (s *AgentService) GetAdminGroups(tx *gorm.DB, entraObjectID string) ([]models.Group, error) {
	var groups []models.Group
	err := tx.Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
		Where("group_memberships.entra_object_id = ? AND group_memberships.role = ?", entraObjectID, models.GroupRoleAdmin).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

// userAgentRow is one (agent, group) pair from the visibility join.
type userAgentRow struct {
	ID              uint
	AgentExternalID string
	Name            string
	CreatedBy       string
	CreatedAt       time.Time
	GroupID         uint
	GroupName       string
}

// GetUserAgents resolves the caller's visible-agent set. A superadmin sees
// every agent joined against every group it belongs to and does not need a
// user row; anyone else must exist as a user and sees the agents of groups
// where they hold any role.
//
// The query orders by agent ID then group ID and the fold below relies on
// that: entries appear in first-appearance (ascending agent ID) order and
// are never re-sorted in memory.
func (s *AgentService) GetUserAgents(tx *gorm.DB, entraObjectID string, isSuperadmin bool) ([]UserAgent, error) {
	q := tx.Table("agents").
		Select("agents.id, agents.agent_external_id, agents.name, agents.created_by, agents.created_at, groups.id AS group_id, groups.name AS group_name").
		Joins("JOIN group_agents ON group_agents.agent_id = agents.id").
		Joins("JOIN groups ON groups.id = group_agents.group_id")

	if !isSuperadmin {
		if err := tx.Where("entra_object_id = ?", entraObjectID).First(&models.User{}).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, err
		}
		q = q.Joins("JOIN group_memberships ON group_memberships.group_id = groups.id").
			Where("group_memberships.entra_object_id = ?", entraObjectID)
	}

	var rows []userAgentRow
	if err := q.Order("agents.id, groups.id").Scan(&rows).Error; err != nil {
		return nil, err
	}

	agents := make([]UserAgent, 0, len(rows))
	index := make(map[uint]int, len(rows))
	for _, row := range rows {
		i, seen := index[row.ID]
		if !seen {
			agents = append(agents, UserAgent{
				ID:              row.ID,
				AgentExternalID: row.AgentExternalID,
				Name:            row.Name,
				CreatedBy:       row.CreatedBy,
				CreatedAt:       row.CreatedAt,
				Groups:          []AgentGroup{},
			})
			i = len(agents) - 1
			index[row.ID] = i
		}

		group := AgentGroup{GroupID: row.GroupID, GroupName: row.GroupName}
		duplicate := false
		for _, g := range agents[i].Groups {
			if g == group {
				duplicate = true
				break
			}
		}
		if !duplicate {
			agents[i].Groups = append(agents[i].Groups, group)
		}
	}
	return agents, nil
}
