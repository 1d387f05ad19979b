package service

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mikepea/agenthub/pkg/agenthub/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func createTestGroup(t *testing.T, db *gorm.DB, name string) models.Group {
	group := models.Group{Name: name}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create test group: %v", err)
	}
	return group
}

func createTestUser(t *testing.T, db *gorm.DB, objectID, name string) models.User {
	user := models.User{
		EntraObjectID: objectID,
		DisplayName:   name,
		Email:         objectID + "@example.com",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func addTestMembership(t *testing.T, db *gorm.DB, groupID uint, objectID string, role models.GroupRole) {
	membership := models.GroupMembership{
		GroupID:       groupID,
		EntraObjectID: objectID,
		Role:          role,
	}
	if err := db.Create(&membership).Error; err != nil {
		t.Fatalf("Failed to create test membership: %v", err)
	}
}

// registerTx runs RegisterAgent the way handlers do: inside a transaction
// that rolls back on error.
func registerTx(db *gorm.DB, svc *AgentService, externalID, name string, groupID uint, createdBy string) (*models.Agent, error) {
	var agent *models.Agent
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		agent, err = svc.RegisterAgent(tx, externalID, name, groupID, createdBy)
		return err
	})
	return agent, err
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	var count int64
	if err := db.Model(model).Count(&count).Error; err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return count
}

func TestRegisterAgent(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	group := createTestGroup(t, db, "eng")

	agent, err := registerTx(db, svc, "ext-1", "bot-1", group.ID, "u1")
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}
	if agent.ID == 0 {
		t.Error("Expected agent ID to be set after register")
	}
	if agent.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set after register")
	}
	if agent.CreatedBy != "u1" {
		t.Errorf("Expected created_by u1, got %s", agent.CreatedBy)
	}

	// The first group link must be committed with the agent
	var link models.GroupAgent
	if err := db.Where("group_id = ? AND agent_id = ?", group.ID, agent.ID).First(&link).Error; err != nil {
		t.Fatalf("Expected group link to exist: %v", err)
	}
	if link.AddedBy != "u1" {
		t.Errorf("Expected added_by u1, got %s", link.AddedBy)
	}
}

func TestRegisterAgentUnknownGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()

	_, err := registerTx(db, svc, "ext-1", "bot-1", 999, "u1")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("Expected ErrGroupNotFound, got %v", err)
	}

	// No agent row may survive a failed register
	if count := countRows(t, db, &models.Agent{}); count != 0 {
		t.Errorf("Expected 0 agents after failed register, got %d", count)
	}
}

func TestRegisterAgentDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	group := createTestGroup(t, db, "eng")

	if _, err := registerTx(db, svc, "ext-1", "bot-1", group.ID, "u1"); err != nil {
		t.Fatalf("First register failed: %v", err)
	}
	_, err := registerTx(db, svc, "ext-1", "bot-2", group.ID, "u2")
	if !errors.Is(err, ErrDuplicateAgent) {
		t.Fatalf("Expected ErrDuplicateAgent, got %v", err)
	}

	if count := countRows(t, db, &models.Agent{}); count != 1 {
		t.Errorf("Expected exactly 1 agent, got %d", count)
	}
	if count := countRows(t, db, &models.GroupAgent{}); count != 1 {
		t.Errorf("Expected exactly 1 group link, got %d", count)
	}
}

func TestAssignAgentToGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	agent, _ := registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")

	link, err := svc.AssignAgentToGroup(db, ops.ID, agent.ID, "u2")
	if err != nil {
		t.Fatalf("AssignAgentToGroup failed: %v", err)
	}
	if link.ID == 0 {
		t.Error("Expected link ID to be set after assign")
	}
	if link.AddedBy != "u2" {
		t.Errorf("Expected added_by u2, got %s", link.AddedBy)
	}
}

func TestAssignAgentChecksGroupFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()

	// Both sides missing: the group check runs first
	_, err := svc.AssignAgentToGroup(db, 999, 888, "u1")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("Expected ErrGroupNotFound, got %v", err)
	}

	group := createTestGroup(t, db, "eng")
	_, err = svc.AssignAgentToGroup(db, group.ID, 888, "u1")
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("Expected ErrAgentNotFound, got %v", err)
	}
}

func TestAssignAgentDuplicate(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	group := createTestGroup(t, db, "eng")
	agent, _ := registerTx(db, svc, "ext-1", "bot-1", group.ID, "u1")

	// Registration already linked the agent to the group
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AssignAgentToGroup(tx, group.ID, agent.ID, "u2")
		return err
	})
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("Expected ErrDuplicateAssignment, got %v", err)
	}

	if count := countRows(t, db, &models.GroupAgent{}); count != 1 {
		t.Errorf("Expected exactly 1 group link, got %d", count)
	}
}

func TestRemoveAgentFromGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	group := createTestGroup(t, db, "eng")
	agent, _ := registerTx(db, svc, "ext-1", "bot-1", group.ID, "u1")

	if err := svc.RemoveAgentFromGroup(db, group.ID, agent.ID); err != nil {
		t.Fatalf("RemoveAgentFromGroup failed: %v", err)
	}
	if count := countRows(t, db, &models.GroupAgent{}); count != 0 {
		t.Errorf("Expected 0 group links after remove, got %d", count)
	}

	// Removal is not idempotent
	err := svc.RemoveAgentFromGroup(db, group.ID, agent.ID)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("Expected ErrAssignmentNotFound, got %v", err)
	}
}

func TestRemoveAgentUnknownPairLeavesRows(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	agent, _ := registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")

	// Agent is linked to eng, not ops
	err := svc.RemoveAgentFromGroup(db, ops.ID, agent.ID)
	if !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("Expected ErrAssignmentNotFound, got %v", err)
	}
	if count := countRows(t, db, &models.GroupAgent{}); count != 1 {
		t.Errorf("Expected existing link to be untouched, got %d links", count)
	}
}

func TestListAgentsInGroup(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")
	registerTx(db, svc, "ext-2", "bot-2", eng.ID, "u1")
	registerTx(db, svc, "ext-3", "bot-3", ops.ID, "u1")

	agents, err := svc.ListAgentsInGroup(db, eng.ID)
	if err != nil {
		t.Fatalf("ListAgentsInGroup failed: %v", err)
	}
	if len(agents) != 2 {
		t.Errorf("Expected 2 agents in eng, got %d", len(agents))
	}

	if _, err := svc.ListAgentsInGroup(db, 999); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("Expected ErrGroupNotFound, got %v", err)
	}
}

func TestGetAdminGroups(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	createTestUser(t, db, "u1", "User One")
	addTestMembership(t, db, eng.ID, "u1", models.GroupRoleAdmin)
	addTestMembership(t, db, ops.ID, "u1", models.GroupRoleUser)

	groups, err := svc.GetAdminGroups(db, "u1")
	if err != nil {
		t.Fatalf("GetAdminGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != eng.ID {
		t.Errorf("Expected only eng as admin group, got %+v", groups)
	}

	// No admin groups is a valid, empty result — not an error
	groups, err = svc.GetAdminGroups(db, "nobody")
	if err != nil {
		t.Fatalf("GetAdminGroups for unknown identity failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("Expected empty admin group list, got %d", len(groups))
	}
}

func TestGetUserAgentsSuperadmin(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	a1, _ := registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")
	registerTx(db, svc, "ext-2", "bot-2", ops.ID, "u1")
	svc.AssignAgentToGroup(db, ops.ID, a1.ID, "u1")

	// The superadmin identity does not need a user row
	agents, err := svc.GetUserAgents(db, "root", true)
	if err != nil {
		t.Fatalf("GetUserAgents failed: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("Expected each agent exactly once, got %d entries", len(agents))
	}
	if len(agents[0].Groups) != 2 {
		t.Errorf("Expected agent 1 in 2 groups, got %d", len(agents[0].Groups))
	}
	if len(agents[1].Groups) != 1 {
		t.Errorf("Expected agent 2 in 1 group, got %d", len(agents[1].Groups))
	}
}

func TestGetUserAgentsOrdering(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	a1, _ := registerTx(db, svc, "ext-1", "bot-1", ops.ID, "u1")
	a2, _ := registerTx(db, svc, "ext-2", "bot-2", eng.ID, "u1")
	svc.AssignAgentToGroup(db, eng.ID, a1.ID, "u1")

	agents, err := svc.GetUserAgents(db, "root", true)
	if err != nil {
		t.Fatalf("GetUserAgents failed: %v", err)
	}

	// Entries in ascending agent ID order, groups in ascending group ID order
	if agents[0].ID != a1.ID || agents[1].ID != a2.ID {
		t.Errorf("Expected agents ordered by ID, got [%d %d]", agents[0].ID, agents[1].ID)
	}
	if agents[0].Groups[0].GroupID != eng.ID || agents[0].Groups[1].GroupID != ops.ID {
		t.Errorf("Expected groups ordered by ID, got %+v", agents[0].Groups)
	}
}

func TestGetUserAgentsMemberScope(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	eng := createTestGroup(t, db, "eng")
	ops := createTestGroup(t, db, "ops")
	shared, _ := registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")
	svc.AssignAgentToGroup(db, ops.ID, shared.ID, "u1")
	registerTx(db, svc, "ext-2", "bot-2", ops.ID, "u1")

	createTestUser(t, db, "u2", "User Two")
	addTestMembership(t, db, eng.ID, "u2", models.GroupRoleUser)

	agents, err := svc.GetUserAgents(db, "u2", false)
	if err != nil {
		t.Fatalf("GetUserAgents failed: %v", err)
	}
	if len(agents) != 1 {
		t.Fatalf("Expected only agents of the member's groups, got %d entries", len(agents))
	}
	if agents[0].ID != shared.ID {
		t.Errorf("Expected agent %d, got %d", shared.ID, agents[0].ID)
	}
	// Only the membership group appears, not every group the agent is in
	if len(agents[0].Groups) != 1 || agents[0].Groups[0].GroupID != eng.ID {
		t.Errorf("Expected groups scoped to membership, got %+v", agents[0].Groups)
	}
}

func TestGetUserAgentsNoGroups(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()
	group := createTestGroup(t, db, "eng")
	registerTx(db, svc, "ext-1", "bot-1", group.ID, "u1")
	createTestUser(t, db, "loner", "No Groups")

	agents, err := svc.GetUserAgents(db, "loner", false)
	if err != nil {
		t.Fatalf("GetUserAgents failed: %v", err)
	}
	if len(agents) != 0 {
		t.Errorf("Expected empty list for user with no groups, got %d", len(agents))
	}
}

func TestGetUserAgentsUserNotFound(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()

	_, err := svc.GetUserAgents(db, "nonexistent-user", false)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestAgentRegistryEndToEnd(t *testing.T) {
	db := setupTestDB(t)
	svc := NewAgentService()

	eng := createTestGroup(t, db, "eng")
	agent, err := registerTx(db, svc, "ext-1", "bot-1", eng.ID, "u1")
	if err != nil {
		t.Fatalf("RegisterAgent failed: %v", err)
	}

	// Already linked by registration
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AssignAgentToGroup(tx, eng.ID, agent.ID, "u2")
		return err
	})
	if !errors.Is(err, ErrDuplicateAssignment) {
		t.Fatalf("Expected ErrDuplicateAssignment, got %v", err)
	}

	ops := createTestGroup(t, db, "ops")
	if _, err := svc.AssignAgentToGroup(db, ops.ID, agent.ID, "u2"); err != nil {
		t.Fatalf("Assign to ops failed: %v", err)
	}

	for _, groupID := range []uint{eng.ID, ops.ID} {
		agents, err := svc.ListAgentsInGroup(db, groupID)
		if err != nil {
			t.Fatalf("ListAgentsInGroup(%d) failed: %v", groupID, err)
		}
		if len(agents) != 1 || agents[0].ID != agent.ID {
			t.Errorf("Expected [agent %d] in group %d, got %+v", agent.ID, groupID, agents)
		}
	}

	visible, err := svc.GetUserAgents(db, "u1", true)
	if err != nil {
		t.Fatalf("GetUserAgents failed: %v", err)
	}
	if len(visible) != 1 {
		t.Fatalf("Expected one entry, got %d", len(visible))
	}
	want := []AgentGroup{
		{GroupID: eng.ID, GroupName: "eng"},
		{GroupID: ops.ID, GroupName: "ops"},
	}
	if len(visible[0].Groups) != len(want) {
		t.Fatalf("Expected %d groups, got %+v", len(want), visible[0].Groups)
	}
	for i, g := range want {
		if visible[0].Groups[i] != g {
			t.Errorf("Group %d: expected %+v, got %+v", i, g, visible[0].Groups[i])
		}
	}
}
