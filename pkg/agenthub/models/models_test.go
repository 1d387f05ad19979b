package models

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	return db
}

func TestAutoMigrate(t *testing.T) {
	db := setupTestDB(t)

	err := AutoMigrate(db)
	if err != nil {
		t.Fatalf("AutoMigrate failed: %v", err)
	}

	tables := []string{"users", "groups", "agents", "group_memberships", "group_agents"}
	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			t.Errorf("Expected table %s to exist", table)
		}
	}
}

func TestUserUniqueEntraObjectID(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	user := User{EntraObjectID: "u1", DisplayName: "User One", Email: "u1@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	if user.ID == 0 {
		t.Error("Expected user ID to be set after create")
	}

	dup := User{EntraObjectID: "u1", DisplayName: "Other", Email: "other@example.com"}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicated key error for same entra_object_id, got %v", err)
	}
}

func TestAgentUniqueExternalID(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	agent := Agent{AgentExternalID: "ext-1", Name: "bot-1", CreatedBy: "u1"}
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}

	dup := Agent{AgentExternalID: "ext-1", Name: "bot-2", CreatedBy: "u2"}
	err := db.Create(&dup).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicated key error for same agent_external_id, got %v", err)
	}
}

func TestGroupMembershipUniquePair(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	group := Group{Name: "eng"}
	db.Create(&group)

	m1 := GroupMembership{GroupID: group.ID, EntraObjectID: "u1", Role: GroupRoleAdmin}
	if err := db.Create(&m1).Error; err != nil {
		t.Fatalf("Failed to create membership: %v", err)
	}

	// Same pair, different role: still a conflict
	dup := GroupMembership{GroupID: group.ID, EntraObjectID: "u1", Role: GroupRoleUser}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicated key error for same (group, user) pair, got %v", err)
	}

	// Same user in another group is fine
	other := Group{Name: "ops"}
	db.Create(&other)
	m2 := GroupMembership{GroupID: other.ID, EntraObjectID: "u1", Role: GroupRoleUser}
	if err := db.Create(&m2).Error; err != nil {
		t.Errorf("Expected membership in a second group to succeed: %v", err)
	}
}

func TestGroupAgentUniquePair(t *testing.T) {
	db := setupTestDB(t)
	AutoMigrate(db)

	group := Group{Name: "eng"}
	db.Create(&group)
	agent := Agent{AgentExternalID: "ext-1", Name: "bot-1"}
	db.Create(&agent)

	link := GroupAgent{GroupID: group.ID, AgentID: agent.ID, AddedBy: "u1"}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("Failed to create group agent link: %v", err)
	}

	dup := GroupAgent{GroupID: group.ID, AgentID: agent.ID, AddedBy: "u2"}
	if err := db.Create(&dup).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected duplicated key error for same (group, agent) pair, got %v", err)
	}
}

func TestGroupRoleValid(t *testing.T) {
	if !GroupRoleAdmin.Valid() || !GroupRoleUser.Valid() {
		t.Error("Expected both known roles to be valid")
	}
	if GroupRole("owner").Valid() {
		t.Error("Expected unknown role string to be invalid")
	}
	if GroupRole("").Valid() {
		t.Error("Expected empty role to be invalid")
	}
}
