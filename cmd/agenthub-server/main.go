package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/mikepea/agenthub/pkg/agenthub/agents"
	"github.com/mikepea/agenthub/pkg/agenthub/database"
	"github.com/mikepea/agenthub/pkg/agenthub/groups"
	"github.com/mikepea/agenthub/pkg/agenthub/identity"
	"github.com/mikepea/agenthub/pkg/agenthub/models"
	"github.com/mikepea/agenthub/pkg/agenthub/service"
	"github.com/mikepea/agenthub/pkg/agenthub/users"
)

// @title AgentHub API
// @version 1.0
// @description Multi-tenant agent registry: users, groups, agents and the relationships between them.

// @contact.name AgentHub Support
// @contact.url https://github.com/mikepea/agenthub

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey IdentityHeader
// @in header
// @name X-Entra-Object-Id
// @description Federated identity of the caller, set by the upstream gateway.

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Get database path from environment or use default
	dbPath := os.Getenv("AGENTHUB_DB_PATH")
	if dbPath == "" {
		dbPath = "agenthub.db"
	}

	// Connect to database
	if err := database.Connect(dbPath); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	// Run auto-migrations
	if err := models.AutoMigrate(database.GetDB()); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	logrus.Info("Database migrations completed")

	// Superadmin identities, comma separated
	superadmins := identity.ParseSuperadmins(os.Getenv("AGENTHUB_SUPERADMINS"))
	if len(superadmins) == 0 {
		logrus.Warn("No superadmins configured (AGENTHUB_SUPERADMINS is empty)")
	}

	// Services are stateless and constructed once
	agentService := service.NewAgentService()
	membershipService := service.NewMembershipService()
	userService := service.NewUserService()

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", healthCheck)

	// Swagger documentation
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", healthCheck)

		// Everything below requires a caller identity
		authed := api.Group("", identity.Middleware(superadmins))

		// User provisioning and self lookup
		usersHandler := users.NewHandler(database.GetDB(), userService)
		usersHandler.RegisterRoutes(authed)

		// Agent registry
		agentsHandler := agents.NewHandler(database.GetDB(), agentService)
		agentsHandler.RegisterRoutes(authed)

		// Groups and membership management
		groupsHandler := groups.NewHandler(database.GetDB(), membershipService)
		groupsGroup := authed.Group("/groups")
		groupsHandler.RegisterRoutes(groupsGroup)
		groupsHandler.RegisterMemberRoutes(groupsGroup)
	}

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	logrus.WithField("port", port).Info("Starting AgentHub server")
	if err := r.Run(":" + port); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// healthCheck reports liveness plus database connectivity. A failed ping
// degrades the status but still answers 200 — the process is up.
func healthCheck(c *gin.Context) {
	result := gin.H{
		"status":  "Healthy",
		"message": "Service is up and running.",
	}

	sqlDB, err := database.GetDB().DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		logrus.WithError(err).Error("Database health check failed")
		result["database"] = "unavailable"
		result["status"] = "Degraded"
	} else {
		result["database"] = "connected"
	}

	c.JSON(200, result)
}
