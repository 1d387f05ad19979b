package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderEntraObjectID carries the caller's federated identity.
	// It is set by the upstream gateway after token validation; this
	// service trusts it as-is and does no token handling of its own.
	HeaderEntraObjectID = "X-Entra-Object-Id"

	// ContextKeyEntraObjectID is the key for the caller identity in gin context
	ContextKeyEntraObjectID = "entra_object_id"
	// ContextKeySuperadmin is the key for the superadmin flag in gin context
	ContextKeySuperadmin = "is_superadmin"
)

// Middleware extracts the trusted identity header and sets caller info in
// context. Requests without an identity are rejected.
func Middleware(superadmins []string) gin.HandlerFunc {
	admins := make(map[string]bool, len(superadmins))
	for _, id := range superadmins {
		admins[id] = true
	}

	return func(c *gin.Context) {
		objectID := c.GetHeader(HeaderEntraObjectID)
		if objectID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Identity header required"})
			c.Abort()
			return
		}
		if len(objectID) > 36 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identity header"})
			c.Abort()
			return
		}

		c.Set(ContextKeyEntraObjectID, objectID)
		c.Set(ContextKeySuperadmin, admins[objectID])

		c.Next()
	}
}

// GetEntraObjectID returns the caller's federated identity from the gin context
func GetEntraObjectID(c *gin.Context) (string, bool) {
	objectID, exists := c.Get(ContextKeyEntraObjectID)
	if !exists {
		return "", false
	}
	return objectID.(string), true
}

// IsSuperadmin reports whether the caller is in the configured superadmin set
func IsSuperadmin(c *gin.Context) bool {
	flag, exists := c.Get(ContextKeySuperadmin)
	if !exists {
		return false
	}
	return flag.(bool)
}

// ParseSuperadmins parses the comma-separated AGENTHUB_SUPERADMINS value.
func ParseSuperadmins(value string) []string {
	var ids []string
	for _, id := range strings.Split(value, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
