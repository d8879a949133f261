package middleware

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/database"
	"github.com/rentbase/rentbase/internal/pkg/ratelimit"
)

// Locals keys set by the auth middleware for downstream handlers.
const (
	LocalTenant = "TENANT"
)

// APIKeyAuthMiddleware authenticates requests carrying a tenant API key and
// resolves the tenant into request locals.
func APIKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		db := database.GetDB()
		if db == nil {
			log.Error("api key middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		hash := models.HashAPIKey(apiKey)
		var key models.TenantAPIKey
		if err := db.Preload("Tenant").Where("key_hash = ?", hash).First(&key).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Errorf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if key.Tenant.Status != models.TenantStatusActive {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Tenant inactive"})
		}

		// Refresh last-used timestamp best-effort.
		now := time.Now()
		if err := db.Model(&models.TenantAPIKey{}).
			Where("id = ?", key.ID).
			Updates(map[string]any{"last_used_at": now}).Error; err != nil {
			log.Warnf("failed to update api key usage timestamp for tenant %d: %v", key.TenantID, err)
		}

		c.Locals(LocalTenant, &key.Tenant)
		c.Locals(ratelimit.LocalTenantID, key.TenantID)
		c.Locals(ratelimit.LocalAPIKeyPrefix, key.KeyPrefix)

		return c.Next()
	}
}

// TenantFromContext returns the authenticated tenant, nil on unauthenticated
// routes.
func TenantFromContext(c *fiber.Ctx) *models.Tenant {
	tenant, _ := c.Locals(LocalTenant).(*models.Tenant)
	return tenant
}

// TenantIDFromContext returns the authenticated tenant id, zero when absent.
func TenantIDFromContext(c *fiber.Ctx) uint {
	tenantID, _ := c.Locals(ratelimit.LocalTenantID).(uint)
	return tenantID
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
