package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// Quota is one rate class applied to a route group.
type Quota struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Per-minute quotas by operation cost and abuse surface.
var (
	QuotaCheckout = Quota{Name: "checkout", Limit: 5, Window: time.Minute}
	QuotaRefund   = Quota{Name: "refund", Limit: 3, Window: time.Minute}
	QuotaInbound  = Quota{Name: "inbound", Limit: 100, Window: time.Minute}
	QuotaAccount  = Quota{Name: "account", Limit: 10, Window: time.Minute}
	QuotaRead     = Quota{Name: "read", Limit: 20, Window: time.Minute}
)

// Locals keys populated by the auth middleware.
const (
	LocalTenantID     = "tenant_id"
	LocalAPIKeyPrefix = "api_key_prefix"
)

// New returns a Fiber middleware enforcing the quota against the injected
// store. The limiter key prefers the authenticated tenant, then the API-key
// prefix, then the normalized client IP, so authenticated callers are never
// throttled by a shared NAT address.
func New(store Store, quota Quota) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := quota.Name + ":" + callerKey(c)

		allowed, err := store.Allow(c.UserContext(), key, quota.Limit, quota.Window)
		if err != nil {
			// A broken limiter store must not take the API down with it.
			log.Warnf("[RateLimit] store failure for %s: %v", key, err)
			return c.Next()
		}
		if !allowed {
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"class": quota.Name,
			})
		}
		return c.Next()
	}
}

func callerKey(c *fiber.Ctx) string {
	if tenantID, ok := c.Locals(LocalTenantID).(uint); ok && tenantID > 0 {
		return "tenant:" + strconv.FormatUint(uint64(tenantID), 10)
	}
	if prefix, ok := c.Locals(LocalAPIKeyPrefix).(string); ok && prefix != "" {
		return "key:" + prefix
	}
	return "ip:" + CanonicalIP(c.IP())
}

// CanonicalIP normalizes a client address so the same caller maps to one
// limiter bucket: IPv4-mapped IPv6 collapses to plain IPv4 and every loopback
// form becomes 127.0.0.1.
func CanonicalIP(addr string) string {
	ip := net.ParseIP(addr)
	if ip == nil {
		return addr
	}
	if ip.IsLoopback() {
		return "127.0.0.1"
	}
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}
