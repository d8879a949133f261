package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// TenantAPIKey authenticates server-to-server requests for a tenant. Only the
// SHA-256 hash is stored; the raw key is shown once at creation time.
type TenantAPIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TenantID   uint       `gorm:"not null;index" json:"tenant_id"`
	Tenant     Tenant     `gorm:"foreignKey:TenantID" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(12);not null;index" json:"key_prefix"`
	KeyHash    string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Label      string     `gorm:"type:varchar(100)" json:"label"`
	LastUsedAt *time.Time `gorm:"type:timestamp;default:null" json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// HashAPIKey returns the SHA-256 hash for the provided API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKey creates new key material and returns raw key, prefix and hash.
func GenerateAPIKey() (string, string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	rawKey := "rb_" + hex.EncodeToString(b)
	prefix := rawKey[:min(12, len(rawKey))]
	hash := HashAPIKey(rawKey)
	return rawKey, prefix, hash, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
