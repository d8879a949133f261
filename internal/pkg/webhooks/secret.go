package webhooks

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateSecret creates a new endpoint signing secret. It is returned to the
// tenant exactly once at registration time.
func GenerateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "rbsec_" + base64.RawURLEncoding.EncodeToString(b), nil
}
