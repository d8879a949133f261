package signing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignAndVerify(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	now := time.Unix(1700000000, 0)

	header := Sign(payload, "whsec_test", now)
	assert.NoError(t, Verify(payload, header, "whsec_test", 5*time.Minute, now))
}

func TestVerifyWrongSecret(t *testing.T) {
	payload := []byte("body")
	now := time.Now()

	header := Sign(payload, "secret-a", now)
	assert.ErrorIs(t, Verify(payload, header, "secret-b", 5*time.Minute, now), ErrInvalidSignature)
}

func TestVerifyTamperedPayload(t *testing.T) {
	now := time.Now()
	header := Sign([]byte("original"), "secret", now)
	assert.ErrorIs(t, Verify([]byte("tampered"), header, "secret", 5*time.Minute, now), ErrInvalidSignature)
}

func TestVerifyStaleTimestamp(t *testing.T) {
	payload := []byte("body")
	signedAt := time.Unix(1700000000, 0)

	header := Sign(payload, "secret", signedAt)

	// Exactly at the tolerance boundary is still acceptable.
	assert.NoError(t, Verify(payload, header, "secret", 5*time.Minute, signedAt.Add(5*time.Minute)))
	// One second past it is not.
	assert.ErrorIs(t,
		Verify(payload, header, "secret", 5*time.Minute, signedAt.Add(5*time.Minute+time.Second)),
		ErrStaleTimestamp)
}

func TestVerifyMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "t=,v1=", "v1=abc", "t=123", "garbage"} {
		assert.ErrorIs(t, Verify([]byte("body"), header, "secret", time.Minute, time.Now()),
			ErrInvalidSignature, "header %q", header)
	}
}
