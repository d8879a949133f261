package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signature scheme shared by the inbound processor endpoint and outbound
// tenant deliveries: the header value is "t=<unix>,v1=<hexhmac>" where the
// HMAC-SHA256 input is "<t>.<raw body>". Embedding the timestamp in the
// signed material bounds the replay window.

var (
	ErrInvalidSignature = errors.New("invalid signature")
	ErrStaleTimestamp   = errors.New("signed timestamp outside tolerance")
)

// Sign produces the signature header value for a payload at the given time.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return fmt.Sprintf("t=%d,v1=%s", ts, hexMAC(payload, secret, ts))
}

// Verify checks a signature header against the payload and secret. The
// timestamp must be within tolerance of now; staleness is reported separately
// from signature mismatch so callers can distinguish replay from forgery.
func Verify(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}

	expected := hexMAC(payload, secret, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrInvalidSignature
	}

	age := now.Sub(time.Unix(ts, 0))
	if age > tolerance {
		return ErrStaleTimestamp
	}
	return nil
}

func parseHeader(header string) (int64, string, error) {
	var ts int64
	var sig string
	for _, part := range strings.Split(strings.TrimSpace(header), ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, "", ErrInvalidSignature
			}
			ts = v
		case "v1":
			sig = strings.ToLower(kv[1])
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrInvalidSignature
	}
	return ts, sig, nil
}

func hexMAC(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
