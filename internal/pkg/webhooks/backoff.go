package webhooks

import "time"

// retryLadder is the fixed backoff schedule between delivery attempts.
var retryLadder = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	4 * time.Hour,
}

// NextRetryDelay returns the wait before the retry that follows the given
// zero-based attempt number, clamped to the last ladder entry.
func NextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryLadder) {
		attempt = len(retryLadder) - 1
	}
	return retryLadder[attempt]
}
