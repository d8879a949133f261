package processor

import "fmt"

// Idempotency keys sent to the processor are deterministic functions of the
// entity they act on, of the form {entity}_{id}_{operation}_v{n}. They must
// never incorporate wall-clock time so that caller retries of the same logical
// operation collapse to one effect at the processor.

func CheckoutIdempotencyKey(bookingID uint) string {
	return fmt.Sprintf("booking_%d_checkout_v1", bookingID)
}

func RefundIdempotencyKey(paymentID uint) string {
	return fmt.Sprintf("payment_%d_refund_v1", paymentID)
}

func CancelAtPeriodEndIdempotencyKey(subscriptionID string) string {
	return fmt.Sprintf("subscription_%s_cancel_pe_v1", subscriptionID)
}

func CancelNowIdempotencyKey(subscriptionID string) string {
	return fmt.Sprintf("subscription_%s_cancel_now_v1", subscriptionID)
}
