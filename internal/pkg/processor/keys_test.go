package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdempotencyKeysAreDeterministic(t *testing.T) {
	assert.Equal(t, "booking_42_checkout_v1", CheckoutIdempotencyKey(42))
	assert.Equal(t, CheckoutIdempotencyKey(42), CheckoutIdempotencyKey(42))

	assert.Equal(t, "payment_7_refund_v1", RefundIdempotencyKey(7))
	assert.Equal(t, "subscription_sub_abc_cancel_pe_v1", CancelAtPeriodEndIdempotencyKey("sub_abc"))
	assert.Equal(t, "subscription_sub_abc_cancel_now_v1", CancelNowIdempotencyKey("sub_abc"))
}

func TestIdempotencyKeysDifferPerOperation(t *testing.T) {
	assert.NotEqual(t, CancelAtPeriodEndIdempotencyKey("sub_1"), CancelNowIdempotencyKey("sub_1"))
	assert.NotEqual(t, CheckoutIdempotencyKey(1), CheckoutIdempotencyKey(2))
}
