package billing

// CheckoutRequest is one payment-collection request for a booking. AmountCents
// defaults to the booking's amount when zero.
type CheckoutRequest struct {
	TenantID      uint              `json:"tenant_id" validate:"required"`
	BookingID     uint              `json:"booking_id" validate:"required"`
	AmountCents   int64             `json:"amount_cents" validate:"gte=0"`
	CustomerEmail string            `json:"customer_email" validate:"omitempty,email"`
	DepositPct    int               `json:"deposit_pct" validate:"gte=0,lte=100"`
	Description   string            `json:"description" validate:"max=500"`
	Metadata      map[string]string `json:"metadata"`
	SuccessURL    string            `json:"success_url" validate:"omitempty,url"`
	CancelURL     string            `json:"cancel_url" validate:"omitempty,url"`
}

// CheckoutResult is returned to the caller who redirects the customer.
type CheckoutResult struct {
	SessionID        string `json:"session_id"`
	URL              string `json:"url,omitempty"`
	AmountCents      int64  `json:"amount_cents"`
	PlatformFeeCents int64  `json:"platform_fee_cents"`
	Demo             bool   `json:"demo,omitempty"`
}

// RefundRequest describes one refund. AmountCents zero means the full
// remaining refundable amount.
type RefundRequest struct {
	PaymentID      uint   `json:"payment_id" validate:"required"`
	AmountCents    int64  `json:"amount_cents" validate:"gte=0"`
	Reason         string `json:"reason" validate:"max=100"`
	CallerTenantID uint   `json:"-"`
	PlatformCaller bool   `json:"-"`
}

// RefundResult reports what was refunded and the payment's new state.
type RefundResult struct {
	RefundID            string `json:"refund_id"`
	PaymentID           uint   `json:"payment_id"`
	RefundedCents       int64  `json:"refunded_cents"`
	TotalRefundedCents  int64  `json:"total_refunded_cents"`
	PaymentStatus       string `json:"payment_status"`
	RemainingRefundable int64  `json:"remaining_refundable_cents"`
}
