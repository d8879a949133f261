package fees

import (
	"fmt"

	"github.com/rentbase/rentbase/app/models"
)

// Commission rates per pricing tier, in basis points of the gross amount.
const (
	TierBaseBps int64 = 600
	TierMidBps  int64 = 400
	TierTopBps  int64 = 250
)

// Processor pricing model: 2.9% plus a fixed 30 minor units per charge.
const (
	processorPctNumerator   int64 = 29
	processorPctDenominator int64 = 1000
	processorFixedCents     int64 = 30
)

// Breakdown is the full fee split for one payment. All values are integer
// minor-currency units; no floating point survives between calls.
type Breakdown struct {
	SubtotalCents       int64  `json:"subtotal_cents"`
	PlatformFeeCents    int64  `json:"platform_fee_cents"`
	ProcessorFeeCents   int64  `json:"processor_fee_cents"`
	TotalCents          int64  `json:"total_cents"`
	TenantReceivesCents int64  `json:"tenant_receives_cents"`
	DepositCents        *int64 `json:"deposit_cents,omitempty"`
}

// TierRateBps returns the commission rate for a pricing tier.
func TierRateBps(tier string) (int64, error) {
	switch tier {
	case models.TierBase:
		return TierBaseBps, nil
	case models.TierMid:
		return TierMidBps, nil
	case models.TierTop:
		return TierTopBps, nil
	default:
		return 0, fmt.Errorf("unknown pricing tier %q", tier)
	}
}

// PlatformFee computes the marketplace commission for an amount. A non-nil
// override replaces the tier rate entirely; an override of 0 means exempt,
// which is distinct from nil (no override, tier rate applies).
func PlatformFee(amountCents int64, tier string, overrideBps *int64) (int64, error) {
	bps, err := TierRateBps(tier)
	if err != nil {
		return 0, err
	}
	if overrideBps != nil {
		bps = *overrideBps
	}
	return roundHalfUpBps(amountCents, bps), nil
}

// ProcessorFeeEstimate estimates the external processor's fee for an amount.
func ProcessorFeeEstimate(amountCents int64) int64 {
	pct := (amountCents*processorPctNumerator + processorPctDenominator/2) / processorPctDenominator
	return pct + processorFixedCents
}

// Calculate returns the complete payment breakdown for a subtotal. The deposit
// amount is present only when 0 < depositPct <= 100.
func Calculate(subtotalCents int64, tier string, depositPct int, overrideBps *int64) (*Breakdown, error) {
	if subtotalCents < 0 {
		return nil, fmt.Errorf("subtotal must not be negative, got %d", subtotalCents)
	}

	platformFee, err := PlatformFee(subtotalCents, tier, overrideBps)
	if err != nil {
		return nil, err
	}
	processorFee := ProcessorFeeEstimate(subtotalCents)
	total := subtotalCents

	b := &Breakdown{
		SubtotalCents:       subtotalCents,
		PlatformFeeCents:    platformFee,
		ProcessorFeeCents:   processorFee,
		TotalCents:          total,
		TenantReceivesCents: total - platformFee - processorFee,
	}

	if depositPct > 0 && depositPct <= 100 {
		deposit := roundHalfUp(total*int64(depositPct), 100)
		b.DepositCents = &deposit
	}

	return b, nil
}

func roundHalfUpBps(amount, bps int64) int64 {
	return roundHalfUp(amount*bps, 10000)
}

// roundHalfUp divides numerator by denominator rounding half away from zero.
func roundHalfUp(numerator, denominator int64) int64 {
	return (numerator + denominator/2) / denominator
}
