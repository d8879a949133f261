package fees

import (
	"testing"

	"github.com/rentbase/rentbase/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlatformFeeTierRates(t *testing.T) {
	tests := []struct {
		tier   string
		amount int64
		want   int64
	}{
		{tier: models.TierBase, amount: 20000, want: 1200},
		{tier: models.TierMid, amount: 20000, want: 800},
		{tier: models.TierTop, amount: 20000, want: 500},
		{tier: models.TierBase, amount: 0, want: 0},
		// 999 * 6% = 59.94, rounds half up to 60
		{tier: models.TierBase, amount: 999, want: 60},
	}

	for _, tt := range tests {
		got, err := PlatformFee(tt.amount, tt.tier, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "tier %s amount %d", tt.tier, tt.amount)
	}
}

func TestPlatformFeeUnknownTier(t *testing.T) {
	_, err := PlatformFee(1000, "platinum", nil)
	assert.Error(t, err)
}

func TestPlatformFeeOverride(t *testing.T) {
	zero := int64(0)
	fee, err := PlatformFee(20000, models.TierBase, &zero)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fee, "explicit zero override exempts fully")

	custom := int64(1000) // 10%
	fee, err = PlatformFee(20000, models.TierBase, &custom)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), fee)

	// Unset override falls back to the tier rate.
	fee, err = PlatformFee(20000, models.TierBase, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1200), fee)
}

func TestProcessorFeeEstimate(t *testing.T) {
	assert.Equal(t, int64(610), ProcessorFeeEstimate(20000))
	assert.Equal(t, int64(30), ProcessorFeeEstimate(0))
	// 1034 * 2.9% = 29.986 rounds to 30, plus fixed 30
	assert.Equal(t, int64(60), ProcessorFeeEstimate(1034))
}

func TestCalculateNoRoundingLeakage(t *testing.T) {
	amounts := []int64{0, 1, 33, 999, 1034, 5000, 19999, 20000, 123456789}
	tiers := []string{models.TierBase, models.TierMid, models.TierTop}

	for _, tier := range tiers {
		for _, amount := range amounts {
			b, err := Calculate(amount, tier, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, b.TotalCents,
				b.PlatformFeeCents+b.ProcessorFeeCents+b.TenantReceivesCents,
				"fee split must sum exactly for tier %s amount %d", tier, amount)
		}
	}
}

func TestCalculateDeposit(t *testing.T) {
	b, err := Calculate(20000, models.TierBase, 50, nil)
	require.NoError(t, err)
	require.NotNil(t, b.DepositCents)
	assert.Equal(t, int64(10000), *b.DepositCents)

	// Out-of-range deposit percentages yield no deposit amount.
	for _, pct := range []int{0, -5, 101} {
		b, err := Calculate(20000, models.TierBase, pct, nil)
		require.NoError(t, err)
		assert.Nil(t, b.DepositCents, "depositPct %d", pct)
	}

	// Odd split rounds half up: 3333 * 50% = 1666.5 -> 1667.
	b, err = Calculate(3333, models.TierBase, 50, nil)
	require.NoError(t, err)
	require.NotNil(t, b.DepositCents)
	assert.Equal(t, int64(1667), *b.DepositCents)
}

// The $200.00 base-tier scenario with a 50% deposit from the product docs.
func TestCalculateTwoHundredDollarBooking(t *testing.T) {
	b, err := Calculate(20000, models.TierBase, 50, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(1200), b.PlatformFeeCents)
	assert.Equal(t, int64(610), b.ProcessorFeeCents)
	assert.Equal(t, int64(20000), b.TotalCents)
	assert.Equal(t, int64(18190), b.TenantReceivesCents)
	require.NotNil(t, b.DepositCents)
	assert.Equal(t, int64(10000), *b.DepositCents)
}

func TestCalculateNegativeSubtotal(t *testing.T) {
	_, err := Calculate(-1, models.TierBase, 0, nil)
	assert.Error(t, err)
}
