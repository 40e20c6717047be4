package throttle

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/watch"
)

func testTiers() []watch.PriceTier {
	return []watch.PriceTier{
		{MinRemaining: 8, Price: "$5/mo", PaymentLink: "pay-basic"},
		{MinRemaining: 4, Price: "$9/mo", PaymentLink: "pay-plus"},
		{MinRemaining: 1, Price: "$19/mo", PaymentLink: "pay-pro"},
		{MinRemaining: 0, Price: "$29/mo", PaymentLink: "pay-final"},
	}
}

func newThrottle(t *testing.T) *Throttle {
	t.Helper()
	th, err := New(Config{FreeQuota: 14, Tiers: testTiers()})
	require.NoError(t, err)
	return th
}

func TestNewRejectsZeroQuota(t *testing.T) {
	t.Parallel()

	_, err := New(Config{FreeQuota: 0})
	require.Error(t, err)
}

func TestDecideWithinQuota(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1"}

	// Q=14, 7 prior checks: notify, tier from the remaining=7 bucket.
	d := th.Decide(page, 7)
	require.True(t, d.Notify)
	require.NotNil(t, d.Tier)
	require.Equal(t, "pay-plus", d.Tier.PaymentLink)
}

func TestDecideQuotaExhausted(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1"}

	// Q=14, 15 prior checks: suppressed, final tier presented.
	d := th.Decide(page, 15)
	require.False(t, d.Notify)
	require.NotNil(t, d.Tier)
	require.Equal(t, "pay-final", d.Tier.PaymentLink)
}

func TestDecideSubscriptionBypassesQuota(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1", SubscriptionActive: true}

	for _, prior := range []int{0, 7, 14, 15, 1000} {
		d := th.Decide(page, prior)
		require.True(t, d.Notify, "prior=%d", prior)
		require.Nil(t, d.Tier, "prior=%d", prior)
	}
}

func TestDecideMonotonic(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1"}

	flipped := false
	for prior := 0; prior <= 40; prior++ {
		d := th.Decide(page, prior)
		if !d.Notify {
			flipped = true
		}
		if flipped {
			require.False(t, d.Notify, "notify flipped back at prior=%d", prior)
		}
	}
	require.True(t, flipped)
	// The boundary: prior <= Q notifies, prior = Q+1 does not.
	require.True(t, th.Decide(page, 14).Notify)
	require.False(t, th.Decide(page, 15).Notify)
}

func TestDecideTierOnlyFromHalfQuota(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1"}

	require.Nil(t, th.Decide(page, 6).Tier)
	require.NotNil(t, th.Decide(page, 7).Tier)
}

func TestDecideTierBuckets(t *testing.T) {
	t.Parallel()

	th := newThrottle(t)
	page := watch.Webpage{ID: "w1"}

	tests := []struct {
		prior    int
		wantLink string
	}{
		{prior: 14, wantLink: "pay-final"}, // remaining 0
		{prior: 13, wantLink: "pay-pro"},   // remaining 1
		{prior: 10, wantLink: "pay-plus"},  // remaining 4
		{prior: 7, wantLink: "pay-plus"},   // remaining 7
		{prior: 20, wantLink: "pay-final"}, // remaining negative
	}
	for _, tc := range tests {
		d := th.Decide(page, tc.prior)
		require.NotNil(t, d.Tier, "prior=%d", tc.prior)
		require.Equal(t, tc.wantLink, d.Tier.PaymentLink, "prior=%d", tc.prior)
	}
}
