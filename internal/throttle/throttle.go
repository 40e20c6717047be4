// Package throttle gates notification emission behind the per-page free
// quota and computes the price tier to present once the quota runs low.
//
// The quota gates notifying only, never checking: pages keep getting
// captured and logged past the quota so the history stays complete and a
// later subscription upgrade resumes alerts with a correct baseline.
package throttle

import (
	"fmt"
	"sort"

	"github.com/pagewatch/pagewatch/internal/watch"
)

// Config holds the injected quota size and upsell table.
type Config struct {
	// FreeQuota is the number of checks a page gets before notifications
	// are suppressed without an active subscription.
	FreeQuota int
	// Tiers is the price table keyed by remaining free checks. Order does
	// not matter; New normalizes it.
	Tiers []watch.PriceTier
}

// Decision is the throttle outcome for one change event.
type Decision struct {
	Notify bool
	// Tier is non-nil once the page has consumed at least half its quota
	// and carries the upsell to include in the message.
	Tier *watch.PriceTier
}

// Throttle decides whether a change event may notify. It has no side
// effects; the caller passes the decision to the notifier.
type Throttle struct {
	quota int
	tiers []watch.PriceTier
}

// New builds a Throttle. The tier table is sorted by descending
// MinRemaining so lookup picks the cheapest tier the remaining count still
// qualifies for.
func New(cfg Config) (*Throttle, error) {
	if cfg.FreeQuota <= 0 {
		return nil, fmt.Errorf("free quota must be > 0")
	}
	tiers := append([]watch.PriceTier(nil), cfg.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinRemaining > tiers[j].MinRemaining
	})
	return &Throttle{quota: cfg.FreeQuota, tiers: tiers}, nil
}

// Decide reports whether a change on page may notify given the page's
// total historical check count. Monotonic in priorChecks for a fixed
// subscription state: once suppressed, never permitted again.
func (t *Throttle) Decide(page watch.Webpage, priorChecks int) Decision {
	d := Decision{
		Notify: page.SubscriptionActive || priorChecks < t.quota+1,
	}
	if page.SubscriptionActive {
		return d
	}
	if priorChecks < t.quota/2 {
		return d
	}

	remaining := t.quota - priorChecks
	for i := range t.tiers {
		if t.tiers[i].MinRemaining <= remaining {
			d.Tier = &t.tiers[i]
			return d
		}
	}
	// remaining is below every threshold: final (most expensive) tier.
	if len(t.tiers) > 0 {
		d.Tier = &t.tiers[len(t.tiers)-1]
	}
	return d
}

// Quota returns the configured free quota.
func (t *Throttle) Quota() int {
	return t.quota
}
