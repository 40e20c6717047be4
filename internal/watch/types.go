// Package watch defines core types shared across subsystems.
package watch

import "time"

// TrackedFields selects which dimensions of a page participate in change
// comparisons. A field that is not tracked is ignored even when it differs.
type TrackedFields struct {
	StatusCode bool `json:"status_code"`
	Title      bool `json:"title"`
	Content    bool `json:"content"`
}

// Webpage is a tracked page as persisted by the Repository. The engine
// treats it as read-only; subscription status may change out of band.
type Webpage struct {
	ID                 string        `json:"id"`
	URL                string        `json:"url"`
	Tracked            TrackedFields `json:"tracked_fields"`
	NotificationEmail  string        `json:"notification_email"`
	SubscriptionActive bool          `json:"subscription_active"`
	CreatedAt          time.Time     `json:"created_at"`
}

// CheckLogEntry is one row of the append-only check log. Entries are never
// mutated after insertion; only the referenced artifact blob may be removed.
type CheckLogEntry struct {
	ID           string    `json:"id"`
	WebpageID    string    `json:"webpage_id"`
	CheckedAt    time.Time `json:"checked_at"`
	StatusCode   int       `json:"status_code"`
	PageChecksum string    `json:"page_checksum"`
	PageTitle    string    `json:"page_title"`
	ArtifactRef  string    `json:"artifact_ref"`
}

// PageSnapshot is the transient result of one capture attempt. It lives for
// at most one engine cycle: it either becomes a CheckLogEntry or its
// artifact is deleted.
type PageSnapshot struct {
	StatusCode      int
	Title           string
	ContentChecksum string
	ArtifactBytes   []byte
	ArtifactName    string
}

// PriceTier is one row of the injected upsell table. A tier applies while
// the subscriber's remaining free checks are at least MinRemaining.
type PriceTier struct {
	MinRemaining int    `json:"min_remaining" mapstructure:"min_remaining"`
	Price        string `json:"price" mapstructure:"price"`
	PaymentLink  string `json:"payment_link" mapstructure:"payment_link"`
}

// NotificationContext carries everything needed to render one change alert.
// Constructed per change event, consumed once, then discarded.
type NotificationContext struct {
	Page        Webpage
	Previous    CheckLogEntry
	Current     PageSnapshot
	PriorChecks int
	Tier        *PriceTier
}

// Notification is a rendered message ready for delivery.
type Notification struct {
	Recipient string
	Subject   string
	HTML      string
}

// ChangeEvent is published (when a topic is configured) for every change
// the classifier confirms.
type ChangeEvent struct {
	CycleID     string    `json:"cycle_id"`
	WebpageID   string    `json:"webpage_id"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	Checksum    string    `json:"checksum"`
	ArtifactRef string    `json:"artifact_ref"`
	CheckedAt   time.Time `json:"checked_at"`
}
