package watch

import (
	"context"
	"time"
)

// Repository persists webpage configs and the append-only check log.
type Repository interface {
	ListUncheckedWebpages(ctx context.Context) ([]Webpage, error)
	ListDueWebpages(ctx context.Context) ([]Webpage, error)
	InsertLogEntry(ctx context.Context, entry CheckLogEntry) error
	CountLogEntries(ctx context.Context, webpageID string) (int, error)
	RecentLogEntries(ctx context.Context, webpageID string, limit int) ([]CheckLogEntry, error)
	ListAllLogArtifactRefs(ctx context.Context) ([]string, error)
}

// ArtifactStore holds captured screenshot blobs. List must enumerate the
// full bucket, paginating internally if the backend limits listing size.
type ArtifactStore interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) error
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
}

// CaptureService renders a page and returns its observed state. The caller
// bounds the attempt with a context deadline; an expired deadline must fail
// fast and release browser resources.
type CaptureService interface {
	Capture(ctx context.Context, url string) (PageSnapshot, error)
}

// Notifier delivers a rendered message. Failures are logged by callers and
// never retried synchronously.
type Notifier interface {
	Send(ctx context.Context, msg Notification) error
}

// Renderer turns a notification context into a deliverable message.
type Renderer interface {
	Render(nctx NotificationContext) (Notification, error)
}

// Publisher pushes change events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes the content checksum over rendered markup.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
