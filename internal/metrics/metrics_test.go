package metrics

import (
	"testing"
	"time"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init()

	// Collectors must be usable after repeated Init without panicking.
	ObserveCheck("changed")
	ObserveCheck("unchanged")
	ObserveNotification("sent")
	ObserveNotification("suppressed")
	ObserveArtifactDeleted("orphan")
	ObserveEventPublished("ok")
	ObserveCycle(3 * time.Second)
	ObserveCapture(800 * time.Millisecond)
	ObserveOrphansFound(2)
}
