package cache

import (
	"fmt"
	"time"
)

const (
	SessionKeyPrefix  = "sess:"
	CSRFKeyPrefix     = "csrf:"
	SnapshotKeyFormat = "snap:%s:%s"
)

// SnapshotTTL bounds how long a last good list page is kept for a session.
const SnapshotTTL = 30 * time.Minute

// SnapshotKey names the last good page of resource for one browser session.
func SnapshotKey(sessionID, resource string) string {
	return fmt.Sprintf(SnapshotKeyFormat, sessionID, resource)
}
