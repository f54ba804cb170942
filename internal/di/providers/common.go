package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// sessionCleanupInterval is how often expired sessions are purged.
	sessionCleanupInterval = time.Hour

	// snapshotWarmInterval is how often the front page is re-read so the
	// snapshot cache holds a recent copy even without readers.
	snapshotWarmInterval = 15 * time.Minute

	// frontPageLimit matches the API's default page size.
	frontPageLimit = 20
)
