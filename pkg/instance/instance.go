package instance

import "os"

// GetID identifies the running process in logs. The platform dyno name wins,
// then WORKER_ID, then fallback.
func GetID(fallback string) string {
	for _, key := range []string{"DYNO", "WORKER_ID"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return fallback
}
