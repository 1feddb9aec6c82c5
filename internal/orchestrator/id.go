package orchestrator

import "github.com/google/uuid"

// newRecordID returns a process-unique record id. UUIDv7 carries a
// millisecond timestamp followed by random bits, so ids from concurrent
// submissions never need coordination.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return "download_" + id.String()
}
