// internal/storage/storage.go
package storage

import "github.com/sniperleonid/Calc-sub001/pkg/core"

// Backend is the interface all journal storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Append stamps the record with an id and creation time when missing and
	// stores it.
	Append(r *core.JournalRecord) error
	// List returns a mission's records oldest first.
	List(missionID string) ([]core.JournalRecord, error)
}
