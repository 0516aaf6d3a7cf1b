// pkg/core/journal.go
package core

import (
	"time"

	"github.com/google/uuid"
)

// JournalRecord is one entry of the operation journal. Lon and Lat locate
// the target when the theatre is geo-referenced.
type JournalRecord struct {
	ID        string         `json:"id"`
	MissionID string         `json:"missionId"`
	CreatedAt time.Time      `json:"createdAt"`
	Operation string         `json:"operation"`
	Input     map[string]any `json:"input,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Lon       *float64       `json:"lon,omitempty"`
	Lat       *float64       `json:"lat,omitempty"`
}

// Stamp assigns a random id and a creation time to a record that lacks them.
func (r *JournalRecord) Stamp(now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now.UTC()
	}
}
