// Package gormstorage stores the journal through GORM. The sqlite and
// postgres backends build on it.
package gormstorage

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sniperleonid/Calc-sub001/internal/model"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Backend writes each record synchronously.
type Backend struct {
	DB  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Backend {
	return &Backend{DB: db, now: time.Now}
}

// Init migrates the journal schema.
func (b *Backend) Init() error {
	if b.DB == nil {
		return fmt.Errorf("gorm backend has no database")
	}
	if err := b.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (b *Backend) Close() error { return nil }

func (b *Backend) Append(r *core.JournalRecord) error {
	entry, err := b.Entry(r)
	if err != nil {
		return err
	}
	return b.Insert([]model.JournalEntry{entry})
}

// Entry stamps r and converts it for storage.
func (b *Backend) Entry(r *core.JournalRecord) (model.JournalEntry, error) {
	r.Stamp(b.now())
	return model.JournalEntryFromCore(*r)
}

// Insert writes entries in one batch.
func (b *Backend) Insert(entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := b.DB.CreateInBatches(entries, 500).Error; err != nil {
		return fmt.Errorf("failed to insert %d journal entries: %w", len(entries), err)
	}
	return nil
}

func (b *Backend) List(missionID string) ([]core.JournalRecord, error) {
	var entries []model.JournalEntry
	err := b.DB.Where("mission_id = ?", missionID).Order("created_at").Order("id").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list journal for %s: %w", missionID, err)
	}
	out := make([]core.JournalRecord, 0, len(entries))
	for _, e := range entries {
		r, err := e.ToCore()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
