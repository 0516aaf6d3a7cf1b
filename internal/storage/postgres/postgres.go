// Package postgres stores the journal in PostgreSQL. Appends go through an
// internal queue drained by a background writer in batches.
package postgres

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sniperleonid/Calc-sub001/internal/config"
	"github.com/sniperleonid/Calc-sub001/internal/database"
	"github.com/sniperleonid/Calc-sub001/internal/model"
	"github.com/sniperleonid/Calc-sub001/internal/queue"
	gormstorage "github.com/sniperleonid/Calc-sub001/internal/storage/gorm"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// DefaultFlushInterval is how often the writer drains the queue.
const DefaultFlushInterval = 500 * time.Millisecond

// Dependencies holds all dependencies for the PostgreSQL backend. A nil DB
// makes Init connect using Config.
type Dependencies struct {
	DB            *gorm.DB
	Config        config.DBConfig
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	manager *database.Manager
	store   *gormstorage.Backend
	pending *queue.Queue[model.JournalEntry]

	flushMu  sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{deps: deps, pending: queue.New[model.JournalEntry]()}
}

// Init connects when needed, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	db := b.deps.DB
	if db == nil {
		b.manager = database.NewManager(b.deps.Logger)
		if err := b.manager.OpenPostgres(b.deps.Config); err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		db = b.manager.DB
	}
	b.store = gormstorage.New(db)
	if err := b.store.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writer()
	return nil
}

func (b *Backend) writer() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error().Err(err).Msg("Error writing journal batch")
			}
		}
	}
}

// Flush writes every queued entry now. Entries of a failed batch are
// queued again.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	batch := b.pending.GetAndEmpty()
	if err := b.store.Insert(batch); err != nil {
		b.pending.Push(batch...)
		return err
	}
	if len(batch) > 0 {
		b.deps.Logger.Debug().Int("entries", len(batch)).Msg("Journal batch written")
	}
	return nil
}

// Append queues the record; it reaches the database on the next flush.
func (b *Backend) Append(r *core.JournalRecord) error {
	if b.store == nil {
		return fmt.Errorf("postgres backend not initialized")
	}
	entry, err := b.store.Entry(r)
	if err != nil {
		return err
	}
	b.pending.Push(entry)
	return nil
}

// List flushes pending entries first so a mission reads its own writes.
func (b *Backend) List(missionID string) ([]core.JournalRecord, error) {
	if b.store == nil {
		return nil, fmt.Errorf("postgres backend not initialized")
	}
	if err := b.Flush(); err != nil {
		return nil, err
	}
	return b.store.List(missionID)
}

// Close stops the writer, flushes what is left and closes an owned
// connection.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil

	err := b.Flush()
	if b.manager != nil {
		if cerr := b.manager.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
