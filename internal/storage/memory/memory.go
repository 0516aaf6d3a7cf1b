// internal/storage/memory/memory.go
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Backend keeps the journal in process memory.
type Backend struct {
	mu      sync.RWMutex
	records map[string][]core.JournalRecord // keyed by mission
	now     func() time.Time
}

func New() *Backend {
	return &Backend{records: make(map[string][]core.JournalRecord), now: time.Now}
}

func (b *Backend) Init() error  { return nil }
func (b *Backend) Close() error { return nil }

func (b *Backend) Append(r *core.JournalRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	r.Stamp(b.now())
	b.records[r.MissionID] = append(b.records[r.MissionID], cloneRecord(*r))
	return nil
}

func (b *Backend) List(missionID string) ([]core.JournalRecord, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	src := b.records[missionID]
	out := make([]core.JournalRecord, len(src))
	for i, r := range src {
		out[i] = cloneRecord(r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// cloneRecord copies the top level of the payload maps so callers cannot
// change stored entries.
func cloneRecord(r core.JournalRecord) core.JournalRecord {
	r.Input = cloneMap(r.Input)
	r.Result = cloneMap(r.Result)
	return r
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
