package worker

import (
	"log/slog"
	"time"

	"github.com/sniperleonid/Calc-sub001/internal/geo"
	"github.com/sniperleonid/Calc-sub001/internal/mission"
	"github.com/sniperleonid/Calc-sub001/internal/orchestrator"
	"github.com/sniperleonid/Calc-sub001/internal/storage"
	"github.com/sniperleonid/Calc-sub001/internal/util"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// SolutionSink receives every solved shot. influx.Manager implements it.
type SolutionSink interface {
	WriteSolution(missionID, gunID string, sol core.FireSolution, at time.Time) error
}

// Dependencies holds all dependencies for the session worker. Journal and
// Solutions may be nil.
type Dependencies struct {
	Mission   *mission.Context
	Env       orchestrator.Env
	Journal   storage.Backend
	Solutions SolutionSink
	EPSG      int
	Logger    *slog.Logger
	Now       func() time.Time
}

// Manager runs the commands of one fire session.
type Manager struct {
	deps Dependencies
}

func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Manager{deps: deps}
}

// record builds a journal record, locating it at target when the theatre is
// geo-referenced.
func (m *Manager) record(op string, input, result any, target *core.Position3D) core.JournalRecord {
	r := core.JournalRecord{
		MissionID: m.deps.Mission.ID(),
		CreatedAt: m.deps.Now().UTC(),
		Operation: op,
		Input:     util.ToMap(input),
		Result:    util.ToMap(result),
	}
	if target != nil {
		if ll, ok := geo.ToWGS84(*target, m.deps.EPSG); ok {
			r.Lon, r.Lat = &ll.Lon, &ll.Lat
		}
	}
	return r
}
