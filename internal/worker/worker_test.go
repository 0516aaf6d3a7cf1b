package worker

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/dispatcher"
	"github.com/sniperleonid/Calc-sub001/internal/mission"
	"github.com/sniperleonid/Calc-sub001/internal/orchestrator"
	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/internal/solver"
	"github.com/sniperleonid/Calc-sub001/internal/storage/memory"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

type fakeSink struct {
	mu   sync.Mutex
	guns []string
}

func (f *fakeSink) WriteSolution(_, gunID string, _ core.FireSolution, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guns = append(f.guns, gunID)
	return nil
}

type session struct {
	d       *dispatcher.Dispatcher
	journal *memory.Backend
	sink    *fakeSink
}

func newSession(t *testing.T) *session {
	t.Helper()
	gun := planner.Gun{ID: "g1", Position: core.Position3D{X: 0, Y: -2000}}
	plan, err := planner.Build(planner.MissionConfig{
		TargetType: planner.TargetLine,
		Control:    planner.ControlSequence,
		Start:      &core.Position3D{X: 0, Y: 0},
		End:        &core.Position3D{X: 60, Y: 0},
	}, []planner.Gun{gun})
	require.NoError(t, err)

	mc := mission.NewContext("m1")
	mc.Load(*plan, gun.Position, 200)

	s := &session{journal: memory.New(), sink: &fakeSink{}}
	m := NewManager(Dependencies{
		Mission: mc,
		Env: orchestrator.Env{
			GunPositions: map[string]core.Position3D{"g1": gun.Position},
			WeaponByGun:  map[string]string{"g1": "m252"},
			Solve: func(_ context.Context, req solver.Request) (core.FireSolution, error) {
				return core.FireSolution{Arc: core.ArcLow, TimeOfFlightSec: 20, Mode: core.ModeRK4}, nil
			},
		},
		Journal:   s.journal,
		Solutions: s.sink,
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
	d, err := dispatcher.New(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	m.RegisterHandlers(d)
	s.d = d
	return s
}

func (s *session) run(t *testing.T, line string) (any, error) {
	t.Helper()
	return s.d.Dispatch(context.Background(), dispatcher.ParseLine(line, time.Now()))
}

func TestSession_NextJournalsAndExports(t *testing.T) {
	s := newSession(t)

	out, err := s.run(t, "next")
	require.NoError(t, err)
	pkg, ok := out.(*orchestrator.FirePackage)
	require.True(t, ok)
	assert.Equal(t, 0, pkg.Phase.PhaseIndex)
	require.Len(t, pkg.Solutions, 1)

	s.d.Close()

	records, err := s.journal.List("m1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "next", records[0].Operation)
	assert.Equal(t, float64(0), records[0].Input["phaseIndex"])
	assert.Contains(t, records[0].Result, "solutions")
	assert.Nil(t, records[0].Lon)

	assert.Equal(t, []string{"g1"}, s.sink.guns)
}

func TestSession_AdvanceToCompletion(t *testing.T) {
	s := newSession(t)
	defer s.d.Close()

	out, err := s.run(t, "status")
	require.NoError(t, err)
	st := out.(Status)
	require.Greater(t, st.TotalPhases, 1)

	for i := 1; i < st.TotalPhases; i++ {
		_, err = s.run(t, "advance")
		require.NoError(t, err)
	}
	out, err = s.run(t, "advance")
	require.NoError(t, err)
	assert.True(t, out.(Status).Complete)

	out, err = s.run(t, "next")
	require.NoError(t, err)
	assert.Equal(t, "plan complete", out)
}

func TestSession_Corrections(t *testing.T) {
	s := newSession(t)

	out, err := s.run(t, "range +100")
	require.NoError(t, err)
	res := out.(Adjusted)
	assert.True(t, res.Applied)
	assert.InDelta(t, 0, res.OffsetXM, 1e-9)
	assert.InDelta(t, 100, res.OffsetYM, 1e-9)

	out, err = s.run(t, "direction 25m")
	require.NoError(t, err)
	res = out.(Adjusted)
	assert.InDelta(t, 25, res.OffsetXM, 1e-6)

	out, err = s.run(t, "spot OVER")
	require.NoError(t, err)
	res = out.(Adjusted)
	assert.True(t, res.Applied)
	assert.Equal(t, 100.0, res.BracketSizeM)

	out, err = s.run(t, "spot lost")
	require.NoError(t, err)
	assert.False(t, out.(Adjusted).Applied)

	out, err = s.run(t, "status")
	require.NoError(t, err)
	assert.Equal(t, 100.0, out.(Status).BracketSizeM)

	s.d.Close()
	records, err := s.journal.List("m1")
	require.NoError(t, err)
	ops := make([]string, len(records))
	for i, r := range records {
		ops[i] = r.Operation
	}
	assert.Equal(t, []string{"range", "direction", "spot"}, ops)
}

func TestSession_Usage(t *testing.T) {
	s := newSession(t)
	defer s.d.Close()

	_, err := s.run(t, "range")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = s.run(t, "spot")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = s.run(t, "range far")
	assert.Error(t, err)
}

func TestSession_NoPlan(t *testing.T) {
	m := NewManager(Dependencies{Mission: mission.NewContext("empty")})
	d, err := dispatcher.New(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer d.Close()
	m.RegisterHandlers(d)

	assert.False(t, d.HasHandler(CommandJournal))
	out, err := d.Dispatch(context.Background(), dispatcher.Event{Command: "help"})
	require.NoError(t, err)
	assert.Contains(t, out, "spot")

	_, err = d.Dispatch(context.Background(), dispatcher.Event{Command: "next"})
	assert.ErrorIs(t, err, mission.ErrNoPlan)
}
