package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/internal/dispatcher"
	"github.com/sniperleonid/Calc-sub001/internal/orchestrator"
	"github.com/sniperleonid/Calc-sub001/internal/util"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

// Internal commands fed by the operator commands.
const (
	CommandJournal   = "journal"
	CommandSolutions = "solutions"
)

var ErrUsage = errors.New("usage")

// Status summarises the session.
type Status struct {
	MissionID    string  `json:"missionId"`
	PhaseIndex   int     `json:"phaseIndex"`
	PhaseLabel   string  `json:"phaseLabel,omitempty"`
	TotalPhases  int     `json:"totalPhases"`
	Complete     bool    `json:"complete"`
	OffsetXM     float64 `json:"offsetXM"`
	OffsetYM     float64 `json:"offsetYM"`
	BracketSizeM float64 `json:"bracketSizeM"`
}

// Adjusted is the result of a correction command.
type Adjusted struct {
	Applied      bool    `json:"applied"`
	OffsetXM     float64 `json:"offsetXM"`
	OffsetYM     float64 `json:"offsetYM"`
	BracketSizeM float64 `json:"bracketSizeM"`
}

type shotBatch struct {
	missionID string
	pkg       *orchestrator.FirePackage
}

// RegisterHandlers wires the session commands into d. Journal and solution
// exports run on buffered queues.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	emit := func(ctx context.Context, command string, payload any) {
		if !d.HasHandler(command) {
			return
		}
		if _, err := d.Dispatch(ctx, dispatcher.Event{Command: command, Payload: payload, Timestamp: m.deps.Now()}); err != nil {
			m.deps.Logger.Error("export failed", "command", command, "error", err)
		}
	}

	d.Register("next", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return m.handleNext(ctx, e, emit)
	}, dispatcher.Logged())
	d.Register("advance", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return m.handleAdvance(ctx, e, emit)
	}, dispatcher.Logged())
	d.Register("range", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return m.handleShift(ctx, e, emit, adjustment.State.AdjustRange)
	}, dispatcher.Logged())
	d.Register("direction", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return m.handleShift(ctx, e, emit, adjustment.State.AdjustDirection)
	}, dispatcher.Logged())
	d.Register("spot", func(ctx context.Context, e dispatcher.Event) (any, error) {
		return m.handleSpot(ctx, e, emit)
	}, dispatcher.Logged())
	d.Register("status", m.handleStatus)
	d.Register("help", func(context.Context, dispatcher.Event) (any, error) {
		return "commands: " + strings.Join(d.Commands(), ", "), nil
	})

	if m.deps.Journal != nil {
		d.Register(CommandJournal, m.handleJournal, dispatcher.Buffered(256), dispatcher.Blocking())
	}
	if m.deps.Solutions != nil {
		d.Register(CommandSolutions, m.handleSolutions, dispatcher.Buffered(64))
	}
}

type emitFunc func(ctx context.Context, command string, payload any)

func (m *Manager) handleNext(ctx context.Context, _ dispatcher.Event, emit emitFunc) (any, error) {
	plan, err := m.deps.Mission.Plan()
	if err != nil {
		return nil, err
	}
	pkg, err := orchestrator.NextFirePackage(ctx, plan, m.deps.Env)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return "plan complete", nil
	}

	var target *core.Position3D
	if len(pkg.Solutions) > 0 && len(pkg.Solutions[0].Shots) > 0 {
		target = &pkg.Solutions[0].Shots[0].Target
	}
	input := map[string]any{"phaseIndex": pkg.Phase.PhaseIndex, "control": plan.Config.Control}
	emit(ctx, CommandJournal, m.record("next", input, pkg, target))
	emit(ctx, CommandSolutions, shotBatch{missionID: m.deps.Mission.ID(), pkg: pkg})
	return pkg, nil
}

func (m *Manager) handleAdvance(ctx context.Context, _ dispatcher.Event, emit emitFunc) (any, error) {
	if _, err := m.deps.Mission.Advance(); err != nil {
		return nil, err
	}
	st, err := m.status()
	if err != nil {
		return nil, err
	}
	emit(ctx, CommandJournal, m.record("advance", nil, st, nil))
	return st, nil
}

func (m *Manager) handleShift(ctx context.Context, e dispatcher.Event, emit emitFunc, shift func(adjustment.State, core.Position3D, float64) adjustment.State) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("%w: %s <metres>", ErrUsage, e.Command)
	}
	delta, err := util.ParseMeters(e.Args[0])
	if err != nil {
		return nil, err
	}
	state, _, err := m.deps.Mission.Adjust(func(s adjustment.State, origin core.Position3D) (adjustment.State, bool) {
		return shift(s, origin, delta), true
	})
	if err != nil {
		return nil, err
	}
	res := adjusted(state, true)
	emit(ctx, CommandJournal, m.record(e.Command, map[string]any{"deltaM": delta}, res, &state.CurrentTarget))
	return res, nil
}

func (m *Manager) handleSpot(ctx context.Context, e dispatcher.Event, emit emitFunc) (any, error) {
	if len(e.Args) == 0 {
		return nil, fmt.Errorf("%w: spot <over|short>", ErrUsage)
	}
	text := strings.Join(e.Args, " ")
	state, changed, err := m.deps.Mission.Adjust(func(s adjustment.State, origin core.Position3D) (adjustment.State, bool) {
		return s.AutoBracket(origin, text)
	})
	if err != nil {
		return nil, err
	}
	res := adjusted(state, changed)
	if changed {
		emit(ctx, CommandJournal, m.record("spot", map[string]any{"observation": text}, res, &state.CurrentTarget))
	}
	return res, nil
}

func (m *Manager) handleStatus(context.Context, dispatcher.Event) (any, error) {
	return m.status()
}

func (m *Manager) status() (Status, error) {
	plan, err := m.deps.Mission.Plan()
	if err != nil {
		return Status{}, err
	}
	st := Status{
		MissionID:   m.deps.Mission.ID(),
		PhaseIndex:  plan.Cursor.PhaseIndex,
		TotalPhases: len(plan.Phases),
		Complete:    plan.Complete(),
	}
	if phase, ok := plan.CurrentPhase(); ok {
		st.PhaseLabel = phase.Label
	}
	if plan.Runtime != nil {
		st.OffsetXM, st.OffsetYM = plan.Runtime.Offset()
		st.BracketSizeM = plan.Runtime.BracketSizeM
	}
	return st, nil
}

func adjusted(s adjustment.State, applied bool) Adjusted {
	dx, dy := s.Offset()
	return Adjusted{Applied: applied, OffsetXM: dx, OffsetYM: dy, BracketSizeM: s.BracketSizeM}
}

func (m *Manager) handleJournal(_ context.Context, e dispatcher.Event) (any, error) {
	rec, ok := e.Payload.(core.JournalRecord)
	if !ok {
		return nil, fmt.Errorf("journal: unexpected payload %T", e.Payload)
	}
	return nil, m.deps.Journal.Append(&rec)
}

func (m *Manager) handleSolutions(_ context.Context, e dispatcher.Event) (any, error) {
	batch, ok := e.Payload.(shotBatch)
	if !ok {
		return nil, fmt.Errorf("solutions: unexpected payload %T", e.Payload)
	}
	var errs []error
	for _, gs := range batch.pkg.Solutions {
		for _, s := range gs.Shots {
			if err := m.deps.Solutions.WriteSolution(batch.missionID, gs.GunID, s.Solution, e.Timestamp); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return nil, errors.Join(errs...)
}
