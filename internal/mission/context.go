package mission

import (
	"errors"
	"sync"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrNoPlan = errors.New("no fire plan loaded")

// Context holds the fire plan and runtime correction of one session.
// Every accessor returns values; updates replace the stored value.
type Context struct {
	mu   sync.RWMutex
	id   string
	plan *planner.FirePlan
	// origin is the observer position used for range and direction shifts.
	origin core.Position3D
}

func NewContext(id string) *Context {
	return &Context{id: id}
}

func (mc *Context) ID() string {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.id
}

// Load installs a plan and starts a fresh adjustment around its first aim
// point. origin anchors range and direction shifts.
func (mc *Context) Load(plan planner.FirePlan, origin core.Position3D, bracketM float64) {
	if plan.Runtime == nil && len(plan.AimPoints) > 0 {
		plan = plan.WithAdjustment(adjustment.New(plan.AimPoints[0].Position, bracketM))
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.plan = &plan
	mc.origin = origin
}

// Plan returns the current plan.
func (mc *Context) Plan() (planner.FirePlan, error) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if mc.plan == nil {
		return planner.FirePlan{}, ErrNoPlan
	}
	return *mc.plan, nil
}

// Advance moves the cursor to the next phase.
func (mc *Context) Advance() (planner.FirePlan, error) {
	return mc.update(func(p planner.FirePlan) (planner.FirePlan, error) {
		return p.Advance(), nil
	})
}

// Adjust applies fn to the runtime correction. It reports false when the
// correction did not change.
func (mc *Context) Adjust(fn func(s adjustment.State, origin core.Position3D) (adjustment.State, bool)) (adjustment.State, bool, error) {
	var (
		next    adjustment.State
		changed bool
	)
	_, err := mc.update(func(p planner.FirePlan) (planner.FirePlan, error) {
		if p.Runtime == nil {
			return p, errors.New("plan has no adjustment state")
		}
		next, changed = fn(*p.Runtime, mc.origin)
		return p.WithAdjustment(next), nil
	})
	return next, changed, err
}

func (mc *Context) update(fn func(planner.FirePlan) (planner.FirePlan, error)) (planner.FirePlan, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.plan == nil {
		return planner.FirePlan{}, ErrNoPlan
	}
	next, err := fn(*mc.plan)
	if err != nil {
		return planner.FirePlan{}, err
	}
	mc.plan = &next
	return next, nil
}
