package mission

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/adjustment"
	"github.com/sniperleonid/Calc-sub001/internal/planner"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

func loadedContext(t *testing.T) *Context {
	t.Helper()
	plan, err := planner.Build(planner.MissionConfig{
		TargetType: planner.TargetLine,
		Control:    planner.ControlSequence,
		Start:      &core.Position3D{X: 0, Y: 1000},
		End:        &core.Position3D{X: 80, Y: 1000},
	}, []planner.Gun{{ID: "g1"}})
	require.NoError(t, err)

	mc := NewContext("m1")
	mc.Load(*plan, core.Position3D{}, 200)
	return mc
}

func TestContext_NoPlan(t *testing.T) {
	mc := NewContext("m1")
	assert.Equal(t, "m1", mc.ID())
	_, err := mc.Plan()
	assert.ErrorIs(t, err, ErrNoPlan)
	_, err = mc.Advance()
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestContext_LoadStartsAdjustment(t *testing.T) {
	mc := loadedContext(t)
	plan, err := mc.Plan()
	require.NoError(t, err)
	require.NotNil(t, plan.Runtime)
	assert.Equal(t, plan.AimPoints[0].Position, plan.Runtime.BaseTarget)
	assert.Equal(t, 200.0, plan.Runtime.BracketSizeM)
}

func TestContext_AdvanceAndAdjust(t *testing.T) {
	mc := loadedContext(t)
	before, _ := mc.Plan()

	next, err := mc.Advance()
	require.NoError(t, err)
	assert.Equal(t, 1, next.Cursor.PhaseIndex)
	assert.Equal(t, 0, before.Cursor.PhaseIndex)

	state, changed, err := mc.Adjust(func(s adjustment.State, origin core.Position3D) (adjustment.State, bool) {
		return s.AutoBracket(origin, "over")
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 100.0, state.BracketSizeM)

	plan, _ := mc.Plan()
	dx, dy := plan.Runtime.Offset()
	assert.InDelta(t, 0, dx, 1e-9)
	assert.InDelta(t, -100, dy, 1e-9)
	assert.Nil(t, before.Runtime.History)
}

func TestContext_ConcurrentAdvance(t *testing.T) {
	mc := loadedContext(t)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = mc.Advance()
		}()
	}
	wg.Wait()
	plan, _ := mc.Plan()
	assert.Equal(t, 10, plan.Cursor.PhaseIndex)
}
