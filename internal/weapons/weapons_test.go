package weapons

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

type stubTables struct {
	set   tables.Set
	calls int
}

func (s *stubTables) Tables(_ context.Context, _ string, _ core.TablePaths) (tables.Set, error) {
	s.calls++
	return s.set, nil
}

func writeProfile(t *testing.T, dir, id, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0o644))
}

func TestDecode_Defaults(t *testing.T) {
	p, err := Decode([]byte(`{"weaponId":"d30","charges":[{"id":1,"muzzleVel":250}]}`))
	require.NoError(t, err)

	assert.Equal(t, "d30", p.DisplayName)
	assert.Equal(t, DefaultMassKg, p.MassKg)
	assert.Equal(t, DefaultDragCoeff, p.DragCoeff)
	assert.Equal(t, 0.0, p.MinElevationMil)
	assert.Equal(t, 1550.0, p.MaxElevationMil)
	assert.Equal(t, 6400.0, p.MilsPerCircle)
	assert.Equal(t, []core.Charge{{ID: "1", MuzzleVelocity: 250}}, p.Charges)
}

func TestDecode_MilSystem(t *testing.T) {
	p, err := Decode([]byte(`{"weaponId":"2b14","milSystem":{"milsPerCircle":6000},"massKg":3.1,"charges":[{"id":"c0","muzzleVel":70}]}`))
	require.NoError(t, err)
	assert.Equal(t, 6000.0, p.MilsPerCircle)
	assert.Equal(t, 3.1, p.MassKg)
	assert.Equal(t, "c0", p.Charges[0].ID)
}

func TestFileRegistry_NotFound(t *testing.T) {
	r := NewFileRegistry(t.TempDir(), nil)
	for _, id := range []string{"missing", "", "../etc/passwd"} {
		_, err := r.Weapon(context.Background(), id)
		assert.True(t, errors.Is(err, ErrNotFound), id)
	}
}

func TestFileRegistry_ReadsProfile(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "m252", `{"weaponId":"m252","displayName":"M252","charges":[{"id":"0","muzzleVel":70},{"id":"1","muzzleVel":110}],"tables":{"low":"m252_low.json"}}`)
	stub := &stubTables{}

	p, err := NewFileRegistry(dir, stub).Weapon(context.Background(), "m252")
	require.NoError(t, err)
	assert.Equal(t, "M252", p.DisplayName)
	assert.Equal(t, []string{"0", "1"}, p.ChargeIDs())
	assert.Equal(t, "m252_low.json", p.Tables.Low)
	assert.Zero(t, stub.calls, "charges present, tables not consulted")
}

func TestFileRegistry_EstimatesChargesFromTable(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "d30", `{"tables":{"low":"d30_low.json"}}`)

	v := 300.0
	var a tables.ChargeArrays
	for _, mil := range []float64{150, 300, 450} {
		theta := mil * 2 * math.Pi / 6400
		a.Range = append(a.Range, v*v*math.Sin(2*theta)/9.81)
		a.ElevationMil = append(a.ElevationMil, mil)
	}
	low := tables.File{
		Charges:  tables.ChargeList{"4"},
		ByCharge: map[string]tables.ChargeArrays{"4": a},
		Meta:     &tables.FileMeta{MassKg: 21.8, DragCoeff: 0.0015},
	}.Build()

	p, err := NewFileRegistry(dir, &stubTables{set: tables.Set{Low: low}}).Weapon(context.Background(), "d30")
	require.NoError(t, err)
	assert.Equal(t, "d30", p.ID)
	require.Len(t, p.Charges, 1)
	assert.Equal(t, "4", p.Charges[0].ID)
	assert.InDelta(t, v, p.Charges[0].MuzzleVelocity, 1e-6)
	assert.Equal(t, 21.8, p.MassKg)
	assert.Equal(t, 0.0015, p.DragCoeff)
}

func TestStatic(t *testing.T) {
	s := Static{"a": {ID: "a"}}
	p, err := s.Weapon(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID)

	_, err = s.Weapon(context.Background(), "b")
	assert.ErrorIs(t, err, ErrNotFound)
}
