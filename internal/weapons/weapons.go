// Package weapons resolves weapon profiles by id.
package weapons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sniperleonid/Calc-sub001/internal/tables"
	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

var ErrNotFound = errors.New("weapon not found")

// Profile defaults applied by Normalize.
const (
	DefaultMassKg          = 20.0
	DefaultDragCoeff       = 0.002
	DefaultMinElevationMil = 0.0
	DefaultMaxElevationMil = 1550.0
)

// Provider resolves a weapon profile. Unknown ids wrap ErrNotFound.
type Provider interface {
	Weapon(ctx context.Context, id string) (core.WeaponProfile, error)
}

// rawProfile is the on-disk profile; absent numbers stay nil.
type rawProfile struct {
	ID              string          `json:"weaponId"`
	DisplayName     string          `json:"displayName"`
	MassKg          *float64        `json:"massKg"`
	DragCoeff       *float64        `json:"dragCoeff"`
	Charges         []rawCharge     `json:"charges"`
	MinElevationMil *float64        `json:"minElevMil"`
	MaxElevationMil *float64        `json:"maxElevMil"`
	MilsPerCircle   *float64        `json:"milsPerCircle"`
	MilSystem       *milSystem      `json:"milSystem"`
	Tables          core.TablePaths `json:"tables"`
}

type milSystem struct {
	MilsPerCircle *float64 `json:"milsPerCircle"`
}

type rawCharge struct {
	ID             chargeID `json:"id"`
	MuzzleVelocity float64  `json:"muzzleVel"`
}

// chargeID accepts both numeric and string ids.
type chargeID string

func (c *chargeID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = chargeID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid charge id %s", b)
	}
	*c = chargeID(n.String())
	return nil
}

func (r rawProfile) normalize() core.WeaponProfile {
	p := core.WeaponProfile{
		ID:              r.ID,
		DisplayName:     r.DisplayName,
		MassKg:          orDefault(r.MassKg, DefaultMassKg),
		DragCoeff:       orDefault(r.DragCoeff, DefaultDragCoeff),
		MinElevationMil: orDefault(r.MinElevationMil, DefaultMinElevationMil),
		MaxElevationMil: orDefault(r.MaxElevationMil, DefaultMaxElevationMil),
		MilsPerCircle:   core.MilsPerCircleNATO,
		Tables:          r.Tables,
	}
	if p.DisplayName == "" {
		p.DisplayName = p.ID
	}
	if r.MilSystem != nil && r.MilSystem.MilsPerCircle != nil {
		p.MilsPerCircle = *r.MilSystem.MilsPerCircle
	} else if r.MilsPerCircle != nil {
		p.MilsPerCircle = *r.MilsPerCircle
	}
	for _, c := range r.Charges {
		p.Charges = append(p.Charges, core.Charge{ID: string(c.ID), MuzzleVelocity: c.MuzzleVelocity})
	}
	return p
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Decode parses and normalises a JSON weapon profile.
func Decode(data []byte) (core.WeaponProfile, error) {
	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.WeaponProfile{}, fmt.Errorf("failed to decode weapon profile: %w", err)
	}
	return raw.normalize(), nil
}

// FileRegistry reads <Dir>/<id>.json profiles. When a profile lists no
// charges, they are derived from its primary table with estimated muzzle
// velocities, and the table's mass and drag override the defaults.
type FileRegistry struct {
	Dir    string
	Tables tables.Provider
}

func NewFileRegistry(dir string, tp tables.Provider) *FileRegistry {
	return &FileRegistry{Dir: dir, Tables: tp}
}

func (r *FileRegistry) Weapon(ctx context.Context, id string) (core.WeaponProfile, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return core.WeaponProfile{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	data, err := os.ReadFile(filepath.Join(r.Dir, id+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return core.WeaponProfile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return core.WeaponProfile{}, fmt.Errorf("failed to read weapon %s: %w", id, err)
	}
	p, err := Decode(data)
	if err != nil {
		return core.WeaponProfile{}, fmt.Errorf("weapon %s: %w", id, err)
	}
	if p.ID == "" {
		p.ID = id
		if p.DisplayName == "" {
			p.DisplayName = id
		}
	}
	if len(p.Charges) == 0 && r.Tables != nil {
		set, err := r.Tables.Tables(ctx, p.ID, p.Tables)
		if err != nil {
			return core.WeaponProfile{}, err
		}
		p = withEstimatedCharges(p, set.Primary())
	}
	return p, nil
}

func withEstimatedCharges(p core.WeaponProfile, primary *tables.Table) core.WeaponProfile {
	if primary == nil {
		return p
	}
	for _, id := range primary.Charges {
		p.Charges = append(p.Charges, core.Charge{
			ID:             id,
			MuzzleVelocity: tables.EstimateMuzzleVelocity(primary.Charge(id), p.MilsPerCircle),
		})
	}
	if primary.Meta.MassKg > 0 {
		p.MassKg = primary.Meta.MassKg
	}
	if primary.Meta.DragCoeff > 0 {
		p.DragCoeff = primary.Meta.DragCoeff
	}
	return p
}

// Static serves a fixed set of profiles.
type Static map[string]core.WeaponProfile

func (s Static) Weapon(_ context.Context, id string) (core.WeaponProfile, error) {
	p, ok := s[id]
	if !ok {
		return core.WeaponProfile{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, nil
}
