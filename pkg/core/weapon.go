// pkg/core/weapon.go
package core

import (
	"fmt"
	"strings"
)

// NATO and Soviet-derived mil systems.
const (
	MilsPerCircleNATO   = 6400
	MilsPerCircleSoviet = 6000
)

// Arc is a trajectory family.
type Arc string

const (
	ArcDirect Arc = "DIRECT"
	ArcLow    Arc = "LOW"
	ArcHigh   Arc = "HIGH"
	ArcAuto   Arc = "AUTO"
)

// SearchOrder returns the arcs evaluated for this preference.
// AUTO searches LOW, HIGH and DIRECT in that order.
func (a Arc) SearchOrder() []Arc {
	if a == ArcAuto || a == "" {
		return []Arc{ArcLow, ArcHigh, ArcDirect}
	}
	return []Arc{a}
}

// TableKey is the lower-case key used for table references.
func (a Arc) TableKey() string {
	return strings.ToLower(string(a))
}

// ParseArc accepts DIRECT, LOW, HIGH and AUTO in any case.
func ParseArc(s string) (Arc, error) {
	switch Arc(strings.ToUpper(strings.TrimSpace(s))) {
	case ArcDirect:
		return ArcDirect, nil
	case ArcLow:
		return ArcLow, nil
	case ArcHigh:
		return ArcHigh, nil
	case ArcAuto, "":
		return ArcAuto, nil
	}
	return ArcAuto, fmt.Errorf("invalid arc %q", s)
}

// Charge is a propellant configuration with its muzzle velocity.
type Charge struct {
	ID             string  `json:"id"`
	MuzzleVelocity float64 `json:"muzzleVel"`
}

// TablePaths references the ballistic table of each arc.
type TablePaths struct {
	Direct string `json:"direct,omitempty"`
	Low    string `json:"low,omitempty"`
	High   string `json:"high,omitempty"`
}

// ForArc returns the table path for an arc, empty when none.
func (t TablePaths) ForArc(a Arc) string {
	switch a {
	case ArcDirect:
		return t.Direct
	case ArcLow:
		return t.Low
	case ArcHigh:
		return t.High
	}
	return ""
}

// WeaponProfile describes a weapon and its ammunition.
// Profiles are immutable once loaded.
type WeaponProfile struct {
	ID              string     `json:"weaponId"`
	DisplayName     string     `json:"displayName"`
	MassKg          float64    `json:"massKg"`
	DragCoeff       float64    `json:"dragCoeff"`
	Charges         []Charge   `json:"charges"`
	MinElevationMil float64    `json:"minElevMil"`
	MaxElevationMil float64    `json:"maxElevMil"`
	MilsPerCircle   float64    `json:"milsPerCircle"`
	Tables          TablePaths `json:"tables"`
}

// Charge looks up a charge by id.
func (w WeaponProfile) Charge(id string) (Charge, bool) {
	for _, c := range w.Charges {
		if c.ID == id {
			return c, true
		}
	}
	return Charge{}, false
}

// ChargeIDs lists the charge ids in profile order.
func (w WeaponProfile) ChargeIDs() []string {
	ids := make([]string, len(w.Charges))
	for i, c := range w.Charges {
		ids[i] = c.ID
	}
	return ids
}
