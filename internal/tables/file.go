package tables

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
)

// ChargeArrays is the raw column set of one charge as stored on disk.
type ChargeArrays struct {
	Range             []float64 `json:"range" msgpack:"range"`
	ElevationMil      []float64 `json:"elevationMil,omitempty" msgpack:"elevationMil,omitempty"`
	TimeOfFlight      []float64 `json:"tof,omitempty" msgpack:"tof,omitempty"`
	ElevPer100m       []float64 `json:"dElev,omitempty" msgpack:"dElev,omitempty"`
	TOFPer100m        []float64 `json:"tofPer100m,omitempty" msgpack:"tofPer100m,omitempty"`
	ElevPerHeadwind   []float64 `json:"dElevPerHeadwind,omitempty" msgpack:"dElevPerHeadwind,omitempty"`
	DriftPerCrosswind []float64 `json:"driftPerCrosswind,omitempty" msgpack:"driftPerCrosswind,omitempty"`
}

// FileMeta is the optional projectile metadata of a table file.
type FileMeta struct {
	DragCoeff float64 `json:"dragCoeff" msgpack:"dragCoeff"`
	MassKg    float64 `json:"massKg" msgpack:"massKg"`
}

// File is the on-disk layout of one arc's table.
// ElevMil is a shared elevation column used by charges that carry none.
type File struct {
	Format   string                  `json:"format,omitempty" msgpack:"format,omitempty"`
	ElevMil  []float64               `json:"elevMil,omitempty" msgpack:"elevMil,omitempty"`
	Charges  ChargeList              `json:"charges" msgpack:"charges"`
	ByCharge map[string]ChargeArrays `json:"byCharge" msgpack:"byCharge"`
	Meta     *FileMeta               `json:"meta,omitempty" msgpack:"meta,omitempty"`
}

// ChargeList is a list of charge ids that may be written as numbers or strings.
type ChargeList []string

func (c *ChargeList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("charges: %w", err)
	}
	out := make(ChargeList, 0, len(raw))
	for _, r := range raw {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			out = append(out, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(r, &n); err != nil {
			return fmt.Errorf("charges: invalid id %s", r)
		}
		out = append(out, n.String())
	}
	*c = out
	return nil
}

func (c *ChargeList) DecodeMsgpack(dec *msgpack.Decoder) error {
	raw, err := dec.DecodeSlice()
	if err != nil {
		return fmt.Errorf("charges: %w", err)
	}
	out := make(ChargeList, 0, len(raw))
	for _, v := range raw {
		switch id := v.(type) {
		case string:
			out = append(out, id)
		case float64:
			out = append(out, strconv.FormatFloat(id, 'f', -1, 64))
		case float32:
			out = append(out, strconv.FormatFloat(float64(id), 'f', -1, 32))
		case int8, int16, int32, int64, uint8, uint16, uint32, uint64:
			out = append(out, fmt.Sprint(id))
		default:
			return fmt.Errorf("charges: invalid id %v", v)
		}
	}
	*c = out
	return nil
}

// Build converts a decoded file into a Table. Charges listed without data
// are skipped.
func (f File) Build() *Table {
	t := &Table{
		Format:   f.Format,
		ByCharge: make(map[string]*BallisticTable, len(f.Charges)),
		Meta:     Meta{DragCoeff: math.NaN(), MassKg: math.NaN()},
	}
	if t.Format == "" {
		t.Format = "legacy-npz"
	}
	if f.Meta != nil {
		t.Meta = Meta{DragCoeff: f.Meta.DragCoeff, MassKg: f.Meta.MassKg}
	}
	for _, id := range f.Charges {
		arrays, ok := f.ByCharge[id]
		if !ok {
			continue
		}
		if len(arrays.ElevationMil) == 0 {
			arrays.ElevationMil = f.ElevMil
		}
		t.Charges = append(t.Charges, id)
		t.ByCharge[id] = NewBallisticTable(id, arrays)
	}
	return t
}
