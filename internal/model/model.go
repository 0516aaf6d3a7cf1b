package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sniperleonid/Calc-sub001/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every struct here that maps to a table.
var DatabaseModels = []interface{}{
	&Info{},
	&JournalEntry{},
}

// Info describes the battery this database belongs to.
type Info struct {
	gorm.Model
	BatteryName   string `json:"batteryName" gorm:"size:127"`
	SchemaVersion int    `json:"schemaVersion"`
}

func (*Info) TableName() string {
	return "firecalc_infos"
}

// JournalEntry is one stored operation of the journal.
type JournalEntry struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	MissionID string         `json:"missionId" gorm:"size:64;index:idx_journal_mission"`
	CreatedAt time.Time      `json:"createdAt" gorm:"index:idx_journal_mission"`
	Operation string         `json:"operation" gorm:"size:32"`
	Input     datatypes.JSON `json:"input"`
	Result    datatypes.JSON `json:"result"`
	Lon       *float64       `json:"lon" gorm:"default:NULL"`
	Lat       *float64       `json:"lat" gorm:"default:NULL"`
}

func (*JournalEntry) TableName() string {
	return "journal_entries"
}

// JournalEntryFromCore converts a record for storage.
func JournalEntryFromCore(r core.JournalRecord) (JournalEntry, error) {
	input, err := marshalPayload(r.Input)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journal %s input: %w", r.ID, err)
	}
	result, err := marshalPayload(r.Result)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("journal %s result: %w", r.ID, err)
	}
	return JournalEntry{
		ID:        r.ID,
		MissionID: r.MissionID,
		CreatedAt: r.CreatedAt.UTC(),
		Operation: r.Operation,
		Input:     input,
		Result:    result,
		Lon:       r.Lon,
		Lat:       r.Lat,
	}, nil
}

// ToCore converts a stored entry back to a journal record.
func (e JournalEntry) ToCore() (core.JournalRecord, error) {
	r := core.JournalRecord{
		ID:        e.ID,
		MissionID: e.MissionID,
		CreatedAt: e.CreatedAt.UTC(),
		Operation: e.Operation,
		Lon:       e.Lon,
		Lat:       e.Lat,
	}
	if err := unmarshalPayload(e.Input, &r.Input); err != nil {
		return core.JournalRecord{}, fmt.Errorf("journal %s input: %w", e.ID, err)
	}
	if err := unmarshalPayload(e.Result, &r.Result); err != nil {
		return core.JournalRecord{}, fmt.Errorf("journal %s result: %w", e.ID, err)
	}
	return r, nil
}

func marshalPayload(m map[string]any) (datatypes.JSON, error) {
	if m == nil {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func unmarshalPayload(b datatypes.JSON, out *map[string]any) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}
