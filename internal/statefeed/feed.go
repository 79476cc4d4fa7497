// Package statefeed defines the JSON messages the daemon publishes on its
// state WebSocket and a small client for reading them.
//
// Every frame is an envelope {type, ts, data}. The first frame after
// connecting is always "state_init" carrying a Snapshot.
package statefeed

import (
	"encoding/json"
	"time"

	"glovehome/internal/gesture"
	"glovehome/internal/hometree"
	"glovehome/internal/sensorlog"
)

// Message types.
const (
	TypeStateInit         = "state_init"
	TypeGestureOutcome    = "gesture_outcome"
	TypeViewChanged       = "view_changed"
	TypeFlexChanged       = "flex_changed"
	TypePatternDetected   = "pattern_detected"
	TypeSensorRecord      = "sensor_record"
	TypeGestureChanged    = "gesture_changed"
	TypeConnectionChanged = "connection_changed"
	TypeLogCount          = "log_count"
	TypeLogsCleared       = "logs_cleared"
)

// Envelope is one frame on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Entry is one row of the device browser.
type Entry struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Folder bool   `json:"folder"`
	Type   string `json:"type,omitempty"`
	Value  string `json:"value,omitempty"`
}

// EntryFrom renders a tree entry for the wire.
func EntryFrom(e hometree.Entry) Entry {
	out := Entry{Name: e.Name, Path: e.Path, Folder: e.IsFolder()}
	if !out.Folder {
		out.Type = e.ValueKind.String()
		out.Value = e.Display()
	}
	return out
}

// View is the current directory listing and selection.
type View struct {
	Path     string  `json:"path"`
	AtRoot   bool    `json:"at_root"`
	Entries  []Entry `json:"entries"`
	Selected string  `json:"selected,omitempty"`
}

// ViewFrom renders a session view for the wire.
func ViewFrom(v gesture.View) View {
	out := View{
		Path:     v.Path,
		AtRoot:   v.AtRoot,
		Entries:  make([]Entry, len(v.Entries)),
		Selected: v.Selected,
	}
	for i, e := range v.Entries {
		out.Entries[i] = EntryFrom(e)
	}
	return out
}

// Outcome describes what one dispatch did.
type Outcome struct {
	Kind    string `json:"kind"`
	Gesture string `json:"gesture,omitempty"`
	Pattern bool   `json:"pattern,omitempty"`
	Status  string `json:"status"`
	Device  *Entry `json:"device,omitempty"`
}

// OutcomeFrom renders a router outcome for the wire.
func OutcomeFrom(o gesture.Outcome) Outcome {
	out := Outcome{
		Kind:    string(o.Kind),
		Gesture: o.Gesture,
		Pattern: o.Pattern,
		Status:  o.Status,
	}
	if o.DeviceMutated != nil {
		e := EntryFrom(*o.DeviceMutated)
		out.Device = &e
	}
	return out
}

// Flex is the flex indicator.
type Flex struct {
	Bent bool `json:"bent"`
}

// Gesture is the most recently received gesture with its card text.
type Gesture struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Connection is the cloud database link status.
type Connection struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// LogCount is the number of stored sensor records.
type LogCount struct {
	Count int `json:"count"`
}

// Pending is the undo slot.
type Pending struct {
	Path     string `json:"path"`
	Kind     string `json:"kind"`
	Previous string `json:"previous"`
}

// Snapshot is the full state sent on connect and served by GET /api/state.
type Snapshot struct {
	View       View               `json:"view"`
	Status     string             `json:"status,omitempty"`
	Flex       Flex               `json:"flex"`
	Gesture    Gesture            `json:"gesture"`
	Pending    *Pending           `json:"pending,omitempty"`
	Connection Connection         `json:"connection"`
	LogCount   int                `json:"log_count"`
	Records    []sensorlog.Record `json:"records"`
	Catalog    []gesture.Info     `json:"catalog"`
}
