// Package sensorlog holds the glove's sensor records: the wire format shared
// with the dashboard and the cloud database, legacy normalisation, display
// helpers and a capped newest-first store.
package sensorlog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Mode is the glove operating mode.
type Mode int

const (
	ModeUnknown   Mode = 0
	ModeSmartHome Mode = 1
	ModeBLEMouse  Mode = 2
	ModeIR        Mode = 3
	ModeOffline   Mode = 4
)

var modeNames = map[string]Mode{
	"MODE_SMART_HOME": ModeSmartHome,
	"MODE_BLE_MOUSE":  ModeBLEMouse,
	"MODE_IR":         ModeIR,
	"MODE_OFFLINE":    ModeOffline,
}

// String returns the dashboard label of the mode.
func (m Mode) String() string {
	switch m {
	case ModeSmartHome:
		return "Smart Home"
	case ModeBLEMouse:
		return "BLE Mouse"
	case ModeIR:
		return "IR Mode"
	case ModeOffline:
		return "Offline"
	default:
		return "Unknown"
	}
}

// UnmarshalJSON accepts the numeric mode or its firmware constant name.
func (m *Mode) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = ModeUnknown
		return nil
	}
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*m = Mode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if v, ok := modeNames[strings.ToUpper(s)]; ok {
		*m = v
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*m = Mode(n)
		return nil
	}
	*m = ModeUnknown
	return nil
}

// IMU is an orientation reading in degrees.
type IMU struct {
	Pitch float64 `json:"pitch" cbor:"1,keyasint"`
	Roll  float64 `json:"roll" cbor:"2,keyasint"`
	Yaw   float64 `json:"yaw" cbor:"3,keyasint"`
}

// Record is one normalised sensor sample.
type Record struct {
	ID        string
	Timestamp time.Time
	Mode      Mode

	FlexBent   bool
	FlexValues []float64
	IMU        *IMU

	// IRState is the IR-mode status text ("Learning slot 2").
	IRState string
	// IRSensor is the legacy IR label ("ON"/"OFF"), "" when absent.
	IRSensor string

	Gesture string
}

// FlexLabel is "BENT" or "STRAIGHT".
func (r Record) FlexLabel() string {
	if r.FlexBent {
		return "BENT"
	}
	return "STRAIGHT"
}

// IMUText renders the orientation like "P: 10°, R: -3°, Y: 90°".
func (r Record) IMUText() string {
	if r.IMU == nil {
		return "N/A"
	}
	return fmt.Sprintf("P: %s°, R: %s°, Y: %s°", num(r.IMU.Pitch), num(r.IMU.Roll), num(r.IMU.Yaw))
}

// FlexValuesText renders per-finger flex like "10%, 80%".
func (r Record) FlexValuesText() string {
	if len(r.FlexValues) == 0 {
		return "N/A"
	}
	parts := make([]string, len(r.FlexValues))
	for i, v := range r.FlexValues {
		parts[i] = num(v) + "%"
	}
	return strings.Join(parts, ", ")
}

var slotNumber = regexp.MustCompile(`\d+`)

// IRText is the IR column of the record table.
func (r Record) IRText() string {
	if r.Mode != ModeIR {
		return "NA"
	}
	state := r.IRState
	switch {
	case state == "":
		return "Select Mode"
	case strings.HasPrefix(state, "Learning"), strings.HasPrefix(state, "Sending"):
		verb, _, _ := strings.Cut(state, " ")
		if n := slotNumber.FindString(state); n != "" {
			return verb + " – slot " + n
		}
		return state
	default:
		return state
	}
}

// HasGesture reports whether the record carries a gesture to dispatch.
// Only the literal "None" is skipped.
func (r Record) HasGesture() bool { return r.Gesture != "None" }

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// wireRecord is the JSON shape used by the glove, the cloud database and
// the dashboard. Legacy fields are accepted on input.
type wireRecord struct {
	ID         string          `json:"id,omitempty"`
	Timestamp  int64           `json:"timestamp"`
	Mode       *Mode           `json:"mode,omitempty"`
	FlexSensor string          `json:"Flex Sensor,omitempty"`
	FlexState  json.RawMessage `json:"flexState,omitempty"`
	IMU        *IMU            `json:"imu,omitempty"`
	FlexValues []float64       `json:"flexValues,omitempty"`
	IRState    string          `json:"IRState,omitempty"`
	LegacyIR   json.RawMessage `json:"irState,omitempty"`
	IRSensor   string          `json:"IR Sensor,omitempty"`
	Gesture    *string         `json:"gesture,omitempty"`
}

// MarshalJSON writes the canonical wire shape.
func (r Record) MarshalJSON() ([]byte, error) {
	mode := r.Mode
	flex, _ := json.Marshal(r.FlexBent)
	w := wireRecord{
		ID:         r.ID,
		Timestamp:  r.Timestamp.UnixMilli(),
		Mode:       &mode,
		FlexSensor: r.FlexLabel(),
		FlexState:  flex,
		IMU:        r.IMU,
		FlexValues: r.FlexValues,
		IRState:    r.IRState,
		IRSensor:   r.IRSensor,
		Gesture:    &r.Gesture,
	}
	if r.Timestamp.IsZero() {
		w.Timestamp = 0
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads any known record shape and normalises it.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	rec, err := w.normalize()
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// Decode parses one JSON record.
func Decode(b []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(b, &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// normalize fills the fields older firmware left out: a missing mode means
// IR mode when a legacy IR boolean is present, Smart Home otherwise; the
// flex and IR labels are derived from their raw readings.
func (w wireRecord) normalize() (Record, error) {
	r := Record{
		ID:         w.ID,
		IMU:        w.IMU,
		FlexValues: w.FlexValues,
		IRState:    w.IRState,
		IRSensor:   w.IRSensor,
	}
	if w.Timestamp > 0 {
		r.Timestamp = time.UnixMilli(w.Timestamp)
	}
	if w.Gesture != nil {
		r.Gesture = *w.Gesture
	}

	legacyIR, hasLegacyIR, err := truthy(w.LegacyIR)
	if err != nil {
		return Record{}, fmt.Errorf("irState: %w", err)
	}
	if w.Mode != nil && *w.Mode != ModeUnknown {
		r.Mode = *w.Mode
	} else if legacyIR {
		r.Mode = ModeIR
	} else {
		r.Mode = ModeSmartHome
	}
	if r.IRSensor == "" && hasLegacyIR {
		r.IRSensor = "OFF"
		if legacyIR {
			r.IRSensor = "ON"
		}
	}

	flexRaw, _, err := flexReading(w.FlexState)
	if err != nil {
		return Record{}, fmt.Errorf("flexState: %w", err)
	}
	r.FlexBent = strings.EqualFold(w.FlexSensor, "BENT") || flexRaw
	return r, nil
}

// flexReading accepts true/false, 0/100 or the label strings.
func flexReading(raw json.RawMessage) (bent bool, present bool, err error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, false, nil
	}
	var b bool
	if json.Unmarshal(raw, &b) == nil {
		return b, true, nil
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return f == 100, true, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, false, err
	}
	return strings.EqualFold(s, "BENT"), true, nil
}

// truthy decodes a loosely typed boolean (bool, number, string).
func truthy(raw json.RawMessage) (val bool, present bool, err error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false, false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false, err
	}
	switch x := v.(type) {
	case bool:
		return x, true, nil
	case float64:
		return x != 0, true, nil
	case string:
		return x != "", true, nil
	default:
		return true, true, nil
	}
}
