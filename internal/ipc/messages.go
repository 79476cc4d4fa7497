// Package ipc is the daemon's control protocol: line-delimited JSON
// envelopes over a Unix domain socket, one response line per request.
//
//	client: {"type": "gesture", "data": {"name": "Pitch UP"}}
//	server: {"status": "ok"} or {"status": "error", "error": "msg"}
package ipc

import (
	"encoding/json"
	"fmt"

	"glovehome/internal/sensorlog"
)

// DefaultSocketPath is where the daemon listens unless configured otherwise.
const DefaultSocketPath = "/tmp/glovehome.sock"

// Message is any request the daemon accepts.
type Message interface {
	messageType() string
}

// Gesture feeds a named gesture to the router. FlexBent, when set, updates
// the flex indicator first.
type Gesture struct {
	Name     string `json:"name"`
	FlexBent *bool  `json:"flex_bent,omitempty"`
}

// FlexState reports one flex sensor reading.
type FlexState struct {
	Bent bool `json:"bent"`
}

// DoubleBend injects a detected double-bend pattern.
type DoubleBend struct{}

// SensorRecord ingests a full sensor record, exactly as the glove sends it.
type SensorRecord struct {
	Record sensorlog.Record
}

func (m SensorRecord) MarshalJSON() ([]byte, error) { return json.Marshal(m.Record) }

func (m *SensorRecord) UnmarshalJSON(b []byte) error { return json.Unmarshal(b, &m.Record) }

// Undo reverts the last mutation regardless of the flex state.
type Undo struct{}

// SetDevice forces a device to a value given in display form ("50%", "ON").
type SetDevice struct {
	Path  string `json:"path"`
	Value string `json:"value"`
}

// AdjustDevice steps a graduated device "up" or "down".
type AdjustDevice struct {
	Path      string `json:"path"`
	Direction string `json:"direction"`
}

// ClearLogs deletes every stored sensor record.
type ClearLogs struct{}

// KeyShortcut replays one of the numbered test-harness keys (1-8).
type KeyShortcut struct {
	Key int `json:"key"`
}

func (Gesture) messageType() string      { return "gesture" }
func (FlexState) messageType() string    { return "flex_state" }
func (DoubleBend) messageType() string   { return "double_bend" }
func (SensorRecord) messageType() string { return "sensor_record" }
func (Undo) messageType() string         { return "undo" }
func (SetDevice) messageType() string    { return "set_device" }
func (AdjustDevice) messageType() string { return "adjust_device" }
func (ClearLogs) messageType() string    { return "clear_logs" }
func (KeyShortcut) messageType() string  { return "key_shortcut" }

// Envelope wraps a message with its type discriminator.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response answers every request line.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Marshal encodes m as an envelope.
func Marshal(m Message) ([]byte, error) {
	env := Envelope{Type: m.messageType()}
	switch m.(type) {
	case DoubleBend, Undo, ClearLogs:
	default:
		data, err := json.Marshal(m)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", env.Type, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// Unmarshal decodes an envelope into its concrete message.
func Unmarshal(b []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "gesture":
		return decode[Gesture](env)
	case "flex_state":
		return decode[FlexState](env)
	case "double_bend":
		return DoubleBend{}, nil
	case "sensor_record":
		return decode[SensorRecord](env)
	case "undo":
		return Undo{}, nil
	case "set_device":
		return decode[SetDevice](env)
	case "adjust_device":
		return decode[AdjustDevice](env)
	case "clear_logs":
		return ClearLogs{}, nil
	case "key_shortcut":
		return decode[KeyShortcut](env)
	default:
		return nil, fmt.Errorf("unknown message type: %q", env.Type)
	}
}

func decode[T Message](env Envelope) (Message, error) {
	var m T
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("%s: missing data", env.Type)
	}
	if err := json.Unmarshal(env.Data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return m, nil
}
