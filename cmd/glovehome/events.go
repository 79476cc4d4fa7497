package main

import (
	"time"

	"glovehome/internal/hometree"
	"glovehome/internal/sensorlog"
	"glovehome/internal/statefeed"
)

// ============================================================================
// Events - reducer inputs
// ============================================================================
// Input goroutines (IPC, HTTP, keyboard, cloud stream, layout watcher) only
// ever send Events. The daemon loop stamps them with TimedEvent and reduces
// them strictly in arrival order.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TimedEvent wraps a payload event with the time the daemon loop received it.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// DaemonStarted is reduced once before any other event.
type DaemonStarted struct{}

func (DaemonStarted) eventMarker() {}

// GestureReceived is a named gesture from any source. FlexBent, when set,
// updates the flex indicator before dispatch.
type GestureReceived struct {
	Name     string
	FlexBent *bool
}

func (GestureReceived) eventMarker() {}

// FlexReading is one flex sensor sample. It feeds the indicator and the
// double-bend detector.
type FlexReading struct {
	Bent bool
}

func (FlexReading) eventMarker() {}

// DoubleBendInjected latches the pattern signal and dispatches it at once.
type DoubleBendInjected struct{}

func (DoubleBendInjected) eventMarker() {}

// RecordIngested is a sensor record to store and interpret.
type RecordIngested struct {
	Record sensorlog.Record
	Origin string
}

func (RecordIngested) eventMarker() {}

// UndoRequested reverts the last mutation without the bend condition.
type UndoRequested struct{}

func (UndoRequested) eventMarker() {}

// SetDeviceRequested forces a device to a display-form value.
type SetDeviceRequested struct {
	Path  string
	Value string
}

func (SetDeviceRequested) eventMarker() {}

// AdjustDeviceRequested steps a graduated device.
type AdjustDeviceRequested struct {
	Path      string
	Direction hometree.Direction
}

func (AdjustDeviceRequested) eventMarker() {}

// ClearLogsRequested deletes stored records locally and, when mirrored, in
// the cloud database.
type ClearLogsRequested struct{}

func (ClearLogsRequested) eventMarker() {}

// KeyPressed is one of the numbered test-harness shortcuts (1-8).
type KeyPressed struct {
	Key int
}

func (KeyPressed) eventMarker() {}

// LayoutReloaded replaces the device tree.
type LayoutReloaded struct {
	Tree *hometree.Tree
	Path string
}

func (LayoutReloaded) eventMarker() {}

// RequestStateSnapshot asks the daemon loop for a coherent state snapshot.
// Reply must be buffered; the loop never blocks on it.
type RequestStateSnapshot struct {
	Reply chan<- statefeed.Snapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ============================================================================
// Cloud database events
// ============================================================================

// FirebaseConnectionChanged reports the stream link status.
type FirebaseConnectionChanged struct {
	Connected bool
}

func (FirebaseConnectionChanged) eventMarker() {}

// FirebaseRecords carries records from the stream. Initial is set for the
// snapshot sent on (re)connect.
type FirebaseRecords struct {
	Records []sensorlog.Record
	Initial bool
}

func (FirebaseRecords) eventMarker() {}

// ============================================================================
// Observations - emitted by effects
// ============================================================================

// RecordStored reports the outcome of CmdPersistRecord. Added is false for
// a duplicate ID.
type RecordStored struct {
	Record sensorlog.Record
	Origin string
	Added  bool
	Count  int
	At     time.Time
}

func (RecordStored) eventMarker() {}

// HistoryLoaded reports a completed history load.
type HistoryLoaded struct {
	Count int
	At    time.Time
}

func (HistoryLoaded) eventMarker() {}

// LogsCleared reports that the record store is empty.
type LogsCleared struct {
	At time.Time
}

func (LogsCleared) eventMarker() {}

// CommandFailed is emitted when executing a Command fails.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}
