package main

import (
	"time"

	"glovehome/internal/gesture"
	"glovehome/internal/sensorlog"
)

// DaemonState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine touches it. Other goroutines see it through
// broadcasts and snapshots requested via the event loop.
type DaemonState struct {
	// Session is the gesture engine: tree, navigation, undo slot, detector.
	Session *gesture.Session

	// FlexBent is the flex indicator shown on the dashboard. It follows the
	// latest reading from any source.
	FlexBent bool

	// LastGesture is the latest gesture received, "" until one arrives.
	LastGesture string
	// LastStatus is the status line of the latest outcome.
	LastStatus string

	Firebase FirebaseState

	// LogCount mirrors the record store size as last reported by effects.
	LogCount int
}

// FirebaseState is the cloud link as seen by the reducer.
type FirebaseState struct {
	Enabled   bool
	Mirror    bool
	Connected bool
	At        time.Time
}

// NewDaemonState returns the initial state around session.
func NewDaemonState(session *gesture.Session, fb FirebaseState, logCount int) *DaemonState {
	if session == nil {
		session = gesture.NewSession(nil, gesture.Options{})
	}
	return &DaemonState{Session: session, Firebase: fb, LogCount: logCount}
}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a reducer-emitted, externally visible state change.
// The WebSocket broadcaster turns these into feed messages.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastOutcome reports the result of one dispatch or direct action.
type BroadcastOutcome struct {
	Outcome gesture.Outcome
	At      time.Time
}

// BroadcastView carries the current listing after navigation or a mutation.
type BroadcastView struct {
	View gesture.View
	At   time.Time
}

type BroadcastFlexChanged struct {
	Bent bool
	At   time.Time
}

type BroadcastPatternDetected struct {
	At time.Time
}

type BroadcastRecord struct {
	Record sensorlog.Record
	At     time.Time
}

type BroadcastGestureChanged struct {
	Name string
	At   time.Time
}

type BroadcastConnectionChanged struct {
	Enabled   bool
	Connected bool
	At        time.Time
}

type BroadcastLogCount struct {
	Count int
	At    time.Time
}

type BroadcastLogsCleared struct {
	At time.Time
}

func (BroadcastOutcome) broadcastMarker()           {}
func (BroadcastView) broadcastMarker()              {}
func (BroadcastFlexChanged) broadcastMarker()       {}
func (BroadcastPatternDetected) broadcastMarker()   {}
func (BroadcastRecord) broadcastMarker()            {}
func (BroadcastGestureChanged) broadcastMarker()    {}
func (BroadcastConnectionChanged) broadcastMarker() {}
func (BroadcastLogCount) broadcastMarker()          {}
func (BroadcastLogsCleared) broadcastMarker()       {}
