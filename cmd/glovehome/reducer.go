package main

import (
	"fmt"
	"time"

	"glovehome/internal/gesture"
	"glovehome/internal/hometree"
	"glovehome/internal/statefeed"
)

// This file implements the reducer:
//
//   - Events are inputs (gestures, sensor records, cloud updates, effect observations)
//   - Commands are side effects requested by the reducer (store writes, cloud calls)
//   - Broadcasts are externally visible state changes for the WebSocket feed
//
// The reducer performs no I/O. It owns the gesture Session through
// DaemonState, and the daemon loop is its only caller.

// ReducerConfig holds the knobs the reducer needs from the daemon config.
type ReducerConfig struct {
	// HistoryLimit is how many cloud records to load at startup.
	HistoryLimit int
}

// ReduceResult is the output of Reduce: next state, Commands to execute and
// Broadcasts to publish.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce computes the next state for one event.
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Time comes from the event (TimedEvent.At or an observation's At), never the clock
func Reduce(s *DaemonState, e Event, cfg ReducerConfig) ReduceResult {
	if s == nil {
		s = NewDaemonState(nil, FirebaseState{}, 0)
	}

	r := &reduction{s: s, cfg: cfg}
	if te, ok := e.(TimedEvent); ok {
		e = te.Event
		r.at = te.At
	}
	r.reduce(e)

	return ReduceResult{State: s, Commands: r.cmds, Broadcasts: r.bcs}
}

type reduction struct {
	s    *DaemonState
	cfg  ReducerConfig
	at   time.Time
	cmds []Command
	bcs  []StateBroadcast
}

func (r *reduction) command(c Command)          { r.cmds = append(r.cmds, c) }
func (r *reduction) broadcast(b StateBroadcast) { r.bcs = append(r.bcs, b) }

func (r *reduction) reduce(e Event) {
	s := r.s

	switch ev := e.(type) {
	case DaemonStarted:
		if s.Firebase.Enabled {
			r.command(CmdLoadHistory{Limit: r.cfg.HistoryLimit})
		}

	case GestureReceived:
		if ev.FlexBent != nil {
			r.setFlex(*ev.FlexBent)
		}
		if ev.Name != gesture.NoGesture {
			r.gestureSeen(ev.Name)
			r.dispatch(ev.Name)
		}

	case FlexReading:
		r.observeFlex(ev.Bent)

	case DoubleBendInjected:
		r.doubleBend()

	case KeyPressed:
		sc, ok := shortcuts[ev.Key]
		if !ok {
			return
		}
		if sc.FlexBent {
			r.setFlex(true)
		}
		if sc.Pattern {
			r.doubleBend()
			return
		}
		r.gestureSeen(sc.Gesture)
		r.dispatch(sc.Gesture)

	case RecordIngested:
		rec := ev.Record
		if rec.Timestamp.IsZero() {
			rec.Timestamp = r.at
		}
		r.command(CmdPersistRecord{Record: rec, Origin: ev.Origin})

	case RecordStored:
		if r.at.IsZero() {
			r.at = ev.At
		}
		s.LogCount = ev.Count
		if !ev.Added {
			return
		}
		r.broadcast(BroadcastRecord{Record: ev.Record, At: r.at})
		r.broadcast(BroadcastLogCount{Count: ev.Count, At: r.at})

		local := ev.Origin == originHTTP || ev.Origin == originIPC
		if local && s.Firebase.Enabled && s.Firebase.Mirror {
			r.command(CmdMirrorRecord{Record: ev.Record})
		}
		if ev.Origin == originHistory {
			return
		}
		// Same order as the glove dashboard: flex first, then the gesture.
		r.observeFlex(ev.Record.FlexBent)
		if ev.Record.HasGesture() {
			r.gestureSeen(ev.Record.Gesture)
			r.dispatch(ev.Record.Gesture)
		}

	case FirebaseRecords:
		origin := originCloud
		if ev.Initial {
			origin = originHistory
		}
		for _, rec := range ev.Records {
			r.command(CmdPersistRecord{Record: rec, Origin: origin})
		}

	case FirebaseConnectionChanged:
		if s.Firebase.Connected == ev.Connected {
			return
		}
		s.Firebase.Connected = ev.Connected
		s.Firebase.At = r.at
		r.broadcast(BroadcastConnectionChanged{Enabled: s.Firebase.Enabled, Connected: ev.Connected, At: r.at})

	case HistoryLoaded:
		s.LogCount = ev.Count
		r.broadcast(BroadcastLogCount{Count: ev.Count, At: ev.At})

	case ClearLogsRequested:
		r.command(CmdClearLogs{Remote: s.Firebase.Enabled})

	case LogsCleared:
		s.LogCount = 0
		r.broadcast(BroadcastLogsCleared{At: ev.At})
		r.broadcast(BroadcastLogCount{Count: 0, At: ev.At})

	case UndoRequested:
		r.outcome(s.Session.Undo())

	case SetDeviceRequested:
		r.setDevice(ev.Path, ev.Value)

	case AdjustDeviceRequested:
		r.outcome(s.Session.Adjust(ev.Path, ev.Direction))

	case LayoutReloaded:
		if ev.Tree == nil {
			return
		}
		s.Session.ReplaceTree(ev.Tree)
		r.outcome(gesture.Outcome{
			Kind:              gesture.OutcomeNone,
			Status:            "Layout reloaded",
			SelectionChanged:  true,
			NavigationChanged: true,
		})

	case RequestStateSnapshot:
		r.command(CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: r.snapshot()})

	default:
		// CommandFailed is logged by the effect; it and unknown events are no-ops.
	}
}

func (r *reduction) setFlex(bent bool) {
	if r.s.FlexBent == bent {
		return
	}
	r.s.FlexBent = bent
	r.broadcast(BroadcastFlexChanged{Bent: bent, At: r.at})
}

func (r *reduction) observeFlex(bent bool) {
	r.setFlex(bent)
	if r.s.Session.ObserveFlex(bent, r.at) {
		r.broadcast(BroadcastPatternDetected{At: r.at})
	}
}

func (r *reduction) doubleBend() {
	r.s.Session.LatchPattern()
	r.broadcast(BroadcastPatternDetected{At: r.at})
	r.dispatch("")
}

func (r *reduction) gestureSeen(name string) {
	r.s.LastGesture = name
	r.broadcast(BroadcastGestureChanged{Name: name, At: r.at})
}

func (r *reduction) dispatch(name string) {
	r.outcome(r.s.Session.Dispatch(name, r.s.FlexBent, r.at))
}

// outcome records the status line and publishes what changed.
func (r *reduction) outcome(o gesture.Outcome) {
	if o.At.IsZero() {
		o.At = r.at
	}
	r.s.LastStatus = o.Status
	r.broadcast(BroadcastOutcome{Outcome: o, At: r.at})
	if o.SelectionChanged || o.NavigationChanged || o.Mutated() {
		r.broadcast(BroadcastView{View: r.s.Session.View(), At: r.at})
	}
}

func (r *reduction) setDevice(path, value string) {
	e, ok := r.s.Session.Tree().Lookup(path)
	if !ok || e.IsFolder() {
		// Toggle reports the missing device without touching anything.
		r.outcome(r.s.Session.Toggle(path, nil))
		return
	}
	v, err := hometree.ParseValue(e.ValueKind, value)
	if err != nil {
		r.outcome(gesture.Outcome{
			Kind:   gesture.OutcomeNone,
			Status: fmt.Sprintf("Invalid value %q for %s", value, e.Name),
		})
		return
	}
	r.outcome(r.s.Session.Toggle(path, &v))
}

// snapshot renders the daemon state for a new feed client. Records are
// added by the effect, which owns the store.
func (r *reduction) snapshot() statefeed.Snapshot {
	s := r.s
	snap := statefeed.Snapshot{
		View:   statefeed.ViewFrom(s.Session.View()),
		Status: s.LastStatus,
		Flex:   statefeed.Flex{Bent: s.FlexBent},
		Gesture: statefeed.Gesture{
			Name:        s.LastGesture,
			Description: gesture.Describe(s.LastGesture),
		},
		Connection: statefeed.Connection{Enabled: s.Firebase.Enabled, Connected: s.Firebase.Connected},
		LogCount:   s.LogCount,
		Catalog:    gesture.Catalog,
	}
	if p, ok := s.Session.Pending(); ok {
		prev := ""
		if e, found := s.Session.Tree().Lookup(p.TargetPath); found {
			prev = hometree.Format(e.ValueKind, p.Previous)
		}
		snap.Pending = &statefeed.Pending{Path: p.TargetPath, Kind: string(p.Kind), Previous: prev}
	}
	return snap
}
