package gesture

import (
	"time"

	"glovehome/internal/hometree"
)

// OutcomeKind classifies what a dispatch did.
type OutcomeKind string

const (
	OutcomeNone    OutcomeKind = "none"
	OutcomeSelect  OutcomeKind = "select"
	OutcomeDescend OutcomeKind = "descend"
	OutcomeAscend  OutcomeKind = "ascend"
	OutcomeToggle  OutcomeKind = "toggle"
	OutcomeSet     OutcomeKind = "set"
	OutcomeAdjust  OutcomeKind = "adjust"
	OutcomeUndo    OutcomeKind = "undo"
)

// Outcome is what the renderer needs after one dispatch.
type Outcome struct {
	Kind    OutcomeKind
	Gesture string
	// Pattern is set when a latched double bend drove the dispatch.
	Pattern bool
	Status  string

	SelectionChanged  bool
	NavigationChanged bool
	// DeviceMutated is the device after the change, nil when nothing changed.
	DeviceMutated *hometree.Entry

	At time.Time
}

// Mutated reports whether a device value changed.
func (o Outcome) Mutated() bool { return o.DeviceMutated != nil }

func noop(status string) Outcome {
	return Outcome{Kind: OutcomeNone, Status: status}
}
