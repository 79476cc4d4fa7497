package gesture

import (
	"fmt"
	"time"

	"glovehome/internal/hometree"
)

// Dispatch processes one gesture against the session. flexBent is the
// external flex indicator at the time of the gesture.
//
// Priority, first match wins:
//  1. a latched double bend activates the selection (the gesture is ignored)
//  2. an undo gesture while bent undoes the last mutation
//  3. the named gesture
func (s *Session) Dispatch(name string, flexBent bool, now time.Time) Outcome {
	var o Outcome
	switch {
	case s.latched:
		s.latched = false
		o = s.activate()
		o.Pattern = true
	case flexBent && isUndoGesture(name):
		o = s.Undo()
	default:
		o = s.named(name)
	}
	o.Gesture = name
	o.At = now
	return o
}

func (s *Session) named(name string) Outcome {
	switch name {
	case PitchUp, legacyPalmUp:
		return s.moveSelection(-1)
	case PitchDown, legacyPalmDn:
		return s.moveSelection(1)
	case IndexButton, PalmRight:
		return s.activate()
	case MiddleButton:
		return s.adjustSelected()
	case PalmLeft:
		return s.ascend()
	case "":
		return noop("No gesture")
	default:
		return noop(fmt.Sprintf("Ignored gesture %q", name))
	}
}

// moveSelection moves by delta without wrapping. With nothing selected it
// selects the first entry.
func (s *Session) moveSelection(delta int) Outcome {
	entries, idx := s.listing()
	if len(entries) == 0 {
		return noop("Nothing to select in " + s.nav.CurrentPath)
	}
	if idx < 0 {
		return s.selectIndex(entries, 0)
	}
	next := idx + delta
	if next < 0 {
		return noop("Already at first entry")
	}
	if next >= len(entries) {
		return noop("Already at last entry")
	}
	return s.selectIndex(entries, next)
}

func (s *Session) selectIndex(entries []hometree.Entry, i int) Outcome {
	s.nav.SelectedPath = entries[i].Path
	return Outcome{
		Kind:             OutcomeSelect,
		Status:           "Selected " + entries[i].Name,
		SelectionChanged: true,
	}
}

// activate opens the selected folder or toggles the selected device.
func (s *Session) activate() Outcome {
	entries, idx := s.listing()
	if idx < 0 {
		if len(entries) == 0 {
			return noop("Nothing to select in " + s.nav.CurrentPath)
		}
		return s.selectIndex(entries, 0)
	}
	e := entries[idx]
	if e.IsFolder() {
		s.nav = Navigation{CurrentPath: e.Path}
		return Outcome{
			Kind:              OutcomeDescend,
			Status:            "Opened " + e.Name,
			SelectionChanged:  true,
			NavigationChanged: true,
		}
	}
	return s.Toggle(e.Path, nil)
}

func (s *Session) adjustSelected() Outcome {
	entries, idx := s.listing()
	if idx < 0 || entries[idx].IsFolder() {
		return noop("Select a device to adjust")
	}
	return s.Adjust(entries[idx].Path, hometree.Up)
}

// ascend moves to the parent directory. It is a no-op at the root.
func (s *Session) ascend() Outcome {
	root := s.tree.Root()
	if s.nav.CurrentPath == root {
		return noop("Already at " + root)
	}
	parent := hometree.Parent(s.nav.CurrentPath, root)
	s.nav = Navigation{CurrentPath: parent}
	return Outcome{
		Kind:              OutcomeAscend,
		Status:            "Back to " + parent,
		SelectionChanged:  true,
		NavigationChanged: true,
	}
}
