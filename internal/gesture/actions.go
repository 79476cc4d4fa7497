package gesture

import (
	"glovehome/internal/hometree"
)

// Toggle flips the device at path, or sets it to *forced when non-nil. The
// prior value replaces whatever the undo slot held.
func (s *Session) Toggle(path string, forced *hometree.Value) Outcome {
	e, ok := s.tree.Lookup(path)
	if !ok || e.IsFolder() {
		return noop("No device at " + path)
	}

	kind := ActionToggle
	next := hometree.Toggled(e.ValueKind, e.Value, e.DefaultOn)
	if forced != nil {
		if !hometree.Legal(e.ValueKind, *forced) {
			return noop("Invalid value for " + e.Name)
		}
		kind = ActionSet
		next = *forced
	}

	updated, err := s.tree.SetValue(path, next)
	if err != nil {
		return noop(err.Error())
	}
	s.pending = &PendingAction{TargetPath: path, Kind: kind, Previous: e.Value}

	outKind := OutcomeToggle
	if kind == ActionSet {
		outKind = OutcomeSet
	}
	return Outcome{
		Kind:          outKind,
		Status:        updated.Name + " set to " + updated.Display(),
		DeviceMutated: &updated,
	}
}

// Adjust steps a graduated device one notch in dir. Switches are no-ops.
// Any graduated device takes over the undo slot, even when the step is
// clamped or starts from OFF going down.
func (s *Session) Adjust(path string, dir hometree.Direction) Outcome {
	e, ok := s.tree.Lookup(path)
	if !ok || e.IsFolder() {
		return noop("No device at " + path)
	}
	if !e.ValueKind.Graduated() {
		return noop(e.Name + " has no adjustable value")
	}

	s.pending = &PendingAction{TargetPath: path, Kind: ActionAdjust, Previous: e.Value}
	next, changed := hometree.Stepped(e.ValueKind, e.Value, dir)
	if !changed {
		return Outcome{Kind: OutcomeAdjust, Status: e.Name + " stays at " + e.Display()}
	}

	updated, err := s.tree.SetValue(path, next)
	if err != nil {
		return noop(err.Error())
	}

	return Outcome{
		Kind:          OutcomeAdjust,
		Status:        updated.Name + " adjusted to " + updated.Display(),
		DeviceMutated: &updated,
	}
}

// Undo restores the device named by the undo slot and empties it. Calling
// it with an empty slot is harmless.
func (s *Session) Undo() Outcome {
	p := s.pending
	if p == nil {
		return noop("Nothing to undo")
	}
	s.pending = nil

	restored, err := s.tree.SetValue(p.TargetPath, p.Previous)
	if err != nil {
		return noop("Cannot undo: " + p.TargetPath + " no longer exists")
	}
	return Outcome{
		Kind:          OutcomeUndo,
		Status:        "Undid: " + restored.Name + " returned to " + restored.Display(),
		DeviceMutated: &restored,
	}
}
