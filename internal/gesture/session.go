// Package gesture routes glove gestures onto a home tree: it owns the
// navigation state, the single-slot undo memory and the latched double-bend
// signal.
package gesture

import (
	"time"

	"glovehome/internal/flex"
	"glovehome/internal/hometree"
)

// Navigation is the explorer position. SelectedPath "" means no selection.
type Navigation struct {
	CurrentPath  string
	SelectedPath string
}

// ActionKind is the kind of mutation an undo slot remembers.
type ActionKind string

const (
	ActionToggle ActionKind = "toggle"
	ActionSet    ActionKind = "set"
	ActionAdjust ActionKind = "adjust"
)

// PendingAction is the undo slot: the most recent mutation's prior value.
type PendingAction struct {
	TargetPath string
	Kind       ActionKind
	Previous   hometree.Value
}

// View is a directory listing with the current selection.
type View struct {
	Path     string
	AtRoot   bool
	Entries  []hometree.Entry
	Selected string
}

// Options configures a Session.
type Options struct {
	// FlexWindow is the double-bend matching window (0 means flex.DefaultWindow).
	FlexWindow time.Duration
}

// Session is the complete interpretation state for one glove. It is owned
// by a single goroutine; none of its methods lock.
type Session struct {
	tree    *hometree.Tree
	nav     Navigation
	pending *PendingAction

	detector *flex.Detector
	latched  bool
}

// NewSession starts at the tree root with nothing selected.
func NewSession(tree *hometree.Tree, opts Options) *Session {
	if tree == nil {
		tree = hometree.DefaultTree()
	}
	return &Session{
		tree:     tree,
		nav:      Navigation{CurrentPath: tree.Root()},
		detector: flex.NewDetector(opts.FlexWindow),
	}
}

// Tree returns the live tree. Callers must not mutate it outside the
// session's goroutine.
func (s *Session) Tree() *hometree.Tree { return s.tree }

// Navigation returns the current position.
func (s *Session) Navigation() Navigation { return s.nav }

// Pending returns the undo slot, if any.
func (s *Session) Pending() (PendingAction, bool) {
	if s.pending == nil {
		return PendingAction{}, false
	}
	return *s.pending, true
}

// PatternLatched reports whether a double bend is waiting for the next dispatch.
func (s *Session) PatternLatched() bool { return s.latched }

// ObserveFlex feeds a flex reading to the detector. When the double bend
// completes the signal is latched and true is returned.
func (s *Session) ObserveFlex(bent bool, now time.Time) bool {
	if s.detector.Observe(bent, now) {
		s.latched = true
		return true
	}
	return false
}

// LatchPattern latches the double-bend signal directly (keyboard shortcut).
func (s *Session) LatchPattern() { s.latched = true }

// View lists the current directory.
func (s *Session) View() View {
	entries := s.tree.List(s.nav.CurrentPath)
	sel := s.nav.SelectedPath
	if indexOf(entries, sel) < 0 {
		sel = ""
	}
	return View{
		Path:     s.nav.CurrentPath,
		AtRoot:   s.nav.CurrentPath == s.tree.Root(),
		Entries:  entries,
		Selected: sel,
	}
}

// ReplaceTree swaps in a rebuilt tree: navigation returns to the root, the
// undo slot and the detector are cleared.
func (s *Session) ReplaceTree(tree *hometree.Tree) {
	if tree == nil {
		return
	}
	s.tree = tree
	s.nav = Navigation{CurrentPath: tree.Root()}
	s.pending = nil
	s.latched = false
	s.detector.Reset()
}

// listing returns the current entries and the selected index. A stale
// selection is dropped; an unknown directory lists as empty.
func (s *Session) listing() ([]hometree.Entry, int) {
	entries := s.tree.List(s.nav.CurrentPath)
	idx := indexOf(entries, s.nav.SelectedPath)
	if idx < 0 {
		s.nav.SelectedPath = ""
	}
	return entries, idx
}

func indexOf(entries []hometree.Entry, path string) int {
	if path == "" {
		return -1
	}
	for i, e := range entries {
		if e.Path == path {
			return i
		}
	}
	return -1
}
