// Package hometree models the smart-home as a file-explorer tree: rooms are
// folders, devices are leaves carrying a tagged value.
package hometree

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DefaultRoot is the root directory of every home.
const DefaultRoot = "/Home"

// Kind tags an Entry as a folder or a device.
type Kind int

const (
	KindFolder Kind = iota
	KindDevice
)

func (k Kind) String() string {
	if k == KindDevice {
		return "device"
	}
	return "folder"
}

// Entry is one row of a directory listing.
type Entry struct {
	Name string
	Path string
	Kind Kind

	// Device-only fields.
	ValueKind ValueKind
	Value     Value
	DefaultOn Value
}

// IsFolder reports whether the entry can be entered.
func (e Entry) IsFolder() bool { return e.Kind == KindFolder }

// Display renders the device value; folders render as "".
func (e Entry) Display() string {
	if e.IsFolder() {
		return ""
	}
	return Format(e.ValueKind, e.Value)
}

// Tree maps directory paths to their entries. It is not safe for concurrent
// use; the daemon loop owns it.
type Tree struct {
	root  string
	dirs  map[string][]*Entry
	index map[string]*Entry
	coll  *collate.Collator
}

// New returns an empty tree rooted at root ("" means DefaultRoot).
func New(root string) *Tree {
	if root == "" {
		root = DefaultRoot
	}
	return &Tree{
		root:  root,
		dirs:  make(map[string][]*Entry),
		index: make(map[string]*Entry),
		coll:  collate.New(language.English),
	}
}

// Root returns the root directory path.
func (t *Tree) Root() string { return t.root }

// Len returns the number of entries (folders and devices) below the root.
func (t *Tree) Len() int { return len(t.index) }

// Add inserts e into directory dir. The entry path must be unique and dir
// must be the root or an existing folder. Device values must be legal for
// their kind.
func (t *Tree) Add(dir string, e Entry) error {
	if e.Name == "" {
		return fmt.Errorf("add to %s: entry name is empty", dir)
	}
	if e.Path == "" || e.Path == t.root {
		return fmt.Errorf("add %q: invalid path %q", e.Name, e.Path)
	}
	if _, dup := t.index[e.Path]; dup {
		return fmt.Errorf("add %q: duplicate path %s", e.Name, e.Path)
	}
	if !t.HasDir(dir) {
		return fmt.Errorf("add %q: no directory %s", e.Name, dir)
	}
	if e.Kind == KindDevice {
		if !Legal(e.ValueKind, e.Value) {
			return fmt.Errorf("add %q: value %+v illegal for %s", e.Name, e.Value, e.ValueKind)
		}
		if !Legal(e.ValueKind, e.DefaultOn) || !e.DefaultOn.On {
			return fmt.Errorf("add %q: default %+v illegal for %s", e.Name, e.DefaultOn, e.ValueKind)
		}
	} else {
		e.ValueKind, e.Value, e.DefaultOn = ValueNone, Off, Off
	}

	entry := e
	t.dirs[dir] = append(t.dirs[dir], &entry)
	t.index[entry.Path] = &entry
	return nil
}

// HasDir reports whether path names a directory (the root or a folder).
func (t *Tree) HasDir(path string) bool {
	if path == t.root {
		return true
	}
	e, ok := t.index[path]
	return ok && e.IsFolder()
}

// Lookup returns a copy of the entry at path.
func (t *Tree) Lookup(path string) (Entry, bool) {
	e, ok := t.index[path]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// List returns copies of the entries of dir in display order: folders
// first, then by name in English collation order. Unknown directories list
// as empty.
func (t *Tree) List(dir string) []Entry {
	src := t.dirs[dir]
	out := make([]Entry, 0, len(src))
	for _, e := range src {
		out = append(out, *e)
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		if a.IsFolder() != b.IsFolder() {
			if a.IsFolder() {
				return -1
			}
			return 1
		}
		return t.coll.CompareString(a.Name, b.Name)
	})
	return out
}

// SetValue stores v on the device at path and returns the updated entry.
// It fails for folders, unknown paths and values illegal for the device.
func (t *Tree) SetValue(path string, v Value) (Entry, error) {
	e, ok := t.index[path]
	if !ok {
		return Entry{}, fmt.Errorf("no entry at %s", path)
	}
	if e.IsFolder() {
		return Entry{}, fmt.Errorf("%s is a folder", path)
	}
	if !Legal(e.ValueKind, v) {
		return Entry{}, fmt.Errorf("%s: %s value %s out of range", path, e.ValueKind, Format(e.ValueKind, v))
	}
	e.Value = v
	return *e, nil
}

// Walk visits every entry depth-first in display order.
func (t *Tree) Walk(fn func(dir string, e Entry)) {
	var visit func(dir string)
	visit = func(dir string) {
		for _, e := range t.List(dir) {
			fn(dir, e)
			if e.IsFolder() {
				visit(e.Path)
			}
		}
	}
	visit(t.root)
}

// Parent returns the directory containing path: the prefix up to the last
// "/". Paths without a usable parent fall back to root.
func Parent(path, root string) string {
	i := strings.LastIndex(path, "/")
	if i <= 0 || path == root {
		return root
	}
	parent := path[:i]
	if len(parent) < len(root) {
		return root
	}
	return parent
}
