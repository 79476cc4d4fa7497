// Package flex turns the glove's noisy flex-sensor boolean into a discrete
// "double bend" signal: straight, bent, straight, bent within a short window.
package flex

import "time"

// DefaultWindow is how long a flex edge stays eligible for matching.
const DefaultWindow = 2000 * time.Millisecond

// doubleBend is the edge sequence that fires the signal, oldest first.
var doubleBend = [...]bool{false, true, false, true}

// edge is one observed state change.
type edge struct {
	bent bool
	at   time.Time
}

// Detector tracks recent flex edges. It is not safe for concurrent use.
type Detector struct {
	window time.Duration
	edges  []edge

	last bool
	seen bool
}

// NewDetector returns a detector with the given window (<= 0 means DefaultWindow).
func NewDetector(window time.Duration) *Detector {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Detector{
		window: window,
		edges:  make([]edge, 0, 8),
	}
}

// Window returns the matching window.
func (d *Detector) Window() time.Duration { return d.window }

// Observe feeds one flex reading and reports whether the double bend just
// completed. Readings equal to the previous one are ignored; the first
// reading after construction or Reset counts as an edge. A match clears the
// window so the same edges never fire twice.
func (d *Detector) Observe(bent bool, now time.Time) bool {
	if d.seen && bent == d.last {
		return false
	}
	d.seen = true
	d.last = bent

	// Keep entries strictly younger than the window.
	kept := d.edges[:0]
	for _, e := range d.edges {
		if now.Sub(e.at) < d.window {
			kept = append(kept, e)
		}
	}
	d.edges = append(kept, edge{bent: bent, at: now})

	n := len(d.edges)
	if n < len(doubleBend) {
		return false
	}
	tail := d.edges[n-len(doubleBend):]
	for i, want := range doubleBend {
		if tail[i].bent != want {
			return false
		}
	}
	d.edges = d.edges[:0]
	return true
}

// Pending returns the number of edges currently inside the window.
func (d *Detector) Pending() int { return len(d.edges) }

// Reset forgets all edges and the last observed state.
func (d *Detector) Reset() {
	d.edges = d.edges[:0]
	d.seen = false
	d.last = false
}
