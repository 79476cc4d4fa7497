package gesture

import "strings"

// Gesture names as reported by the glove firmware.
const (
	PitchUp       = "Pitch UP"
	PitchDown     = "Pitch DOWN"
	RollLeft      = "Roll LEFT"
	RollRight     = "Roll RIGHT"
	YawLeft       = "Yaw LEFT"
	YawRight      = "Yaw RIGHT"
	IndexButton   = "INDEX_BUTTON_PRESSED"
	MiddleButton  = "MIDDLE_BUTTON_PRESSED"
	PalmLeft      = "Palm Left"
	PalmRight     = "Palm Right"
	NoGesture     = "None"
	legacyPalmUp  = "Palm Up"
	legacyPalmDn  = "Palm Down"
	legacyFistL   = "Fist Left"
	legacyFistR   = "Fist Right"
	undoNameToken = "Yaw"
)

// legacyUndoGestures are older firmware names that also undo while bent.
var legacyUndoGestures = map[string]bool{
	legacyFistL: true,
	legacyFistR: true,
}

// isUndoGesture reports whether name triggers undo when the flex sensor is bent.
func isUndoGesture(name string) bool {
	return strings.Contains(name, undoNameToken) || legacyUndoGestures[name]
}

// Info describes one gesture of the catalog.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog is the gesture vocabulary shown on the dashboard, in display order.
var Catalog = []Info{
	{PitchUp, "Closed fist up: move selection up."},
	{PitchDown, "Closed fist down: move selection down."},
	{RollLeft, "Palm roll left."},
	{RollRight, "Palm roll right."},
	{YawLeft, "Rotate left while bent: undo."},
	{YawRight, "Rotate right while bent: undo."},
	{IndexButton, "Index finger press: open folder or toggle device."},
	{MiddleButton, "Middle finger press: raise device value."},
	{PalmLeft, "Open palm left: back to parent room."},
	{PalmRight, "Open palm right: open folder or toggle device."},
}

// Describe returns the catalog description of name, or "".
func Describe(name string) string {
	for _, g := range Catalog {
		if g.Name == name {
			return g.Description
		}
	}
	return ""
}
