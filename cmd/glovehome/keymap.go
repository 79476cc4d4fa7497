package main

import "glovehome/internal/gesture"

// shortcut is what one numbered harness key does.
type shortcut struct {
	Gesture string
	// FlexBent forces the indicator to BENT first, which arms undo.
	FlexBent bool
	// Pattern latches a double bend and dispatches it.
	Pattern bool
}

// shortcuts maps harness keys 1-8 to the gestures they simulate.
var shortcuts = map[int]shortcut{
	1: {Gesture: gesture.PitchUp},
	2: {Gesture: gesture.PitchDown},
	3: {Pattern: true},
	4: {Gesture: gesture.IndexButton},
	5: {Gesture: gesture.MiddleButton},
	6: {Gesture: gesture.YawLeft, FlexBent: true},
	7: {Gesture: gesture.PalmRight},
	8: {Gesture: gesture.PalmLeft},
}

// keyCodes maps evdev key codes (top row and keypad) to harness keys.
var keyCodes = map[uint16]int{
	KEY_1: 1, KEY_2: 2, KEY_3: 3, KEY_4: 4,
	KEY_5: 5, KEY_6: 6, KEY_7: 7, KEY_8: 8,
	KEY_KP1: 1, KEY_KP2: 2, KEY_KP3: 3, KEY_KP4: 4,
	KEY_KP5: 5, KEY_KP6: 6, KEY_KP7: 7, KEY_KP8: 8,
}

// shortcutKey translates a raw input event into a harness key. Only key
// presses count; repeats and releases are ignored.
func shortcutKey(ev inputEvent) (int, bool) {
	if ev.Type != EV_KEY || ev.Value != evValuePress {
		return 0, false
	}
	k, ok := keyCodes[ev.Code]
	return k, ok
}
