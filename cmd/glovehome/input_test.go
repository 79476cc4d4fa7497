package main

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawInputEvent(typ, code uint16, value int32) []byte {
	b := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint64(b[0:8], 1700000000)
	binary.LittleEndian.PutUint64(b[8:16], 250)
	binary.LittleEndian.PutUint16(b[16:18], typ)
	binary.LittleEndian.PutUint16(b[18:20], code)
	binary.LittleEndian.PutUint32(b[20:24], uint32(value))
	return b
}

func TestDecodeInputEvent(t *testing.T) {
	require.Equal(t, 24, inputEventSize)

	ev, err := decodeInputEvent(rawInputEvent(EV_KEY, KEY_4, evValuePress))
	require.NoError(t, err)
	assert.Equal(t, inputEvent{Sec: 1700000000, Usec: 250, Type: EV_KEY, Code: KEY_4, Value: evValuePress}, ev)

	ev, err = decodeInputEvent(rawInputEvent(EV_KEY, KEY_1, -1))
	require.NoError(t, err)
	assert.Equal(t, int32(-1), ev.Value)

	_, err = decodeInputEvent(make([]byte, 10))
	assert.Error(t, err)
}

func TestShortcutKey(t *testing.T) {
	tests := []struct {
		name string
		ev   inputEvent
		key  int
		ok   bool
	}{
		{"top row press", inputEvent{Type: EV_KEY, Code: KEY_1, Value: evValuePress}, 1, true},
		{"keypad press", inputEvent{Type: EV_KEY, Code: KEY_KP8, Value: evValuePress}, 8, true},
		{"release ignored", inputEvent{Type: EV_KEY, Code: KEY_3, Value: evValueRelease}, 0, false},
		{"repeat ignored", inputEvent{Type: EV_KEY, Code: KEY_3, Value: evValueRepeat}, 0, false},
		{"other key", inputEvent{Type: EV_KEY, Code: 30, Value: evValuePress}, 0, false},
		{"not a key event", inputEvent{Type: 0x02, Code: KEY_1, Value: evValuePress}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := shortcutKey(tt.ev)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestEveryKeyCodeHasAShortcut(t *testing.T) {
	for code, key := range keyCodes {
		_, ok := shortcuts[key]
		assert.True(t, ok, "code %d maps to key %d without a shortcut", code, key)
	}
}
