package sensorlog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCurrentFirmwareRecord(t *testing.T) {
	r, err := Decode([]byte(`{
		"timestamp": 1700000000123,
		"mode": 1,
		"Flex Sensor": "BENT",
		"imu": {"pitch": 12.5, "roll": -3, "yaw": 90},
		"flexValues": [10, 85.5],
		"gesture": "Pitch UP"
	}`))
	require.NoError(t, err)

	assert.Equal(t, time.UnixMilli(1700000000123), r.Timestamp)
	assert.Equal(t, ModeSmartHome, r.Mode)
	assert.True(t, r.FlexBent)
	assert.Equal(t, "Pitch UP", r.Gesture)
	assert.Equal(t, "P: 12.5°, R: -3°, Y: 90°", r.IMUText())
	assert.Equal(t, "10%, 85.5%", r.FlexValuesText())
	assert.Equal(t, "NA", r.IRText())
}

func TestDecodeFlexStateVariants(t *testing.T) {
	tests := map[string]bool{
		`{"flexState": true}`:         true,
		`{"flexState": false}`:        false,
		`{"flexState": 100}`:          true,
		`{"flexState": 40}`:           false,
		`{"flexState": "BENT"}`:       true,
		`{"Flex Sensor": "STRAIGHT"}`: false,
		`{}`:                          false,
	}
	for in, want := range tests {
		r, err := Decode([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, want, r.FlexBent, in)
	}
}

func TestDecodeLegacyModeNormalisation(t *testing.T) {
	r, err := Decode([]byte(`{"irState": true, "gesture": "None"}`))
	require.NoError(t, err)
	assert.Equal(t, ModeIR, r.Mode)
	assert.Equal(t, "ON", r.IRSensor)
	assert.False(t, r.HasGesture())

	r, err = Decode([]byte(`{"irState": false}`))
	require.NoError(t, err)
	assert.Equal(t, ModeSmartHome, r.Mode)
	assert.Equal(t, "OFF", r.IRSensor)

	r, err = Decode([]byte(`{"mode": "MODE_BLE_MOUSE"}`))
	require.NoError(t, err)
	assert.Equal(t, ModeBLEMouse, r.Mode)
	assert.Equal(t, "BLE Mouse", r.Mode.String())

	r, err = Decode([]byte(`{"mode": 4, "irState": true}`))
	require.NoError(t, err)
	assert.Equal(t, ModeOffline, r.Mode, "explicit mode wins")
}

func TestIRText(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"", "Select Mode"},
		{"Learning slot 2", "Learning – slot 2"},
		{"Sending slot 13", "Sending – slot 13"},
		{"Idle", "Idle"},
		{"Learning", "Learning"},
	}
	for _, tt := range tests {
		r := Record{Mode: ModeIR, IRState: tt.state}
		assert.Equal(t, tt.want, r.IRText(), tt.state)
	}
}

func TestEmptyGestureIsStillDispatched(t *testing.T) {
	r, err := Decode([]byte(`{"timestamp": 1}`))
	require.NoError(t, err)
	assert.Equal(t, "", r.Gesture)
	assert.True(t, r.HasGesture())
}

func TestMarshalWritesCanonicalShape(t *testing.T) {
	r := Record{
		ID:        "abc",
		Timestamp: time.UnixMilli(1700000000000),
		Mode:      ModeIR,
		FlexBent:  true,
		IRState:   "Sending slot 1",
		Gesture:   "Yaw LEFT",
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "abc", m["id"])
	assert.EqualValues(t, 1700000000000, m["timestamp"])
	assert.EqualValues(t, 3, m["mode"])
	assert.Equal(t, "BENT", m["Flex Sensor"])
	assert.Equal(t, true, m["flexState"])
	assert.Equal(t, "Sending slot 1", m["IRState"])
	assert.Equal(t, "Yaw LEFT", m["gesture"])

	back, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte(`{"timestamp": "soon"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
