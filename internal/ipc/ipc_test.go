package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/sensorlog"
)

func TestMarshalWireForm(t *testing.T) {
	bent := true
	b, err := Marshal(Gesture{Name: "Yaw LEFT", FlexBent: &bent})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"gesture","data":{"name":"Yaw LEFT","flex_bent":true}}`, string(b))

	b, err = Marshal(Undo{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"undo"}`, string(b))

	m, err := Unmarshal([]byte(`{"type":"set_device","data":{"path":"/Home/Kitchen/Light","value":"70%"}}`))
	require.NoError(t, err)
	assert.Equal(t, SetDevice{Path: "/Home/Kitchen/Light", Value: "70%"}, m)
}

func TestSensorRecordDataIsTheRecord(t *testing.T) {
	m, err := Unmarshal([]byte(`{"type":"sensor_record","data":{"flexState":100,"irState":true,"gesture":"Pitch UP"}}`))
	require.NoError(t, err)
	rec := m.(SensorRecord).Record
	assert.True(t, rec.FlexBent)
	assert.Equal(t, sensorlog.ModeIR, rec.Mode)
	assert.Equal(t, "Pitch UP", rec.Gesture)
}

func TestUnmarshalErrors(t *testing.T) {
	for _, in := range []string{
		`nope`,
		`{"type":"warp_drive"}`,
		`{"type":"gesture"}`,
		`{"type":"key_shortcut","data":{"key":"x"}}`,
	} {
		_, err := Unmarshal([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestServeAndSend(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "g.sock")

	var mu sync.Mutex
	var got []Message
	handle := func(m Message) error {
		if _, ok := m.(ClearLogs); ok {
			return errors.New("store unavailable")
		}
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, socket, handle, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, Send(socket, Gesture{Name: "Pitch UP"}))
	err = Send(socket, ClearLogs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")

	mu.Lock()
	assert.Equal(t, []Message{Gesture{Name: "Pitch UP"}}, got)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeAnswersEachLineOnOneConnection(t *testing.T) {
	dir, err := os.MkdirTemp("", "ipc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	socket := filepath.Join(dir, "g.sock")

	var mu sync.Mutex
	var got []Message
	handle := func(m Message) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, m)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = Serve(ctx, socket, handle, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	var conn net.Conn
	require.Eventually(t, func() bool {
		conn, err = net.Dial("unix", socket)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	defer conn.Close()

	undo, err := Marshal(Undo{})
	require.NoError(t, err)
	key, err := Marshal(KeyShortcut{Key: 3})
	require.NoError(t, err)
	for _, line := range [][]byte{undo, []byte("not json"), key} {
		_, err := conn.Write(append(line, '\n'))
		require.NoError(t, err)
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	dec := json.NewDecoder(conn)
	var resps []Response
	for i := 0; i < 3; i++ {
		var r Response
		require.NoError(t, dec.Decode(&r))
		resps = append(resps, r)
	}
	assert.Equal(t, "ok", resps[0].Status)
	assert.Equal(t, "error", resps[1].Status)
	assert.Contains(t, resps[1].Error, "parse message")
	assert.Equal(t, "ok", resps[2].Status)

	mu.Lock()
	assert.Equal(t, []Message{Undo{}, KeyShortcut{Key: 3}}, got)
	mu.Unlock()
}
