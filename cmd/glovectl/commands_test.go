package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/ipc"
)

type sent struct {
	socket string
	msg    ipc.Message
}

func execute(t *testing.T, stdin string, args ...string) ([]sent, string, error) {
	t.Helper()
	var got []sent
	send := func(socket string, m ipc.Message) error {
		got = append(got, sent{socket, m})
		return nil
	}
	root := newRootCmd(send, strings.NewReader(stdin))
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return got, out.String(), err
}

func TestCommandsBuildMessages(t *testing.T) {
	bent := true
	straight := false
	tests := []struct {
		args []string
		want ipc.Message
	}{
		{[]string{"gesture", "Pitch UP"}, ipc.Gesture{Name: "Pitch UP"}},
		{[]string{"gesture", "Yaw LEFT", "--bent"}, ipc.Gesture{Name: "Yaw LEFT", FlexBent: &bent}},
		{[]string{"gesture", "Yaw LEFT", "--straight"}, ipc.Gesture{Name: "Yaw LEFT", FlexBent: &straight}},
		{[]string{"flex", "bent"}, ipc.FlexState{Bent: true}},
		{[]string{"flex", "STRAIGHT"}, ipc.FlexState{Bent: false}},
		{[]string{"double-bend"}, ipc.DoubleBend{}},
		{[]string{"undo"}, ipc.Undo{}},
		{[]string{"set", "/Home/Kitchen/Light", "50%"}, ipc.SetDevice{Path: "/Home/Kitchen/Light", Value: "50%"}},
		{[]string{"adjust", "/Home/Bedroom/AC", "up"}, ipc.AdjustDevice{Path: "/Home/Bedroom/AC", Direction: "up"}},
		{[]string{"clear-logs"}, ipc.ClearLogs{}},
		{[]string{"key", "6"}, ipc.KeyShortcut{Key: 6}},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got, out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, ipc.DefaultSocketPath, got[0].socket)
			assert.Equal(t, tt.want, got[0].msg)
			assert.Equal(t, "ok\n", out)
		})
	}
}

func TestSocketFlag(t *testing.T) {
	got, _, err := execute(t, "", "--socket", "/run/glove.sock", "undo")
	require.NoError(t, err)
	assert.Equal(t, "/run/glove.sock", got[0].socket)
}

func TestRecordFromStdinAndFile(t *testing.T) {
	body := `{"timestamp":1700000000000,"Flex Sensor":"BENT","gesture":"Palm Left"}`

	got, _, err := execute(t, body, "record", "-")
	require.NoError(t, err)
	rec := got[0].msg.(ipc.SensorRecord).Record
	assert.Equal(t, "Palm Left", rec.Gesture)
	assert.True(t, rec.FlexBent)

	p := filepath.Join(t.TempDir(), "rec.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	got, _, err = execute(t, "", "record", p)
	require.NoError(t, err)
	assert.Equal(t, "Palm Left", got[0].msg.(ipc.SensorRecord).Record.Gesture)
}

func TestCommandsRejectBadInput(t *testing.T) {
	for _, args := range [][]string{
		{"key", "9"},
		{"key", "x"},
		{"flex", "wobbly"},
		{"gesture", "Yaw LEFT", "--bent", "--straight"},
		{"set", "/Home/Kitchen/Light"},
		{"record", "-"},
	} {
		got, _, err := execute(t, "not json", args...)
		assert.Error(t, err, args)
		assert.Empty(t, got, args)
	}
}

func TestDaemonErrorIsReturned(t *testing.T) {
	root := newRootCmd(func(string, ipc.Message) error { return errors.New("daemon error: no shortcut") }, nil)
	root.SetArgs([]string{"undo"})
	root.SetOut(&bytes.Buffer{})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no shortcut")
}
