package statefeed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/gesture"
	"glovehome/internal/hometree"
)

func TestViewFromDefaultHome(t *testing.T) {
	s := gesture.NewSession(nil, gesture.Options{})
	s.Dispatch(gesture.PitchDown, false, time.Now())

	v := ViewFrom(s.View())
	assert.Equal(t, "/Home", v.Path)
	assert.True(t, v.AtRoot)
	require.Len(t, v.Entries, 4)
	assert.True(t, v.Entries[0].Folder)
	assert.Empty(t, v.Entries[0].Value)
	assert.Equal(t, v.Entries[0].Path, v.Selected)
}

func TestOutcomeFromDeviceMutation(t *testing.T) {
	s := gesture.NewSession(nil, gesture.Options{})
	o := s.Toggle("/Home/Kitchen/Light", nil)

	w := OutcomeFrom(o)
	assert.Equal(t, "toggle", w.Kind)
	require.NotNil(t, w.Device)
	assert.Equal(t, "50%", w.Device.Value)
	assert.Equal(t, hometree.ValuePercentage.String(), w.Device.Type)
	assert.False(t, w.Device.Folder)
}

func TestDialAndNext(t *testing.T) {
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()
		now := time.Now().UTC()
		data, _ := json.Marshal(Snapshot{LogCount: 7, Flex: Flex{Bent: true}})
		frame, _ := json.Marshal(Envelope{Type: TypeStateInit, Ts: &now, Data: data})
		_ = conn.WriteMessage(websocket.TextMessage, frame)
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	c, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	require.NoError(t, err)
	defer c.Close()

	env, err := c.Next()
	require.NoError(t, err)
	assert.Equal(t, TypeStateInit, env.Type)

	var snap Snapshot
	require.NoError(t, env.Decode(&snap))
	assert.Equal(t, 7, snap.LogCount)
	assert.True(t, snap.Flex.Bent)

	_, err = c.Next()
	assert.True(t, IsNormalClose(err), "%v", err)
}
