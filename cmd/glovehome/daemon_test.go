package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/gesture"
	"glovehome/internal/sensorlog"
	"glovehome/internal/statefeed"
)

type daemonHarness struct {
	events     chan Event
	broadcasts chan StateBroadcast
	store      *sensorlog.Store
	cancel     context.CancelFunc
	done       chan struct{}
}

func startDaemon(t *testing.T, deps effectDeps, fb FirebaseState) *daemonHarness {
	t.Helper()
	if deps.store == nil {
		deps.store = sensorlog.NewStore(0)
	}
	h := &daemonHarness{
		events:     make(chan Event, 16),
		broadcasts: make(chan StateBroadcast, 256),
		store:      deps.store,
		done:       make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel

	state := newTestState(fb)
	go func() {
		defer close(h.done)
		runDaemon(ctx, h.events, deps, state, ReducerConfig{HistoryLimit: 50}, h.broadcasts, slog.Default())
	}()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

// waitFor drains broadcasts until one of type T arrives.
func waitFor[T StateBroadcast](t *testing.T, h *daemonHarness) T {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case b := <-h.broadcasts:
			if v, ok := b.(T); ok {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("no %T broadcast", zero)
			return zero
		}
	}
}

func (h *daemonHarness) snapshot(t *testing.T) statefeed.Snapshot {
	t.Helper()
	snap, ok := requestSnapshot(context.Background(), h.events, time.Second)
	require.True(t, ok, "daemon did not answer the snapshot request")
	return snap
}

func TestDaemon_GestureFlowsToBroadcastAndSnapshot(t *testing.T) {
	h := startDaemon(t, effectDeps{}, FirebaseState{})

	h.events <- GestureReceived{Name: gesture.PitchDown}
	o := waitFor[BroadcastOutcome](t, h)
	assert.Equal(t, "Selected Bathroom", o.Outcome.Status)
	assert.False(t, o.Outcome.At.IsZero(), "daemon stamps events")

	snap := h.snapshot(t)
	assert.Equal(t, "Selected Bathroom", snap.Status)
	assert.Equal(t, "/Home/Bathroom", snap.View.Selected)
	assert.Equal(t, gesture.PitchDown, snap.Gesture.Name)
	assert.NotEmpty(t, snap.Catalog)
}

func TestDaemon_IngestedRecordIsStoredMirroredAndDispatched(t *testing.T) {
	remote := &fakeRemote{}
	mirror := NewMirror(remote, "sensor_logs", 4, slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = mirror.Run(ctx) }()

	h := startDaemon(t, effectDeps{remote: remote, mirror: mirror, path: "sensor_logs", recent: 5},
		FirebaseState{Enabled: true, Mirror: true})

	// DaemonStarted loads the (empty) history first.
	assert.Equal(t, 0, waitFor[BroadcastLogCount](t, h).Count)

	h.events <- RecordIngested{Record: sensorlog.Record{ID: "r1", Gesture: gesture.PitchDown, FlexBent: true}, Origin: originHTTP}

	rec := waitFor[BroadcastRecord](t, h)
	assert.Equal(t, "r1", rec.Record.ID)
	assert.False(t, rec.Record.Timestamp.IsZero())
	assert.Equal(t, 1, waitFor[BroadcastLogCount](t, h).Count)
	assert.True(t, waitFor[BroadcastFlexChanged](t, h).Bent)
	assert.Equal(t, "Selected Bathroom", waitFor[BroadcastOutcome](t, h).Outcome.Status)

	require.Eventually(t, func() bool { return len(remote.pushedIDs()) == 1 }, time.Second, 10*time.Millisecond)

	snap := h.snapshot(t)
	assert.Equal(t, 1, snap.LogCount)
	require.Len(t, snap.Records, 1)
	assert.Equal(t, "r1", snap.Records[0].ID)
	assert.True(t, snap.Flex.Bent)
}

func TestDaemon_CloudHistoryIsLoggedButNotDispatched(t *testing.T) {
	remote := &fakeRemote{history: []sensorlog.Record{{ID: "old", Timestamp: t0, Gesture: gesture.PitchDown}}}
	h := startDaemon(t, effectDeps{remote: remote, path: "sensor_logs", recent: 5}, FirebaseState{Enabled: true})

	assert.Equal(t, 1, waitFor[BroadcastLogCount](t, h).Count)

	h.events <- FirebaseRecords{Initial: true, Records: []sensorlog.Record{{ID: "snap", Timestamp: t0.Add(time.Second), Gesture: gesture.PitchDown}}}
	h.events <- FirebaseRecords{Records: []sensorlog.Record{{ID: "live", Timestamp: t0.Add(2 * time.Second), Gesture: gesture.PitchDown}}}

	// Only the live record moves the selection.
	o := waitFor[BroadcastOutcome](t, h)
	assert.Equal(t, "Selected Bathroom", o.Outcome.Status)

	snap := h.snapshot(t)
	assert.Equal(t, 3, snap.LogCount)
	assert.Equal(t, "/Home/Bathroom", snap.View.Selected)
}

func TestDaemon_ClearLogs(t *testing.T) {
	store := sensorlog.NewStore(0)
	_, _, err := store.Append(sensorlog.Record{ID: "a", Timestamp: t0})
	require.NoError(t, err)

	h := startDaemon(t, effectDeps{store: store}, FirebaseState{})
	h.events <- ClearLogsRequested{}

	waitFor[BroadcastLogsCleared](t, h)
	assert.Zero(t, store.Len())
	assert.Zero(t, h.snapshot(t).LogCount)
}

func TestDaemon_StopsWhenEventsClose(t *testing.T) {
	events := make(chan Event)
	done := make(chan struct{})
	go func() {
		defer close(done)
		runDaemon(context.Background(), events, effectDeps{store: sensorlog.NewStore(0)},
			newTestState(FirebaseState{}), ReducerConfig{}, nil, slog.Default())
	}()
	close(events)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("daemon did not stop")
	}
}
