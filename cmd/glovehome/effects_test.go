package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glovehome/internal/sensorlog"
	"glovehome/internal/statefeed"
)

type fakeRemote struct {
	mu        sync.Mutex
	history   []sensorlog.Record
	lastErr   error
	removeErr error
	removed   []string
	pushed    []sensorlog.Record
}

func (f *fakeRemote) LastN(ctx context.Context, path string, n int) ([]sensorlog.Record, error) {
	if f.lastErr != nil {
		return nil, f.lastErr
	}
	if n < len(f.history) {
		return f.history[len(f.history)-n:], nil
	}
	return f.history, nil
}

func (f *fakeRemote) Remove(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeRemote) Push(ctx context.Context, path string, rec sensorlog.Record) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, rec)
	return "-key" + rec.ID, nil
}

func (f *fakeRemote) pushedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.pushed))
	for i, r := range f.pushed {
		out[i] = r.ID
	}
	return out
}

type fakeMirror struct{ full bool }

func (f *fakeMirror) Enqueue(sensorlog.Record) bool { return !f.full }

func collect(t *testing.T, deps effectDeps, cmd Command) []Event {
	t.Helper()
	var got []Event
	runEffect(context.Background(), deps, cmd, slog.Default(), func(ev Event) { got = append(got, ev) })
	return got
}

func storeWith(t *testing.T, ids ...string) *sensorlog.Store {
	t.Helper()
	s := sensorlog.NewStore(0)
	for i, id := range ids {
		_, _, err := s.Append(sensorlog.Record{ID: id, Timestamp: t0.Add(time.Duration(i) * time.Second), Gesture: "None"})
		require.NoError(t, err)
	}
	return s
}

func TestRunEffect_PersistRecord(t *testing.T) {
	deps := effectDeps{store: storeWith(t, "a")}
	rec := sensorlog.Record{ID: "b", Timestamp: t0, Gesture: "Pitch UP"}

	got := collect(t, deps, CmdPersistRecord{Record: rec, Origin: originHTTP})
	require.Len(t, got, 1)
	stored, ok := got[0].(RecordStored)
	require.True(t, ok)
	assert.True(t, stored.Added)
	assert.Equal(t, 2, stored.Count)
	assert.Equal(t, originHTTP, stored.Origin)
	assert.Equal(t, "b", stored.Record.ID)

	got = collect(t, deps, CmdPersistRecord{Record: rec, Origin: originCloud})
	require.Len(t, got, 1)
	assert.False(t, got[0].(RecordStored).Added, "same ID is a duplicate")
	assert.Equal(t, 2, got[0].(RecordStored).Count)
}

func TestRunEffect_NoStore(t *testing.T) {
	got := collect(t, effectDeps{}, CmdClearLogs{})
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].(CommandFailed).Err, errNoStore)
}

func TestRunEffect_MirrorRecord(t *testing.T) {
	store := storeWith(t)

	got := collect(t, effectDeps{store: store}, CmdMirrorRecord{Record: sensorlog.Record{ID: "x"}})
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].(CommandFailed).Err, errNoRemote)

	assert.Empty(t, collect(t, effectDeps{store: store, mirror: &fakeMirror{}}, CmdMirrorRecord{}))
	// A full queue only logs.
	assert.Empty(t, collect(t, effectDeps{store: store, mirror: &fakeMirror{full: true}}, CmdMirrorRecord{}))
}

func TestRunEffect_LoadHistoryReplacesStore(t *testing.T) {
	remote := &fakeRemote{history: []sensorlog.Record{
		{ID: "h1", Timestamp: t0},
		{ID: "h2", Timestamp: t0.Add(time.Second)},
		{ID: "h3", Timestamp: t0.Add(2 * time.Second)},
	}}
	deps := effectDeps{store: storeWith(t, "local"), remote: remote, path: "sensor_logs"}

	got := collect(t, deps, CmdLoadHistory{Limit: 2})
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].(HistoryLoaded).Count)

	recent := deps.store.Recent(0)
	require.Len(t, recent, 2)
	assert.Equal(t, "h3", recent[0].ID)
	assert.Equal(t, "h2", recent[1].ID)
}

func TestRunEffect_LoadHistoryFailureKeepsStore(t *testing.T) {
	boom := errors.New("boom")
	deps := effectDeps{store: storeWith(t, "local"), remote: &fakeRemote{lastErr: boom}}

	got := collect(t, deps, CmdLoadHistory{Limit: 10})
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0].(CommandFailed).Err, boom)
	assert.Equal(t, 1, deps.store.Len())

	got = collect(t, effectDeps{store: deps.store}, CmdLoadHistory{Limit: 10})
	assert.ErrorIs(t, got[0].(CommandFailed).Err, errNoRemote)
}

func TestRunEffect_ClearLogs(t *testing.T) {
	t.Run("local only", func(t *testing.T) {
		deps := effectDeps{store: storeWith(t, "a", "b")}
		got := collect(t, deps, CmdClearLogs{})
		require.Len(t, got, 1)
		assert.IsType(t, LogsCleared{}, got[0])
		assert.Zero(t, deps.store.Len())
	})

	t.Run("remote first", func(t *testing.T) {
		remote := &fakeRemote{}
		deps := effectDeps{store: storeWith(t, "a"), remote: remote, path: "sensor_logs"}
		got := collect(t, deps, CmdClearLogs{Remote: true})
		require.Len(t, got, 1)
		assert.IsType(t, LogsCleared{}, got[0])
		assert.Equal(t, []string{"sensor_logs"}, remote.removed)
		assert.Zero(t, deps.store.Len())
	})

	t.Run("remote failure keeps local records", func(t *testing.T) {
		boom := errors.New("permission denied")
		deps := effectDeps{store: storeWith(t, "a"), remote: &fakeRemote{removeErr: boom}}
		got := collect(t, deps, CmdClearLogs{Remote: true})
		require.Len(t, got, 1)
		assert.ErrorIs(t, got[0].(CommandFailed).Err, boom)
		assert.Equal(t, 1, deps.store.Len())
	})
}

func TestRunEffect_PublishSnapshotFillsRecords(t *testing.T) {
	deps := effectDeps{store: storeWith(t, "a", "b", "c"), recent: 2}
	reply := make(chan statefeed.Snapshot, 1)

	got := collect(t, deps, CmdPublishStateSnapshot{Reply: reply, Snapshot: statefeed.Snapshot{Status: "ok"}})
	assert.Empty(t, got)

	snap := <-reply
	assert.Equal(t, "ok", snap.Status)
	assert.Equal(t, 3, snap.LogCount)
	require.Len(t, snap.Records, 2)
	assert.Equal(t, "c", snap.Records[0].ID)
}

func TestRunEffect_PublishSnapshotNeverBlocks(t *testing.T) {
	deps := effectDeps{store: storeWith(t)}
	reply := make(chan statefeed.Snapshot) // nobody reads

	done := make(chan struct{})
	go func() {
		defer close(done)
		collect(t, deps, CmdPublishStateSnapshot{Reply: reply})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runEffect blocked on the reply channel")
	}
}

type bogusCommand struct{}

func (bogusCommand) commandMarker() {}
func (bogusCommand) String() string { return "bogus" }

func TestRunEffect_UnknownCommand(t *testing.T) {
	got := collect(t, effectDeps{store: storeWith(t)}, bogusCommand{})
	require.Len(t, got, 1)
	var unknown errUnknownCommand
	require.ErrorAs(t, got[0].(CommandFailed).Err, &unknown)
	assert.Equal(t, "unknown command: bogus", unknown.Error())
}

func TestMirror_PushesQueuedRecords(t *testing.T) {
	remote := &fakeRemote{}
	m := NewMirror(remote, "sensor_logs", 4, slog.Default())
	require.True(t, m.Enqueue(sensorlog.Record{ID: "a"}))
	require.True(t, m.Enqueue(sensorlog.Record{ID: "b"}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return len(remote.pushedIDs()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"a", "b"}, remote.pushedIDs())

	cancel()
	require.NoError(t, <-done)
}

func TestMirror_EnqueueReportsFullQueue(t *testing.T) {
	m := NewMirror(&fakeRemote{}, "sensor_logs", 1, slog.Default())
	assert.True(t, m.Enqueue(sensorlog.Record{ID: "a"}))
	assert.False(t, m.Enqueue(sensorlog.Record{ID: "b"}))
}
