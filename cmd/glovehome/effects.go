package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"glovehome/internal/sensorlog"
)

// recordRemote is the part of the cloud client the effects layer calls
// synchronously.
type recordRemote interface {
	LastN(ctx context.Context, path string, n int) ([]sensorlog.Record, error)
	Remove(ctx context.Context, path string) error
}

// recordMirror queues records for upload without blocking the daemon loop.
type recordMirror interface {
	Enqueue(rec sensorlog.Record) bool
}

// effectDeps are the external systems commands run against.
type effectDeps struct {
	store  *sensorlog.Store
	remote recordRemote
	mirror recordMirror
	// path is the cloud node records live under.
	path string
	// recent is how many records a state snapshot carries.
	recent int
}

// runEffect executes a single reducer-emitted Command against the record
// store or the cloud database and emits an observation Event via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced by the daemon loop.
func runEffect(
	ctx context.Context,
	deps effectDeps,
	cmd Command,
	logger *slog.Logger,
	onEvent func(Event),
) {
	if onEvent == nil {
		return
	}

	now := time.Now()
	fail := func(err error) {
		onEvent(CommandFailed{Command: cmd, Err: err, At: now})
	}

	if deps.store == nil {
		fail(errNoStore)
		return
	}

	switch c := cmd.(type) {
	case CmdPersistRecord:
		rec, added, err := deps.store.Append(c.Record)
		if err != nil {
			logger.Error("persist record failed", "error", err, "origin", c.Origin)
			fail(err)
			return
		}
		if !added {
			logger.Debug("duplicate record ignored", "id", rec.ID, "origin", c.Origin)
		}
		onEvent(RecordStored{Record: rec, Origin: c.Origin, Added: added, Count: deps.store.Len(), At: now})

	case CmdMirrorRecord:
		if deps.mirror == nil {
			fail(errNoRemote)
			return
		}
		if !deps.mirror.Enqueue(c.Record) {
			logger.Warn("mirror queue full; dropping record", "id", c.Record.ID)
		}

	case CmdLoadHistory:
		if deps.remote == nil {
			fail(errNoRemote)
			return
		}
		rctx, cancel := context.WithTimeout(ctx, remoteEffectTimeout)
		recs, err := deps.remote.LastN(rctx, deps.path, c.Limit)
		cancel()
		if err != nil {
			logger.Error("load history failed", "error", err, "limit", c.Limit)
			fail(err)
			return
		}
		if err := deps.store.Replace(recs); err != nil {
			logger.Error("replace local history failed", "error", err)
			fail(err)
			return
		}
		logger.Info("history loaded", "records", deps.store.Len())
		onEvent(HistoryLoaded{Count: deps.store.Len(), At: now})

	case CmdClearLogs:
		if c.Remote {
			if deps.remote == nil {
				fail(errNoRemote)
				return
			}
			rctx, cancel := context.WithTimeout(ctx, remoteEffectTimeout)
			err := deps.remote.Remove(rctx, deps.path)
			cancel()
			if err != nil {
				// Local records stay so the two sides do not diverge.
				logger.Error("remote clear failed", "error", err)
				fail(err)
				return
			}
		}
		if err := deps.store.Clear(); err != nil {
			logger.Error("local clear failed", "error", err)
			fail(err)
			return
		}
		onEvent(LogsCleared{At: now})

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		snap := c.Snapshot
		snap.Records = deps.store.Recent(deps.recent)
		snap.LogCount = deps.store.Len()

		// Never block the daemon loop.
		select {
		case c.Reply <- snap:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		fail(errUnknownCommand{cmd: cmd})
	}
}

var (
	errNoStore  = errors.New("no record store")
	errNoRemote = errors.New("cloud database not configured")
)

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
