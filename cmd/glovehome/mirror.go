package main

import (
	"context"
	"log/slog"
	"time"

	"glovehome/internal/sensorlog"
)

// recordPusher uploads one record and returns the cloud key.
type recordPusher interface {
	Push(ctx context.Context, path string, rec sensorlog.Record) (string, error)
}

// Mirror uploads locally ingested records to the cloud database from its
// own goroutine, so a slow network never stalls the daemon loop.
type Mirror struct {
	pusher recordPusher
	path   string
	queue  chan sensorlog.Record
	logger *slog.Logger
}

func NewMirror(p recordPusher, path string, size int, logger *slog.Logger) *Mirror {
	if size <= 0 {
		size = defaultMirrorQueue
	}
	return &Mirror{pusher: p, path: path, queue: make(chan sensorlog.Record, size), logger: logger}
}

// Enqueue never blocks. It reports false when the queue is full.
func (m *Mirror) Enqueue(rec sensorlog.Record) bool {
	select {
	case m.queue <- rec:
		return true
	default:
		return false
	}
}

// Run pushes queued records until ctx is canceled. Push already retries
// transient failures; a record that still fails is logged and dropped.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case rec := <-m.queue:
			pctx, cancel := context.WithTimeout(ctx, remoteEffectTimeout)
			start := time.Now()
			key, err := m.pusher.Push(pctx, m.path, rec)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				m.logger.Error("mirror push failed", "error", err, "id", rec.ID)
				continue
			}
			m.logger.Debug("record mirrored", "id", rec.ID, "key", key, "took", time.Since(start))
		}
	}
}
