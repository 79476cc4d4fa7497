package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"glovehome/internal/firebase"
)

// recordStreamer is the streaming half of the cloud client.
type recordStreamer interface {
	Stream(ctx context.Context, path string, limit int, fn func(firebase.Event)) error
}

// runFirebaseFeed keeps a stream open on path and forwards changes to the
// daemon. It reconnects with exponential backoff, reset after every
// successful connect, until ctx is canceled.
func runFirebaseFeed(ctx context.Context, s recordStreamer, path string, limit int, out chan<- Event, logger *slog.Logger) error {
	send := func(ev Event) {
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	backoff := firebaseBackoffMin
	for {
		connected := false
		err := s.Stream(ctx, path, limit, func(ev firebase.Event) {
			switch ev.Kind {
			case firebase.EventConnected:
				connected = true
				backoff = firebaseBackoffMin
				logger.Info("firebase stream connected", "path", path)
				send(FirebaseConnectionChanged{Connected: true})

			case firebase.EventSnapshot:
				// A cleared or empty node never wipes local history.
				if len(ev.Records) == 0 {
					logger.Debug("firebase snapshot empty")
					return
				}
				send(FirebaseRecords{Records: ev.Records, Initial: true})

			case firebase.EventRecords:
				send(FirebaseRecords{Records: ev.Records})

			case firebase.EventRemoved:
				logger.Debug("firebase record removed", "key", ev.Key)
			}
		})

		if ctx.Err() != nil {
			return nil
		}
		if connected {
			send(FirebaseConnectionChanged{Connected: false})
		}

		switch {
		case errors.Is(err, firebase.ErrAuthRevoked):
			logger.Warn("firebase auth revoked; reconnecting", "error", err)
		default:
			logger.Warn("firebase stream ended", "error", err, "retry_in", backoff)
		}

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
		backoff *= 2
		if backoff > firebaseBackoffMax {
			backoff = firebaseBackoffMax
		}
	}
}
