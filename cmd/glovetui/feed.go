package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"glovehome/internal/statefeed"
)

const (
	reconnectMin = 500 * time.Millisecond
	reconnectMax = 10 * time.Second
)

// frameMsg is one feed frame.
type frameMsg statefeed.Envelope

// linkMsg reports the feed connection itself, not the cloud link.
type linkMsg struct {
	up  bool
	err error
}

// followFeed streams frames into the program and reconnects with backoff
// until ctx is canceled. Every (re)connect starts with a state_init frame.
func followFeed(ctx context.Context, url string, send func(tea.Msg)) {
	backoff := reconnectMin
	for ctx.Err() == nil {
		conn, err := statefeed.Dial(ctx, url)
		if err != nil {
			send(linkMsg{err: err})
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectMin
		send(linkMsg{up: true})

		stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
		for {
			env, err := conn.Next()
			if err != nil {
				if ctx.Err() == nil {
					send(linkMsg{err: err})
				}
				break
			}
			send(frameMsg(env))
		}
		stop()
		_ = conn.Close()
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
