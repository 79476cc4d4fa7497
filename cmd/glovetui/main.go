package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"glovehome/internal/ipc"
)

// glovetui is a terminal dashboard for the glovehome daemon: the device
// browser, flex indicator, current gesture, cloud link and latest records.
// Keys 1-8 replay the test-harness shortcuts over IPC.
func main() {
	var (
		wsURL  = flag.String("ws", "ws://127.0.0.1:8080/ws/state", "glovehome state feed URL")
		socket = flag.String("socket", ipc.DefaultSocketPath, "daemon IPC socket path")
	)
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newModel(func(msg ipc.Message) error { return ipc.Send(*socket, msg) })
	p := tea.NewProgram(m, tea.WithAltScreen())
	go followFeed(ctx, *wsURL, p.Send)

	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
