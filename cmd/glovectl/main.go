package main

import (
	"fmt"
	"os"

	"glovehome/internal/ipc"
)

// ============================================================================
// glovectl - command-line IPC client
// ============================================================================
// Sends one control message to the glovehome daemon and prints "ok".
//
// Usage:
//   glovectl gesture "Pitch UP"
//   glovectl gesture "Yaw LEFT" --bent
//   glovectl flex bent
//   glovectl double-bend
//   glovectl record - < sample.json
//   glovectl undo
//   glovectl set /Home/Kitchen/Light 50%
//   glovectl adjust /Home/Bedroom/AC up
//   glovectl clear-logs
//   glovectl key 6
//
// Options:
//   --socket PATH   Unix domain socket path (default: /tmp/glovehome.sock)
// ============================================================================

var version = "1.0.0"

func main() {
	root := newRootCmd(ipc.Send, os.Stdin)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
