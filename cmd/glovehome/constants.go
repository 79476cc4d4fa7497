package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_1 = 2
	KEY_2 = 3
	KEY_3 = 4
	KEY_4 = 5
	KEY_5 = 6
	KEY_6 = 7
	KEY_7 = 8
	KEY_8 = 9

	KEY_KP1 = 79
	KEY_KP2 = 80
	KEY_KP3 = 81
	KEY_KP4 = 75
	KEY_KP5 = 76
	KEY_KP6 = 77
	KEY_KP7 = 71
	KEY_KP8 = 72
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

const (
	defaultSocketPath   = "/tmp/glovehome.sock"
	defaultHTTPListen   = ":8080"
	defaultHistoryLimit = 10000
	defaultStreamLimit  = 20
	defaultRecentShown  = 5
	defaultRecordsPage  = 100
	defaultMirrorQueue  = 256

	eventQueueSize     = 128
	broadcastQueueSize = 256

	// How long HTTP handlers wait for the daemon loop to answer.
	snapshotWait = time.Second

	// Remote effects (history load, remote clear) run inside the daemon loop.
	remoteEffectTimeout = 15 * time.Second

	firebaseBackoffMin = time.Second
	firebaseBackoffMax = 30 * time.Second

	layoutReloadDebounce = 200 * time.Millisecond
)

// Record origins.
const (
	originHTTP    = "http"
	originIPC     = "ipc"
	originCloud   = "cloud"   // live child from the database stream
	originHistory = "history" // initial snapshot of the stream; logged, never dispatched
)
