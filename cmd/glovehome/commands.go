package main

import (
	"fmt"

	"glovehome/internal/sensorlog"
	"glovehome/internal/statefeed"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop:
// record store writes, cloud database calls and snapshot replies.
type Command interface {
	commandMarker()
	String() string
}

// CmdPersistRecord appends a record to the local store.
type CmdPersistRecord struct {
	Record sensorlog.Record
	Origin string
}

func (CmdPersistRecord) commandMarker() {}
func (c CmdPersistRecord) String() string {
	return fmt.Sprintf("CmdPersistRecord(id=%q, origin=%s)", c.Record.ID, c.Origin)
}

// CmdMirrorRecord queues a locally ingested record for upload.
type CmdMirrorRecord struct {
	Record sensorlog.Record
}

func (CmdMirrorRecord) commandMarker() {}
func (c CmdMirrorRecord) String() string {
	return fmt.Sprintf("CmdMirrorRecord(id=%q)", c.Record.ID)
}

// CmdLoadHistory replaces the local store with the newest Limit cloud records.
type CmdLoadHistory struct {
	Limit int
}

func (CmdLoadHistory) commandMarker() {}
func (c CmdLoadHistory) String() string { return fmt.Sprintf("CmdLoadHistory(limit=%d)", c.Limit) }

// CmdClearLogs empties the local store and, when Remote is set, the cloud node.
type CmdClearLogs struct {
	Remote bool
}

func (CmdClearLogs) commandMarker() {}
func (c CmdClearLogs) String() string { return fmt.Sprintf("CmdClearLogs(remote=%v)", c.Remote) }

// CmdPublishStateSnapshot delivers a reducer-built snapshot to a requester.
// The effect fills in the recent records from the store.
type CmdPublishStateSnapshot struct {
	Reply    chan<- statefeed.Snapshot
	Snapshot statefeed.Snapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }
