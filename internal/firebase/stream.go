package firebase

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"glovehome/internal/sensorlog"
)

// EventKind classifies what a stream message meant for the watched node.
type EventKind int

const (
	// EventConnected is delivered once the stream is open.
	EventConnected EventKind = iota
	// EventSnapshot carries the whole node; empty Records means it was cleared.
	EventSnapshot
	// EventRecords carries children that were added or replaced.
	EventRecords
	// EventRemoved names a child that left the node (or the query window).
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventSnapshot:
		return "snapshot"
	case EventRecords:
		return "records"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is one decoded stream message.
type Event struct {
	Kind    EventKind
	Records []sensorlog.Record
	Key     string
}

var (
	// ErrStreamCanceled means the server revoked read access to the node.
	ErrStreamCanceled = errors.New("firebase stream canceled by server")
	// ErrAuthRevoked means the credential expired; reconnect with a new one.
	ErrAuthRevoked = errors.New("firebase stream auth revoked")
	// ErrStreamClosed means the server ended the stream.
	ErrStreamClosed = errors.New("firebase stream closed")
)

// Stream watches the newest limit children of path (all when limit <= 0)
// and calls fn for each change, starting with a snapshot. It blocks until ctx
// is done or the stream fails; it never returns nil.
func (c *Client) Stream(ctx context.Context, path string, limit int, fn func(Event)) error {
	q := url.Values{}
	if limit > 0 {
		q.Set("orderBy", `"$key"`)
		q.Set("limitToLast", strconv.Itoa(limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("open stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: http.MethodGet, Path: path, Code: resp.StatusCode, Body: string(body)}
	}
	fn(Event{Kind: EventConnected})

	err = readEvents(resp.Body, func(name string, data []byte) error {
		return handleEvent(name, data, fn)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// readEvents splits a text/event-stream body into (event, data) pairs.
func readEvents(r io.Reader, fn func(name string, data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var name string
	var data bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if name != "" || data.Len() > 0 {
				if err := fn(name, bytes.Clone(data.Bytes())); err != nil {
					return err
				}
			}
			name = ""
			data.Reset()
		case strings.HasPrefix(line, ":"):
			// comment
		default:
			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				name = value
			case "data":
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrStreamClosed
}

func handleEvent(name string, data []byte, fn func(Event)) error {
	switch name {
	case "keep-alive":
		return nil
	case "cancel":
		return ErrStreamCanceled
	case "auth_revoked":
		return ErrAuthRevoked
	case "put", "patch":
	default:
		return nil
	}

	var msg struct {
		Path string          `json:"path"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("decode %s event: %w", name, err)
	}

	key := strings.Trim(msg.Path, "/")
	switch {
	case key == "" && name == "put":
		recs, err := decodeChildren(msg.Data)
		if err != nil {
			return err
		}
		fn(Event{Kind: EventSnapshot, Records: recs})
	case key == "":
		recs, err := decodeChildren(msg.Data)
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			fn(Event{Kind: EventRecords, Records: recs})
		}
	case strings.Contains(key, "/") || name == "patch":
		// Field-level update of one child; records are written whole.
	case isNull(msg.Data):
		fn(Event{Kind: EventRemoved, Key: key})
	default:
		r, err := decodeChild(key, msg.Data)
		if err != nil {
			return err
		}
		fn(Event{Kind: EventRecords, Records: []sensorlog.Record{r}, Key: key})
	}
	return nil
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
