package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"glovehome/internal/gesture"
	"glovehome/internal/statefeed"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
//   - DaemonState stays daemon-owned; clients only see broadcasts and snapshots.
//   - The state_init snapshot on connect goes through the event loop.
//   - A client whose send buffer fills is disconnected.
//   - Frames are JSON text with the statefeed envelope {type, ts, data}.
//
// ============================================================================

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	// viewCoalesceWindow bounds how often bursty view updates (fast scrolling)
	// reach clients. Latest wins.
	viewCoalesceWindow = 50 * time.Millisecond
)

// outbound is a typed feed message before serialization.
type outbound struct {
	Type string
	Data any
	At   time.Time
}

func (o outbound) marshal() ([]byte, error) {
	ts := o.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	data, err := json.Marshal(o.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(statefeed.Envelope{Type: o.Type, Ts: &ts, Data: data})
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size (0 means 32).
	SendBuf int
	// BroadcastBuf is the hub inbound queue size (0 means 128).
	BroadcastBuf int
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	if cfg.SendBuf <= 0 {
		cfg.SendBuf = 32
	}
	if cfg.BroadcastBuf <= 0 {
		cfg.BroadcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, cfg.BroadcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    cfg.SendBuf,
	}
}

// Run processes hub events until ctx is canceled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*Client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	// Closing send stops writePump.
	safeCloseChan(c.send)
	h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // close of closed channel
	}()
	close(ch)
}

// BroadcastBytes enqueues a serialized frame. It never blocks; a full queue
// drops the frame.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	n := 32
	if hub != nil && hub.sendBuf > 0 {
		n = hub.sendBuf
	}
	return &Client{hub: hub, conn: conn, send: make(chan []byte, n), remoteAddr: remoteAddr, logger: logger}
}

func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

func (c *Client) logExit(pump string, err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	if code, text, ok := closeStatus(err); ok {
		c.logger.Info("ws "+pump+" exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
		return
	}
	c.logger.Info("ws "+pump+" exiting", "remote_addr", c.remoteAddr, "error", err)
}

// writePump drains the send queue and pings. It exits on write error or
// when the hub closes send.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logExit("writePump", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logExit("writePump", err)
				return
			}
		}
	}
}

// readPump discards inbound frames so control frames are processed, then
// unregisters the client on the first read error.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for ctx.Err() == nil {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.logExit("readPump", err)
			break
		}
	}
	if c.hub != nil {
		c.hub.unregister <- c
	}
}

// ============================================================================
// HTTP handler
// ============================================================================

type StateServer struct {
	logger *slog.Logger
	hub    *Hub
	events chan<- Event
}

// NewStateServer wires the feed. Start Hub().Run and RunBroadcaster separately.
func NewStateServer(logger *slog.Logger, events chan<- Event, cfg HubConfig) *StateServer {
	return &StateServer{logger: logger, hub: NewHub(logger, cfg), events: events}
}

func (s *StateServer) Hub() *Hub { return s.hub }

// Register mounts the feed handler on mux.
func (s *StateServer) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleStateWS)
}

var upgrader = websocket.Upgrader{
	// The dashboard is served from other origins during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleStateWS upgrades, registers the client and sends state_init.
func (s *StateServer) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)
	s.hub.register <- client

	// Pumps outlive the request; net/http cancels r.Context() when the
	// handler returns.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	snap, ok := requestSnapshot(r.Context(), s.events, snapshotWait)
	if !ok {
		s.logger.Warn("ws snapshot request failed", "remote_addr", r.RemoteAddr)
		return
	}
	msg, err := outbound{Type: statefeed.TypeStateInit, Data: snap}.marshal()
	if err != nil {
		s.logger.Warn("ws state_init marshal failed", "error", err)
		return
	}
	select {
	case client.send <- msg:
	default:
		s.hub.unregister <- client
	}
}

// requestSnapshot asks the daemon loop for a snapshot and waits at most wait.
func requestSnapshot(ctx context.Context, events chan<- Event, wait time.Duration) (statefeed.Snapshot, bool) {
	if events == nil {
		return statefeed.Snapshot{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	reply := make(chan statefeed.Snapshot, 1)
	select {
	case <-ctx.Done():
		return statefeed.Snapshot{}, false
	case events <- RequestStateSnapshot{Reply: reply}:
	}

	select {
	case <-ctx.Done():
		return statefeed.Snapshot{}, false
	case snap := <-reply:
		return snap, true
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// coalescer holds the latest pending view update and the timer that flushes
// it. The timer is not reset by new updates, so a steady stream still
// flushes once per window.
type coalescer struct {
	pending *outbound
	timer   *time.Timer
	window  time.Duration
}

func (c *coalescer) C() <-chan time.Time {
	if c.timer == nil {
		return nil
	}
	return c.timer.C
}

func (c *coalescer) put(o outbound) {
	c.pending = &o
	if c.timer == nil {
		c.timer = time.NewTimer(c.window)
	}
}

func (c *coalescer) take() (outbound, bool) {
	if c.pending == nil {
		return outbound{}, false
	}
	o := *c.pending
	c.pending = nil
	return o, true
}

func (c *coalescer) stop() {
	if c.timer == nil {
		return
	}
	if !c.timer.Stop() {
		select {
		case <-c.timer.C:
		default:
		}
	}
	c.timer = nil
}

// RunBroadcaster turns reducer broadcasts into feed frames. Run it as a
// single goroutine.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	send := func(o outbound) {
		msg, err := o.marshal()
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", o.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	views := &coalescer{window: viewCoalesceWindow}
	flushView := func() {
		if o, ok := views.take(); ok {
			send(o)
		}
	}

	for {
		select {
		case <-ctx.Done():
			flushView()
			views.stop()
			return

		case <-views.C():
			views.timer = nil
			flushView()

		case b, ok := <-src:
			if !ok {
				flushView()
				views.stop()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			o, ok := convertBroadcast(b)
			if !ok {
				continue
			}
			if o.Type == statefeed.TypeViewChanged {
				views.put(o)
				continue
			}

			// Anything else goes out now, after the view it may refer to.
			flushView()
			views.stop()
			send(o)
		}
	}
}

func convertBroadcast(b StateBroadcast) (outbound, bool) {
	switch ev := b.(type) {
	case BroadcastOutcome:
		return outbound{Type: statefeed.TypeGestureOutcome, Data: statefeed.OutcomeFrom(ev.Outcome), At: ev.At}, true
	case BroadcastView:
		return outbound{Type: statefeed.TypeViewChanged, Data: statefeed.ViewFrom(ev.View), At: ev.At}, true
	case BroadcastFlexChanged:
		return outbound{Type: statefeed.TypeFlexChanged, Data: statefeed.Flex{Bent: ev.Bent}, At: ev.At}, true
	case BroadcastPatternDetected:
		return outbound{Type: statefeed.TypePatternDetected, Data: struct{}{}, At: ev.At}, true
	case BroadcastRecord:
		return outbound{Type: statefeed.TypeSensorRecord, Data: ev.Record, At: ev.At}, true
	case BroadcastGestureChanged:
		return outbound{
			Type: statefeed.TypeGestureChanged,
			Data: statefeed.Gesture{Name: ev.Name, Description: gesture.Describe(ev.Name)},
			At:   ev.At,
		}, true
	case BroadcastConnectionChanged:
		return outbound{Type: statefeed.TypeConnectionChanged, Data: statefeed.Connection{Enabled: ev.Enabled, Connected: ev.Connected}, At: ev.At}, true
	case BroadcastLogCount:
		return outbound{Type: statefeed.TypeLogCount, Data: statefeed.LogCount{Count: ev.Count}, At: ev.At}, true
	case BroadcastLogsCleared:
		return outbound{Type: statefeed.TypeLogsCleared, Data: struct{}{}, At: ev.At}, true
	default:
		return outbound{}, false
	}
}
