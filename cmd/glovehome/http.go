package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"glovehome/internal/ipc"
	"glovehome/internal/sensorlog"
)

// ============================================================================
// HTTP API
// ============================================================================
// Endpoints (JSON):
//   POST   /api/records   ingest one sensor record as the glove sends it
//   GET    /api/records   newest records first (?limit=N)
//   DELETE /api/records   clear the log (and the cloud node when enabled)
//   POST   /api/gestures  {"name": "...", "flex_bent": true}
//   POST   /api/events    any control envelope, same as the IPC socket
//   GET    /api/state     daemon snapshot
//   GET    /healthz
//   GET    /ws/state      state feed
// Writes are queued on the daemon loop and answered with 202 Accepted.
// ============================================================================

const maxRequestBody = 1 << 20

type apiServer struct {
	events chan<- Event
	store  *sensorlog.Store
	logger *slog.Logger
}

// routes builds the mux for the API and the state feed.
func (a *apiServer) routes(feed *StateServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/records", a.postRecord)
	mux.HandleFunc("GET /api/records", a.getRecords)
	mux.HandleFunc("DELETE /api/records", a.deleteRecords)
	mux.HandleFunc("POST /api/gestures", a.postGesture)
	mux.HandleFunc("POST /api/events", a.postEvent)
	mux.HandleFunc("GET /api/state", a.getState)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if feed != nil {
		feed.Register(mux, "/ws/state")
	}
	return mux
}

func (a *apiServer) postRecord(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	rec, err := sensorlog.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.enqueue(w, RecordIngested{Record: rec, Origin: originHTTP})
}

func (a *apiServer) getRecords(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecordsPage
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = min(n, sensorlog.DefaultMaxRecords)
	}
	recs := a.store.Recent(limit)
	if recs == nil {
		recs = []sensorlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *apiServer) deleteRecords(w http.ResponseWriter, r *http.Request) {
	a.enqueue(w, ClearLogsRequested{})
}

func (a *apiServer) postGesture(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var g ipc.Gesture
	if err := json.Unmarshal(body, &g); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode gesture: %w", err))
		return
	}
	a.enqueue(w, GestureReceived{Name: g.Name, FlexBent: g.FlexBent})
}

func (a *apiServer) postEvent(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	m, err := ipc.Unmarshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := eventFromMessage(m, originHTTP)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.enqueue(w, ev)
}

func (a *apiServer) getState(w http.ResponseWriter, r *http.Request) {
	snap, ok := requestSnapshot(r.Context(), a.events, snapshotWait)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("daemon did not answer"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// enqueue hands ev to the daemon loop without blocking the handler.
func (a *apiServer) enqueue(w http.ResponseWriter, ev Event) {
	select {
	case a.events <- ev:
		writeJSON(w, http.StatusAccepted, ipc.Response{Status: "ok"})
	default:
		a.logger.Warn("event queue full; rejecting request", "event", fmt.Sprintf("%T", ev))
		writeError(w, http.StatusServiceUnavailable, errors.New("daemon busy"))
	}
}

func readBody(r *http.Request) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(b) > maxRequestBody {
		return nil, errors.New("request body too large")
	}
	return b, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, ipc.Response{Status: "error", Error: err.Error()})
}

// runHTTPServer serves handler on addr and shuts it down gracefully when
// ctx is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("http server listening", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}
