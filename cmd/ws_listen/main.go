package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"glovehome/internal/statefeed"
)

// ws_listen prints the glovehome state feed, one line per frame.
func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:8080/ws/state", "glovehome state feed URL")
		types = flag.String("types", "", "comma-separated frame types to show (default: all)")
		raw   = flag.Bool("raw", false, "print frames as indented JSON")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("connecting to %s...", *wsURL)
	conn, err := statefeed.Dial(ctx, *wsURL)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	log.Printf("connected! (press Ctrl+C to exit)")

	go func() {
		<-ctx.Done()
		log.Printf("shutting down...")
		_ = conn.Close()
	}()

	show := typeFilter(*types)
	for {
		env, err := conn.Next()
		if err != nil {
			if ctx.Err() == nil && !statefeed.IsNormalClose(err) {
				log.Printf("websocket error: %v", err)
			}
			log.Printf("connection closed")
			return
		}
		if !show(env.Type) {
			continue
		}
		if *raw {
			printRaw(os.Stdout, env)
			continue
		}
		fmt.Println(formatFrame(env))
	}
}

func typeFilter(list string) func(string) bool {
	if strings.TrimSpace(list) == "" {
		return func(string) bool { return true }
	}
	want := map[string]bool{}
	for _, t := range strings.Split(list, ",") {
		want[strings.TrimSpace(t)] = true
	}
	return func(t string) bool { return want[t] }
}

func printRaw(w io.Writer, env statefeed.Envelope) {
	b, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "[%s] %s\n", env.Type, env.Data)
		return
	}
	fmt.Fprintf(w, "%s\n", b)
}

// formatFrame renders the interesting part of a frame on one line.
func formatFrame(env statefeed.Envelope) string {
	tag := "[" + strings.ToUpper(env.Type) + "]"
	switch env.Type {
	case statefeed.TypeStateInit:
		var s statefeed.Snapshot
		if env.Decode(&s) == nil {
			return fmt.Sprintf("%s %s (%d entries) status=%q flex=%s logs=%d",
				tag, s.View.Path, len(s.View.Entries), s.Status, flexLabel(s.Flex.Bent), s.LogCount)
		}
	case statefeed.TypeViewChanged:
		var v statefeed.View
		if env.Decode(&v) == nil {
			return fmt.Sprintf("%s %s selected=%s", tag, v.Path, orDash(v.Selected))
		}
	case statefeed.TypeGestureOutcome:
		var o statefeed.Outcome
		if env.Decode(&o) == nil {
			line := fmt.Sprintf("%s %s: %s", tag, o.Kind, o.Status)
			if o.Device != nil {
				line += fmt.Sprintf(" (%s = %s)", o.Device.Path, o.Device.Value)
			}
			return line
		}
	case statefeed.TypeFlexChanged:
		var f statefeed.Flex
		if env.Decode(&f) == nil {
			return tag + " " + flexLabel(f.Bent)
		}
	case statefeed.TypeGestureChanged:
		var g statefeed.Gesture
		if env.Decode(&g) == nil {
			return fmt.Sprintf("%s %s %s", tag, g.Name, g.Description)
		}
	case statefeed.TypeConnectionChanged:
		var c statefeed.Connection
		if env.Decode(&c) == nil {
			state := "offline"
			if c.Connected {
				state = "online"
			}
			return tag + " " + state
		}
	case statefeed.TypeLogCount:
		var c statefeed.LogCount
		if env.Decode(&c) == nil {
			return fmt.Sprintf("%s %d", tag, c.Count)
		}
	case statefeed.TypePatternDetected, statefeed.TypeLogsCleared:
		return tag
	}
	return fmt.Sprintf("%s %s", tag, env.Data)
}

func flexLabel(bent bool) string {
	if bent {
		return "BENT"
	}
	return "STRAIGHT"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
