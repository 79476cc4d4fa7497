package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// inputEvent mirrors the kernel's struct input_event on 64-bit Linux:
// struct timeval time; __u16 type; __u16 code; __s32 value.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw event.
func decodeInputEvent(b []byte) (inputEvent, error) {
	if len(b) < inputEventSize {
		return inputEvent{}, fmt.Errorf("short input event: %d bytes", len(b))
	}
	return inputEvent{
		Sec:   int64(binary.LittleEndian.Uint64(b[0:8])),
		Usec:  int64(binary.LittleEndian.Uint64(b[8:16])),
		Type:  binary.LittleEndian.Uint16(b[16:18]),
		Code:  binary.LittleEndian.Uint16(b[18:20]),
		Value: int32(binary.LittleEndian.Uint32(b[20:24])),
	}, nil
}

// runKeyboard reads harness shortcut keys from evdev devices and turns them
// into KeyPressed events. It returns nil when ctx is canceled.
func runKeyboard(ctx context.Context, devices []string, out chan<- Event, logger *slog.Logger) error {
	if len(devices) == 0 {
		return errors.New("keyboard: no input devices configured")
	}

	files := make([]*os.File, 0, len(devices))
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	for _, path := range devices {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open input device: %w", err)
		}
		files = append(files, f)
		logger.Info("keyboard device opened", "device", path)
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEvents(ctx, files, raw, readErr)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("keyboard: %w", err)
		case ev := <-raw:
			key, ok := shortcutKey(ev)
			if !ok {
				continue
			}
			logger.Debug("shortcut key", "key", key, "code", ev.Code)
			select {
			case out <- KeyPressed{Key: key}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
