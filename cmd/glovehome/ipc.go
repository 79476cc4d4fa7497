package main

import (
	"context"
	"fmt"
	"log/slog"

	"glovehome/internal/hometree"
	"glovehome/internal/ipc"
)

// eventFromMessage maps a control message onto the daemon event it stands
// for. origin tags ingested sensor records.
func eventFromMessage(m ipc.Message, origin string) (Event, error) {
	switch msg := m.(type) {
	case ipc.Gesture:
		return GestureReceived{Name: msg.Name, FlexBent: msg.FlexBent}, nil
	case ipc.FlexState:
		return FlexReading{Bent: msg.Bent}, nil
	case ipc.DoubleBend:
		return DoubleBendInjected{}, nil
	case ipc.SensorRecord:
		return RecordIngested{Record: msg.Record, Origin: origin}, nil
	case ipc.Undo:
		return UndoRequested{}, nil
	case ipc.SetDevice:
		if msg.Path == "" {
			return nil, fmt.Errorf("set_device: path is required")
		}
		return SetDeviceRequested{Path: msg.Path, Value: msg.Value}, nil
	case ipc.AdjustDevice:
		dir, err := hometree.ParseDirection(msg.Direction)
		if err != nil {
			return nil, fmt.Errorf("adjust_device: %w", err)
		}
		return AdjustDeviceRequested{Path: msg.Path, Direction: dir}, nil
	case ipc.ClearLogs:
		return ClearLogsRequested{}, nil
	case ipc.KeyShortcut:
		if _, ok := shortcuts[msg.Key]; !ok {
			return nil, fmt.Errorf("key_shortcut: no shortcut for key %d", msg.Key)
		}
		return KeyPressed{Key: msg.Key}, nil
	default:
		return nil, fmt.Errorf("unsupported message %T", m)
	}
}

// runIPCServer serves the control socket until ctx is canceled. Each message
// becomes one event on the daemon queue.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	return ipc.Serve(ctx, socketPath, func(m ipc.Message) error {
		ev, err := eventFromMessage(m, originIPC)
		if err != nil {
			return err
		}
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, logger)
}
