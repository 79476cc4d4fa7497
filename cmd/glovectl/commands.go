package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"glovehome/internal/ipc"
	"glovehome/internal/sensorlog"
)

// sender delivers one message to the daemon socket.
type sender func(socketPath string, m ipc.Message) error

// newRootCmd builds the command tree. send and stdin are injected so tests
// never touch a socket.
func newRootCmd(send sender, stdin io.Reader) *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:           "glovectl",
		Short:         "Control the glovehome daemon over its IPC socket",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", ipc.DefaultSocketPath, "daemon IPC socket path")

	// deliver wraps a message builder into a RunE.
	deliver := func(build func(args []string) (ipc.Message, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := build(args)
			if err != nil {
				return err
			}
			if err := send(socketPath, m); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}
	}

	root.AddCommand(
		newGestureCmd(deliver),
		&cobra.Command{
			Use:       "flex bent|straight",
			Short:     "Report one flex sensor reading",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{"bent", "straight"},
			RunE: deliver(func(args []string) (ipc.Message, error) {
				bent, err := parseFlex(args[0])
				if err != nil {
					return nil, err
				}
				return ipc.FlexState{Bent: bent}, nil
			}),
		},
		&cobra.Command{
			Use:   "double-bend",
			Short: "Inject a double-bend pattern (descends into the selection)",
			Args:  cobra.NoArgs,
			RunE:  deliver(func([]string) (ipc.Message, error) { return ipc.DoubleBend{}, nil }),
		},
		&cobra.Command{
			Use:   "record FILE|-",
			Short: "Ingest a JSON sensor record as the glove sends it",
			Args:  cobra.ExactArgs(1),
			RunE: deliver(func(args []string) (ipc.Message, error) {
				return readRecord(args[0], stdin)
			}),
		},
		&cobra.Command{
			Use:   "undo",
			Short: "Revert the last device change",
			Args:  cobra.NoArgs,
			RunE:  deliver(func([]string) (ipc.Message, error) { return ipc.Undo{}, nil }),
		},
		&cobra.Command{
			Use:     "set PATH VALUE",
			Short:   `Force a device to a value ("OFF", "ON", "50%", "24°C")`,
			Example: "  glovectl set /Home/Kitchen/Light 50%",
			Args:    cobra.ExactArgs(2),
			RunE: deliver(func(args []string) (ipc.Message, error) {
				return ipc.SetDevice{Path: args[0], Value: args[1]}, nil
			}),
		},
		&cobra.Command{
			Use:       "adjust PATH up|down",
			Short:     "Step a dimmer or thermostat",
			Args:      cobra.ExactArgs(2),
			ValidArgs: []string{"up", "down"},
			RunE: deliver(func(args []string) (ipc.Message, error) {
				return ipc.AdjustDevice{Path: args[0], Direction: args[1]}, nil
			}),
		},
		&cobra.Command{
			Use:   "clear-logs",
			Short: "Delete every stored sensor record",
			Args:  cobra.NoArgs,
			RunE:  deliver(func([]string) (ipc.Message, error) { return ipc.ClearLogs{}, nil }),
		},
		&cobra.Command{
			Use:   "key 1-8",
			Short: "Replay a test-harness shortcut key",
			Long: `Replay a numbered test-harness key:
  1 Pitch UP     2 Pitch DOWN    3 double bend     4 index button
  5 middle button  6 undo (Yaw while bent)  7 Palm Right  8 Palm Left`,
			Args: cobra.ExactArgs(1),
			RunE: deliver(func(args []string) (ipc.Message, error) {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 || n > 8 {
					return nil, fmt.Errorf("key must be 1-8, got %q", args[0])
				}
				return ipc.KeyShortcut{Key: n}, nil
			}),
		},
	)
	return root
}

func newGestureCmd(deliver func(func([]string) (ipc.Message, error)) func(*cobra.Command, []string) error) *cobra.Command {
	var bent, straight bool
	cmd := &cobra.Command{
		Use:   "gesture NAME",
		Short: "Send a named gesture (e.g. \"Pitch UP\", \"Palm Left\")",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&bent, "bent", false, "report the flex sensor as bent first")
	cmd.Flags().BoolVar(&straight, "straight", false, "report the flex sensor as straight first")
	cmd.MarkFlagsMutuallyExclusive("bent", "straight")
	cmd.RunE = deliver(func(args []string) (ipc.Message, error) {
		g := ipc.Gesture{Name: args[0]}
		switch {
		case bent:
			g.FlexBent = &bent
		case straight:
			f := false
			g.FlexBent = &f
		}
		return g, nil
	})
	return cmd
}

func parseFlex(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "bent", "1", "true":
		return true, nil
	case "straight", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("flex must be bent or straight, got %q", s)
	}
}

// readRecord loads a record from path, or from stdin when path is "-".
func readRecord(path string, stdin io.Reader) (ipc.Message, error) {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}
	rec, err := sensorlog.Decode(b)
	if err != nil {
		return nil, err
	}
	return ipc.SensorRecord{Record: rec}, nil
}
