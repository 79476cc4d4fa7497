package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"glovehome/internal/firebase"
	"glovehome/internal/gesture"
	"glovehome/internal/hometree"
	"glovehome/internal/sensorlog"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("glovehome v%s\n", version)
	fmt.Println("Smart-glove gesture engine for a home device tree")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  glovehome [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Interprets glove gestures and flex readings as navigation and device")
	fmt.Println("  actions on a home tree. Inputs arrive over the IPC socket, the HTTP API,")
	fmt.Println("  the Firebase stream or harness keys 1-8; state is published on /ws/state.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        YAML config file (flags override file values)")
	fmt.Println("  -layout string")
	fmt.Println("        YAML home layout (default: built-in house)")
	fmt.Println("  -watch-layout")
	fmt.Println("        Reload the layout when the file changes")
	fmt.Println("  -flex-window-ms int")
	fmt.Println("        Double-bend matching window in ms (default 2000)")
	fmt.Println("  -keyboard")
	fmt.Println("        Read harness keys 1-8 from an input device")
	fmt.Println("  -keyboard-device string")
	fmt.Println("        Linux input device for harness keys (default \"/dev/input/event0\")")
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC (default %q)\n", defaultSocketPath)
	fmt.Println("  -http-listen string")
	fmt.Printf("        HTTP API and state feed address, empty disables (default %q)\n", defaultHTTPListen)
	fmt.Println("  -firebase")
	fmt.Println("        Enable the Firebase Realtime Database link")
	fmt.Println("  -firebase-url string")
	fmt.Println("        Database URL, e.g. https://project-default-rtdb.firebaseio.com")
	fmt.Println("  -firebase-auth-file string")
	fmt.Println("        File holding the database secret or ID token")
	fmt.Println("  -firebase-mirror")
	fmt.Println("        Push records ingested over HTTP/IPC (default true)")
	fmt.Println("  -sensorlog-file string")
	fmt.Println("        Persist sensor records to this file")
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: text, json (default \"text\")")
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  glovehome -config /etc/glovehome.yaml")
	fmt.Println("  glovehome -layout ~/house.yaml -watch-layout -keyboard -keyboard-device /dev/input/event3")
	fmt.Println("  glovehome -firebase -firebase-url https://glove-default-rtdb.firebaseio.com")
	fmt.Println()
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	logger := setupLogger(os.Stdout, level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("glovehome stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("shut down")
}

// loadConfig builds the effective config: defaults, then the -config file,
// then explicitly set flags. It returns flag.ErrHelp after printing help or
// the version.
func loadConfig(args []string) (Config, error) {
	fs := flag.NewFlagSet("glovehome", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = printUsage

	var (
		configPath  = fs.String("config", "", "")
		showVersion = fs.Bool("version", false, "")
		showHelp    = fs.Bool("help", false, "")

		layout       = fs.String("layout", "", "")
		watchLayout  = fs.Bool("watch-layout", false, "")
		flexWindow   = fs.Int("flex-window-ms", 0, "")
		keyboard     = fs.Bool("keyboard", false, "")
		keyboardDev  = fs.String("keyboard-device", "", "")
		ipcSocket    = fs.String("ipc-socket", "", "")
		httpListen   = fs.String("http-listen", "", "")
		fbEnabled    = fs.Bool("firebase", false, "")
		fbURL        = fs.String("firebase-url", "", "")
		fbAuthFile   = fs.String("firebase-auth-file", "", "")
		fbMirror     = fs.Bool("firebase-mirror", true, "")
		sensorFile   = fs.String("sensorlog-file", "", "")
		logLevelStr  = fs.String("log-level", "", "")
		logFormatStr = fs.String("log-format", "", "")
	)

	// Parse calls fs.Usage itself on -h and on bad flags.
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if *showHelp {
		printUsage()
		return Config{}, flag.ErrHelp
	}
	if *showVersion {
		printVersion()
		return Config{}, flag.ErrHelp
	}

	cfg := DefaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = LoadConfigFile(*configPath); err != nil {
			return Config{}, err
		}
	}

	// Only flags given on the command line override the file.
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	var o FlagOverrides
	if set["layout"] {
		o.LayoutFile = layout
	}
	if set["watch-layout"] {
		o.WatchLayout = watchLayout
	}
	if set["flex-window-ms"] {
		o.FlexWindowMS = flexWindow
	}
	if set["keyboard"] {
		o.KeyboardEnabled = keyboard
	}
	if set["keyboard-device"] {
		o.KeyboardDevice = keyboardDev
	}
	if set["ipc-socket"] {
		o.IPCSocketPath = ipcSocket
	}
	if set["http-listen"] {
		o.HTTPListen = httpListen
	}
	if set["firebase"] {
		o.FirebaseEnabled = fbEnabled
	}
	if set["firebase-url"] {
		o.FirebaseURL = fbURL
	}
	if set["firebase-auth-file"] {
		o.FirebaseAuthFile = fbAuthFile
	}
	if set["firebase-mirror"] {
		o.FirebaseMirror = fbMirror
	}
	if set["sensorlog-file"] {
		o.SensorLogFile = sensorFile
	}
	if set["log-level"] {
		o.LogLevel = logLevelStr
	}
	if set["log-format"] {
		o.LogFormat = logFormatStr
	}
	o.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// run wires every component and blocks until ctx is canceled or one of
// them fails.
func run(ctx context.Context, cfg Config, logger *slog.Logger) error {
	tree := hometree.DefaultTree()
	if cfg.Home.LayoutFile != "" {
		var err error
		if tree, err = hometree.LoadLayout(ExpandPath(cfg.Home.LayoutFile)); err != nil {
			return err
		}
		logger.Info("layout loaded", "file", cfg.Home.LayoutFile, "entries", tree.Len())
	}
	session := gesture.NewSession(tree, gesture.Options{FlexWindow: cfg.FlexWindow()})

	var store *sensorlog.Store
	if cfg.SensorLog.File != "" {
		var err error
		if store, err = sensorlog.Open(ExpandPath(cfg.SensorLog.File), cfg.SensorLog.MaxRecords); err != nil {
			return fmt.Errorf("open sensor log: %w", err)
		}
		logger.Info("sensor log opened", "file", cfg.SensorLog.File, "records", store.Len())
	} else {
		store = sensorlog.NewStore(cfg.SensorLog.MaxRecords)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close sensor log", "error", err)
		}
	}()

	events := make(chan Event, eventQueueSize)
	broadcasts := make(chan StateBroadcast, broadcastQueueSize)

	deps := effectDeps{store: store, path: cfg.Firebase.Path, recent: cfg.SensorLog.Recent}
	fbState := FirebaseState{Enabled: cfg.Firebase.Enabled, Mirror: cfg.Firebase.Mirror}

	g, ctx := errgroup.WithContext(ctx)

	var fb *firebase.Client
	if cfg.Firebase.Enabled {
		auth, err := cfg.ReadAuth()
		if err != nil {
			return err
		}
		if fb, err = firebase.NewClient(cfg.Firebase.DatabaseURL, auth, firebase.Options{}); err != nil {
			return err
		}
		deps.remote = fb
		if cfg.Firebase.Mirror {
			m := NewMirror(fb, cfg.Firebase.Path, defaultMirrorQueue, logger.With("component", "mirror"))
			deps.mirror = m
			g.Go(func() error { return m.Run(ctx) })
		}
		g.Go(func() error {
			return runFirebaseFeed(ctx, fb, cfg.Firebase.Path, cfg.Firebase.StreamLimit, events, logger.With("component", "firebase"))
		})
	}

	state := NewDaemonState(session, fbState, store.Len())
	rcfg := ReducerConfig{HistoryLimit: cfg.Firebase.HistoryLimit}

	g.Go(func() error {
		runDaemon(ctx, events, deps, state, rcfg, broadcasts, logger.With("component", "daemon"))
		return nil
	})

	g.Go(func() error {
		return runIPCServer(ctx, ExpandPath(cfg.IPC.SocketPath), events, logger.With("component", "ipc"))
	})

	if cfg.HTTP.Listen != "" {
		wsLogger := logger.With("component", "ws")
		feed := NewStateServer(wsLogger, events, HubConfig{})
		g.Go(func() error { feed.Hub().Run(ctx); return nil })
		g.Go(func() error { RunBroadcaster(ctx, feed.Hub(), broadcasts, wsLogger); return nil })

		api := &apiServer{events: events, store: store, logger: logger.With("component", "http")}
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.HTTP.Listen, api.routes(feed), logger.With("component", "http"))
		})
	} else {
		// Nobody publishes; drain so the daemon never logs drops.
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-broadcasts:
				}
			}
		})
	}

	if cfg.Keyboard.Enabled {
		g.Go(func() error {
			return runKeyboard(ctx, cfg.Keyboard.Devices, events, logger.With("component", "keyboard"))
		})
	}

	if cfg.Home.WatchLayout && cfg.Home.LayoutFile != "" {
		g.Go(func() error {
			return watchLayout(ctx, ExpandPath(cfg.Home.LayoutFile), events, logger.With("component", "layout"))
		})
	}

	logger.Info("listening",
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Listen,
		"firebase", cfg.Firebase.Enabled,
		"keyboard", cfg.Keyboard.Enabled,
		"flex_window", cfg.FlexWindow())

	return g.Wait()
}
