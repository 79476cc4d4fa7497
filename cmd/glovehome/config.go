package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"glovehome/internal/firebase"
	"glovehome/internal/sensorlog"
)

// Config is the top-level YAML configuration for the glovehome daemon.
//
// Defaults and validation live here so the rest of the code can assume a
// well-formed config. Flags only override individual values.
type Config struct {
	Home      HomeConfig      `yaml:"home"`
	Flex      FlexConfig      `yaml:"flex"`
	Keyboard  KeyboardConfig  `yaml:"keyboard"`
	IPC       IPCConfig       `yaml:"ipc"`
	HTTP      HTTPConfig      `yaml:"http"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	SensorLog SensorLogConfig `yaml:"sensorlog"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type HomeConfig struct {
	// LayoutFile is a YAML home layout; empty uses the built-in house.
	LayoutFile string `yaml:"layout_file"`
	// WatchLayout reloads the layout when the file changes.
	WatchLayout bool `yaml:"watch_layout"`
}

type FlexConfig struct {
	// WindowMS is the double-bend matching window.
	WindowMS int `yaml:"window_ms"`
}

type KeyboardConfig struct {
	Enabled bool     `yaml:"enabled"`
	Devices []string `yaml:"devices,omitempty"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	// Listen is the API and feed address; empty disables the server.
	Listen string `yaml:"listen"`
}

type FirebaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
	// AuthFile holds a database secret or ID token; empty means no auth.
	AuthFile     string `yaml:"auth_file"`
	Path         string `yaml:"path"`
	HistoryLimit int    `yaml:"history_limit"`
	StreamLimit  int    `yaml:"stream_limit"`
	// Mirror pushes records ingested over HTTP or IPC.
	Mirror bool `yaml:"mirror"`
}

type SensorLogConfig struct {
	// File persists records across restarts; empty keeps them in memory.
	File       string `yaml:"file"`
	MaxRecords int    `yaml:"max_records"`
	// Recent is how many records the state snapshot carries.
	Recent int `yaml:"recent"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Flex: FlexConfig{
			WindowMS: 2000,
		},
		Keyboard: KeyboardConfig{
			Devices: []string{"/dev/input/event0"},
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Listen: defaultHTTPListen,
		},
		Firebase: FirebaseConfig{
			Path:         firebase.DefaultPath,
			HistoryLimit: defaultHistoryLimit,
			StreamLimit:  defaultStreamLimit,
			Mirror:       true,
		},
		SensorLog: SensorLogConfig{
			MaxRecords: sensorlog.DefaultMaxRecords,
			Recent:     defaultRecentShown,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the
// defaults. Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides carries flag values to apply over the file config. A nil
// pointer means the flag was not set.
type FlagOverrides struct {
	LayoutFile  *string
	WatchLayout *bool

	FlexWindowMS *int

	KeyboardEnabled *bool
	KeyboardDevice  *string

	IPCSocketPath *string
	HTTPListen    *string

	FirebaseEnabled  *bool
	FirebaseURL      *string
	FirebaseAuthFile *string
	FirebaseMirror   *bool

	SensorLogFile *string

	LogLevel  *string
	LogFormat *string
}

// Apply merges the overrides into cfg. A non-nil pointer is applied even
// when it holds a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	setString(&cfg.Home.LayoutFile, o.LayoutFile)
	setBool(&cfg.Home.WatchLayout, o.WatchLayout)
	if o.FlexWindowMS != nil {
		cfg.Flex.WindowMS = *o.FlexWindowMS
	}
	setBool(&cfg.Keyboard.Enabled, o.KeyboardEnabled)
	if o.KeyboardDevice != nil {
		cfg.Keyboard.Devices = []string{*o.KeyboardDevice}
	}
	setString(&cfg.IPC.SocketPath, o.IPCSocketPath)
	setString(&cfg.HTTP.Listen, o.HTTPListen)
	setBool(&cfg.Firebase.Enabled, o.FirebaseEnabled)
	setString(&cfg.Firebase.DatabaseURL, o.FirebaseURL)
	setString(&cfg.Firebase.AuthFile, o.FirebaseAuthFile)
	setBool(&cfg.Firebase.Mirror, o.FirebaseMirror)
	setString(&cfg.SensorLog.File, o.SensorLogFile)
	setString(&cfg.Logging.Level, o.LogLevel)
	setString(&cfg.Logging.Format, o.LogFormat)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks config invariants after defaults, file and flags are
// applied.
func (c *Config) Validate() error {
	if c.Flex.WindowMS <= 0 {
		return errors.New("flex.window_ms must be > 0")
	}

	if c.Keyboard.Enabled {
		if len(c.Keyboard.Devices) == 0 {
			return errors.New("keyboard.enabled is true but keyboard.devices is empty")
		}
		for i, dev := range c.Keyboard.Devices {
			if dev == "" {
				return fmt.Errorf("keyboard.devices[%d] is empty", i)
			}
		}
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.Firebase.Enabled {
		if c.Firebase.DatabaseURL == "" {
			return errors.New("firebase.enabled is true but firebase.database_url is empty")
		}
		u, err := url.Parse(c.Firebase.DatabaseURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
			return fmt.Errorf("firebase.database_url %q is not an http(s) URL", c.Firebase.DatabaseURL)
		}
		if strings.Trim(c.Firebase.Path, "/") == "" {
			return errors.New("firebase.path must not be empty")
		}
		if c.Firebase.HistoryLimit <= 0 {
			return errors.New("firebase.history_limit must be > 0")
		}
		if c.Firebase.StreamLimit < 0 {
			return errors.New("firebase.stream_limit must be >= 0")
		}
	}

	if c.SensorLog.MaxRecords <= 0 {
		return errors.New("sensorlog.max_records must be > 0")
	}
	if c.SensorLog.Recent < 0 {
		return errors.New("sensorlog.recent must be >= 0")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be %q or %q", "text", "json")
	}

	return nil
}

// FlexWindow returns the double-bend window as a duration.
func (c *Config) FlexWindow() time.Duration {
	return time.Duration(c.Flex.WindowMS) * time.Millisecond
}

// ReadAuth returns the trimmed contents of firebase.auth_file, or "" when
// none is configured.
func (c *Config) ReadAuth() (string, error) {
	if c.Firebase.AuthFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(ExpandPath(c.Firebase.AuthFile))
	if err != nil {
		return "", fmt.Errorf("read firebase auth file: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
