// Package settings holds the CLI's runtime settings: which tracker, event sink
// and executor the engine is wired with. Values come from
// .flowspec/settings.yaml in the project, then FLOWSPEC_* environment
// variables, then command-line flags bound by the caller.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// File is the settings file, relative to the project root.
var File = filepath.Join(".flowspec", "settings.yaml")

// EnvPrefix prefixes every environment override, e.g. FLOWSPEC_TRACKER.
const EnvPrefix = "FLOWSPEC"

// Tracker backends.
const (
	TrackerMemory  = "memory"
	TrackerBacklog = "backlog"
	TrackerRedis   = "redis"
)

// Event sinks.
const (
	EventsNone  = "none"
	EventsFile  = "file"
	EventsRedis = "redis"
)

// Settings is the decoded runtime configuration.
type Settings struct {
	Tracker     string          `mapstructure:"tracker"`
	Events      string          `mapstructure:"events"`
	LogLevel    string          `mapstructure:"log_level"`
	StepTimeout time.Duration   `mapstructure:"step_timeout"`
	ToolsFile   string          `mapstructure:"tools_file"`
	Redis       RedisSettings   `mapstructure:"redis"`
	Backlog     BacklogSettings `mapstructure:"backlog"`
}

// RedisSettings configures the redis tracker and event stream.
type RedisSettings struct {
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

// BacklogSettings configures the Backlog.md CLI tracker.
type BacklogSettings struct {
	Binary string `mapstructure:"binary"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Tracker:     TrackerBacklog,
		Events:      EventsFile,
		LogLevel:    "info",
		StepTimeout: 0,
		ToolsFile:   filepath.Join(".flowspec", "tools.yaml"),
		Redis:       RedisSettings{Addr: "localhost:6379", Prefix: "flowspec:"},
		Backlog:     BacklogSettings{Binary: "backlog"},
	}
}

// New returns a viper instance with defaults and environment overrides
// registered, reading the settings file under root when it exists.
func New(root string) (*viper.Viper, error) {
	v := viper.New()
	d := Default()
	v.SetDefault("tracker", d.Tracker)
	v.SetDefault("events", d.Events)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("step_timeout", d.StepTimeout)
	v.SetDefault("tools_file", d.ToolsFile)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("redis.prefix", d.Redis.Prefix)
	v.SetDefault("backlog.binary", d.Backlog.Binary)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(filepath.Join(root, File))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
	}
	return v, nil
}

// Decode unmarshals v and checks the enumerated fields.
func Decode(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	s.Tracker = strings.ToLower(strings.TrimSpace(s.Tracker))
	s.Events = strings.ToLower(strings.TrimSpace(s.Events))

	switch s.Tracker {
	case TrackerMemory, TrackerBacklog, TrackerRedis:
	default:
		return Settings{}, fmt.Errorf("invalid settings: unknown tracker %q (expected memory, backlog or redis)", s.Tracker)
	}
	switch s.Events {
	case EventsNone, EventsFile, EventsRedis:
	default:
		return Settings{}, fmt.Errorf("invalid settings: unknown events sink %q (expected none, file or redis)", s.Events)
	}
	if s.StepTimeout < 0 {
		return Settings{}, fmt.Errorf("invalid settings: step_timeout must not be negative")
	}
	return s, nil
}

// Load reads and decodes the settings of the project at root.
func Load(root string) (Settings, error) {
	v, err := New(root)
	if err != nil {
		return Settings{}, err
	}
	return Decode(v)
}

// ResolvePath makes a settings path absolute against root.
func ResolvePath(root, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}
