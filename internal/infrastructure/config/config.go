package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/GriffinCanCode/AgentOS/updater/internal/logging"
	"github.com/GriffinCanCode/AgentOS/updater/internal/remote"
	"github.com/GriffinCanCode/AgentOS/updater/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/updater/internal/storage/kv"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all updater configuration.
type Config struct {
	Paths   PathsConfig
	Device  DeviceConfig
	Remote  RemoteConfig
	Store   StoreConfig
	Logging LogConfig
}

// PathsConfig holds the on-device directory layout.
type PathsConfig struct {
	HotRoot     string `envconfig:"UPDATER_HOT_ROOT" default:"./data/versions"`
	PersistRoot string `envconfig:"UPDATER_PERSIST_ROOT" default:"./data/NoCloud/ionic_built_snapshots"`
	TempRoot    string `envconfig:"UPDATER_TEMP_ROOT" default:"./data/tmp"`
	BuiltinPath string `envconfig:"UPDATER_BUILTIN_PATH" default:"./public"`
	EntryPoint  string `envconfig:"UPDATER_ENTRY_POINT" default:"index.html"`
}

// DeviceConfig holds the fingerprint sent to the update and stats servers.
type DeviceConfig struct {
	Platform     string `envconfig:"UPDATER_PLATFORM" default:"ios"`
	AppID        string `envconfig:"UPDATER_APP_ID"`
	DeviceID     string `envconfig:"UPDATER_DEVICE_ID"`
	VersionBuild string `envconfig:"UPDATER_VERSION_BUILD"`
	VersionCode  string `envconfig:"UPDATER_VERSION_CODE"`
	VersionOS    string `envconfig:"UPDATER_VERSION_OS"`
}

// RemoteConfig holds update and stats server settings.
type RemoteConfig struct {
	LatestURL string        `envconfig:"UPDATER_LATEST_URL"`
	StatsURL  string        `envconfig:"UPDATER_STATS_URL"`
	Timeout   time.Duration `envconfig:"UPDATER_HTTP_TIMEOUT" default:"30s"`
	StatsRPS  float64       `envconfig:"UPDATER_STATS_RPS" default:"0"`
}

// StoreConfig selects the durable key-value backend.
type StoreConfig struct {
	Backend  string `envconfig:"UPDATER_STORE" default:"file"`
	Path     string `envconfig:"UPDATER_STORE_PATH" default:"./data/updater.json"`
	RedisURL string `envconfig:"UPDATER_REDIS_URL" default:"redis://localhost:6379/0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Device = cfg.Device.withDefaults()
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			HotRoot:     "./data/versions",
			PersistRoot: "./data/NoCloud/ionic_built_snapshots",
			TempRoot:    "./data/tmp",
			BuiltinPath: "./public",
			EntryPoint:  paths.EntryPoint,
		},
		Device: DeviceConfig{Platform: "ios"}.withDefaults(),
		Remote: RemoteConfig{
			Timeout:  30 * time.Second,
			StatsRPS: 0,
		},
		Store: StoreConfig{
			Backend:  kv.BackendFile,
			Path:     "./data/updater.json",
			RedisURL: "redis://localhost:6379/0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
	}
}

func (d DeviceConfig) withDefaults() DeviceConfig {
	if d.DeviceID == "" {
		d.DeviceID = uuid.NewString()
	}
	if d.VersionOS == "" {
		d.VersionOS = runtime.GOOS
	}
	return d
}

// Layout returns the storage layout described by the paths section.
func (c *Config) Layout() paths.Layout {
	layout := paths.New(c.Paths.HotRoot, c.Paths.PersistRoot, c.Paths.TempRoot, c.Paths.BuiltinPath)
	if c.Paths.EntryPoint != "" {
		layout.EntryPoint = c.Paths.EntryPoint
	}
	return layout
}

// StoreOptions returns the key-value store options.
func (c *Config) StoreOptions() kv.Options {
	return kv.Options{
		Backend:  c.Store.Backend,
		Path:     c.Store.Path,
		RedisURL: c.Store.RedisURL,
		Prefix:   "updater",
	}
}

// RemoteDevice returns the fingerprint sent with every request.
func (c *Config) RemoteDevice() remote.Device {
	return remote.Device{
		Platform:     c.Device.Platform,
		DeviceID:     c.Device.DeviceID,
		AppID:        c.Device.AppID,
		VersionBuild: c.Device.VersionBuild,
		VersionCode:  c.Device.VersionCode,
		VersionOS:    c.Device.VersionOS,
	}
}

// Client returns the HTTP client settings.
func (c *Config) Client() remote.Config {
	cfg := remote.DefaultConfig()
	if c.Remote.Timeout > 0 {
		cfg.Timeout = c.Remote.Timeout
	}
	return cfg
}

// Reporter returns the stats reporter settings.
func (c *Config) Reporter() remote.ReporterConfig {
	return remote.ReporterConfig{
		Endpoint: c.Remote.StatsURL,
		Device:   c.RemoteDevice(),
		RPS:      c.Remote.StatsRPS,
	}
}

// Logger returns the logger settings.
func (c *Config) Logger() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.Logging.Level
	cfg.Development = c.Logging.Development
	return cfg
}
