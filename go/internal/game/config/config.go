// Package config loads settings for the session client from a YAML file,
// with environment variables taking precedence over file values. Variables
// are named in the env tags; unset variables leave the file value alone.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/doodleduel/go/internal/game/controller"
	"github.com/mcdev12/doodleduel/go/internal/game/syncmgr"
	"github.com/mcdev12/doodleduel/go/internal/game/timer"
)

// Feed selects the realtime source.
type Feed string

const (
	FeedNATS      Feed = "nats"
	FeedPostgres  Feed = "postgres"
	FeedWebSocket Feed = "websocket"
	FeedNone      Feed = "none"
)

// SnapshotSource selects where full snapshots are read from.
type SnapshotSource string

const (
	SnapshotFromService  SnapshotSource = "service"
	SnapshotFromDatabase SnapshotSource = "database"
)

type Config struct {
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Session struct {
		ID          string `yaml:"id" env:"SESSION_ID"`
		UserID      string `yaml:"user_id" env:"SESSION_USER_ID"`
		DisplayName string `yaml:"display_name" env:"SESSION_DISPLAY_NAME"`
		AutoJoin    bool   `yaml:"auto_join" env:"SESSION_AUTO_JOIN"`
	} `yaml:"session"`

	Service struct {
		BaseURL string         `yaml:"base_url" env:"SESSION_SERVICE_URL"`
		Timeout time.Duration  `yaml:"timeout" env:"SESSION_SERVICE_TIMEOUT"`
		Source  SnapshotSource `yaml:"snapshot_source" env:"SNAPSHOT_SOURCE"`
	} `yaml:"service"`

	Sync struct {
		Strategy       syncmgr.Strategy `yaml:"strategy" env:"SYNC_STRATEGY"`
		AutoAdvance    bool             `yaml:"auto_advance" env:"SYNC_AUTO_ADVANCE"`
		OutOfSyncAfter time.Duration    `yaml:"out_of_sync_after" env:"SYNC_OUT_OF_SYNC_AFTER"`
		SweepInterval  time.Duration    `yaml:"sweep_interval" env:"SYNC_SWEEP_INTERVAL"`
	} `yaml:"sync"`

	Timer struct {
		TickInterval       time.Duration `yaml:"tick_interval" env:"TIMER_TICK_INTERVAL"`
		BroadcastInterval  time.Duration `yaml:"broadcast_interval" env:"TIMER_BROADCAST_INTERVAL"`
		WarningThresholds  []int         `yaml:"warning_thresholds" env:"TIMER_WARNING_THRESHOLDS"`
		AutoSubmitOnExpiry bool          `yaml:"auto_submit_on_expiry" env:"TIMER_AUTO_SUBMIT"`
	} `yaml:"timer"`

	Realtime struct {
		Feed Feed `yaml:"feed" env:"REALTIME_FEED"`
		NATS struct {
			URL           string `yaml:"url" env:"NATS_URL"`
			Stream        string `yaml:"stream" env:"NATS_STREAM"`
			SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX"`
		} `yaml:"nats"`
		Postgres struct {
			Channel string `yaml:"channel" env:"PG_NOTIFY_CHANNEL"`
		} `yaml:"postgres"`
		WebSocket struct {
			URL string `yaml:"url" env:"WS_GATEWAY_URL"`
		} `yaml:"websocket"`
	} `yaml:"realtime"`

	Status struct {
		Addr           string   `yaml:"addr" env:"STATUS_ADDR"`
		AllowedOrigins []string `yaml:"allowed_origins" env:"STATUS_ALLOWED_ORIGINS"`
	} `yaml:"status"`

	Database DatabaseConfig `yaml:"database"`
}

// DatabaseConfig holds Postgres connection settings. The password is only
// read from the environment.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"-" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
	AppName  string `yaml:"application_name" env:"DB_APPLICATION_NAME"`
}

// DSN returns the Postgres connection URL.
func (d DatabaseConfig) DSN() string {
	q := url.Values{}
	q.Set("sslmode", d.SSLMode)
	if d.AppName != "" {
		q.Set("application_name", d.AppName)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Validate reports the first invalid connection setting.
func (d DatabaseConfig) Validate() error {
	if d.Host == "" {
		return errors.New("database host is required")
	}
	if d.Port <= 0 || d.Port > 65535 {
		return fmt.Errorf("invalid database port %d", d.Port)
	}
	if d.Name == "" {
		return errors.New("database name is required")
	}
	return nil
}

// DatabaseFromEnv returns the default connection settings overridden by
// DB_* variables, for tools that need nothing else.
func DatabaseFromEnv() (DatabaseConfig, error) {
	d := Default().Database
	if err := env.Parse(&d); err != nil {
		return DatabaseConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := d.Validate(); err != nil {
		return DatabaseConfig{}, err
	}
	return d, nil
}

// Default returns the settings used when neither file nor environment set
// a value.
func Default() Config {
	var c Config
	c.LogLevel = "info"
	c.Session.AutoJoin = true
	c.Service.BaseURL = "http://localhost:8080"
	c.Service.Timeout = 30 * time.Second
	c.Service.Source = SnapshotFromService
	c.Sync.Strategy = syncmgr.StrategyMerge
	c.Sync.AutoAdvance = true
	c.Sync.OutOfSyncAfter = syncmgr.DefaultOutOfSyncAfter
	c.Sync.SweepInterval = controller.DefaultSweepInterval
	c.Timer.TickInterval = timer.DefaultTickInterval
	c.Timer.BroadcastInterval = timer.DefaultBroadcastInterval
	c.Timer.WarningThresholds = []int{
		timer.DefaultThresholds.Low,
		timer.DefaultThresholds.Medium,
		timer.DefaultThresholds.High,
	}
	c.Realtime.Feed = FeedNATS
	c.Realtime.NATS.URL = "nats://127.0.0.1:4222"
	c.Realtime.NATS.Stream = "DOODLE_EVENTS"
	c.Realtime.NATS.SubjectPrefix = "doodle.sessions"
	c.Realtime.Postgres.Channel = "doodle_session_events"
	c.Status.Addr = ":8090"
	c.Status.AllowedOrigins = []string{"http://localhost:3000"}
	c.Database = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Name:     "doodleduel",
		SSLMode:  "disable",
		AppName:  "doodle-client",
	}
	return c
}

// Load reads path (optional) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Session.ID == "" {
		return errors.New("session id is required")
	}
	if c.Session.UserID == "" {
		return errors.New("session user id is required")
	}
	if !c.Sync.Strategy.Valid() {
		return fmt.Errorf("unknown sync strategy %q", c.Sync.Strategy)
	}
	if _, err := c.Thresholds(); err != nil {
		return err
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}

	switch c.Service.Source {
	case SnapshotFromService:
	case SnapshotFromDatabase:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown snapshot source %q", c.Service.Source)
	}

	switch c.Realtime.Feed {
	case FeedNATS, FeedNone:
	case FeedPostgres:
		if err := c.Database.Validate(); err != nil {
			return err
		}
	case FeedWebSocket:
		if c.Realtime.WebSocket.URL == "" {
			return errors.New("websocket feed requires a gateway url")
		}
	default:
		return fmt.Errorf("unknown realtime feed %q", c.Realtime.Feed)
	}
	return nil
}

// Thresholds converts the configured warning bands.
func (c Config) Thresholds() (timer.Thresholds, error) {
	return timer.ThresholdsFrom(c.Timer.WarningThresholds)
}

// Level is the zerolog level for LogLevel, info when unparseable.
func (c Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Controller builds the session controller settings.
func (c Config) Controller() controller.Config {
	thresholds, err := c.Thresholds()
	if err != nil {
		thresholds = timer.DefaultThresholds
	}
	return controller.Config{
		SessionID:      c.Session.ID,
		UserID:         c.Session.UserID,
		DisplayName:    c.Session.DisplayName,
		Strategy:       c.Sync.Strategy,
		AutoAdvance:    c.Sync.AutoAdvance,
		SweepInterval:  c.Sync.SweepInterval,
		OutOfSyncAfter: c.Sync.OutOfSyncAfter,
		Timer: timer.Config{
			TickInterval:       c.Timer.TickInterval,
			BroadcastInterval:  c.Timer.BroadcastInterval,
			Thresholds:         thresholds,
			AutoSubmitOnExpiry: c.Timer.AutoSubmitOnExpiry,
		},
	}
}
