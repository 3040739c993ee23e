package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every flag name to form its environment variable
const EnvPrefix = "YEARGUESS"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Game      GameConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
	Events    EventsConfig
	Quiz      QuizConfig

	// File is an optional config file read before env and flags are applied
	File string
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Bind        string
	Port        int
	Env         string // "development" or "production"
	CORSOrigins []string
}

// GameConfig holds room limits and lifecycle timing
type GameConfig struct {
	MaxPlayers      int
	MaxRoomsPerHost int
	IdleTimeout     time.Duration
	SweepInterval   time.Duration
}

// RateLimitConfig holds the per-connection command limiter settings
type RateLimitConfig struct {
	Max             int
	Window          time.Duration
	CleanupInterval time.Duration
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // "json" or "console"
}

// EventsConfig holds the optional JetStream mirror settings. An empty URL
// disables publishing.
type EventsConfig struct {
	NATSURL       string
	Stream        string
	SubjectPrefix string
	Buffer        int
}

// QuizConfig holds quiz mode lifetime settings
type QuizConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:        "0.0.0.0",
			Port:        3001,
			Env:         "development",
			CORSOrigins: []string{"*"},
		},
		Game: GameConfig{
			MaxPlayers:      50,
			MaxRoomsPerHost: 5,
			IdleTimeout:     30 * time.Minute,
			SweepInterval:   10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Max:             100,
			Window:          60 * time.Second,
			CleanupInterval: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Events: EventsConfig{
			Stream:        "YEARGUESS_EVENTS",
			SubjectPrefix: "yearguess",
			Buffer:        1024,
		},
		Quiz: QuizConfig{
			TTL:           24 * time.Hour,
			SweepInterval: time.Hour,
		},
	}
}

// RegisterFlags adds every setting to fs, using the current values of cfg
// as defaults
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.File, "config", "c", c.File, "path to a YAML, TOML or JSON config file (env: YEARGUESS_CONFIG)")

	fs.StringVarP(&c.Server.Bind, "bind", "b", c.Server.Bind, "address to bind to (env: YEARGUESS_BIND)")
	fs.IntVarP(&c.Server.Port, "port", "p", c.Server.Port, "port to listen on (env: YEARGUESS_PORT)")
	fs.StringVar(&c.Server.Env, "env", c.Server.Env, "development or production (env: YEARGUESS_ENV)")
	fs.StringSliceVar(&c.Server.CORSOrigins, "cors-origin", c.Server.CORSOrigins, "allowed origins, * for any (env: YEARGUESS_CORS_ORIGIN)")

	fs.IntVar(&c.Game.MaxPlayers, "max-players", c.Game.MaxPlayers, "maximum players per room (env: YEARGUESS_MAX_PLAYERS)")
	fs.IntVar(&c.Game.MaxRoomsPerHost, "max-rooms-per-host", c.Game.MaxRoomsPerHost, "maximum open rooms per host connection (env: YEARGUESS_MAX_ROOMS_PER_HOST)")
	fs.DurationVar(&c.Game.IdleTimeout, "room-idle-timeout", c.Game.IdleTimeout, "time before an idle room is deleted (env: YEARGUESS_ROOM_IDLE_TIMEOUT)")
	fs.DurationVar(&c.Game.SweepInterval, "room-sweep-interval", c.Game.SweepInterval, "how often idle rooms are swept (env: YEARGUESS_ROOM_SWEEP_INTERVAL)")

	fs.IntVar(&c.RateLimit.Max, "rate-limit", c.RateLimit.Max, "commands allowed per connection per window (env: YEARGUESS_RATE_LIMIT)")
	fs.DurationVar(&c.RateLimit.Window, "rate-window", c.RateLimit.Window, "rate limit window (env: YEARGUESS_RATE_WINDOW)")
	fs.DurationVar(&c.RateLimit.CleanupInterval, "rate-cleanup-interval", c.RateLimit.CleanupInterval, "how often stale limiter entries are dropped (env: YEARGUESS_RATE_CLEANUP_INTERVAL)")

	fs.StringVar(&c.Logging.Level, "log-level", c.Logging.Level, "debug, info, warn or error (env: YEARGUESS_LOG_LEVEL)")
	fs.StringVar(&c.Logging.Format, "log-format", c.Logging.Format, "console or json (env: YEARGUESS_LOG_FORMAT)")

	fs.StringVar(&c.Events.NATSURL, "nats-url", c.Events.NATSURL, "NATS server URL, empty disables event publishing (env: YEARGUESS_NATS_URL)")
	fs.StringVar(&c.Events.Stream, "nats-stream", c.Events.Stream, "JetStream stream name (env: YEARGUESS_NATS_STREAM)")
	fs.StringVar(&c.Events.SubjectPrefix, "nats-subject-prefix", c.Events.SubjectPrefix, "subject prefix for published events (env: YEARGUESS_NATS_SUBJECT_PREFIX)")
	fs.IntVar(&c.Events.Buffer, "event-buffer", c.Events.Buffer, "events buffered before dropping (env: YEARGUESS_EVENT_BUFFER)")

	fs.DurationVar(&c.Quiz.TTL, "quiz-ttl", c.Quiz.TTL, "lifetime of a quiz game (env: YEARGUESS_QUIZ_TTL)")
	fs.DurationVar(&c.Quiz.SweepInterval, "quiz-sweep-interval", c.Quiz.SweepInterval, "how often expired quiz games are swept (env: YEARGUESS_QUIZ_SWEEP_INTERVAL)")
}

// Resolve fills every flag the command line left unset from the environment
// and, when one is given, the config file. Command line values win over
// env, which wins over the file. In production the log format defaults to
// json.
func (c *Config) Resolve(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if c.File == "" {
		c.File = v.GetString("config")
	}
	if c.File != "" {
		v.SetConfigFile(c.File)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if f.Changed || !v.IsSet(f.Name) {
			return
		}

		value := fmt.Sprintf("%v", v.Get(f.Name))
		if f.Value.Type() == "stringSlice" {
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if err := fs.Set(f.Name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
		}
	})

	// Production logs default to JSON unless a format was asked for
	if c.IsProduction() && !fs.Changed("log-format") && !v.IsSet("log-format") {
		c.Logging.Format = "json"
	}

	return errors.Join(errs...)
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Game.MaxPlayers < 1 {
		return fmt.Errorf("max-players must be positive: %d", c.Game.MaxPlayers)
	}
	if c.Game.MaxRoomsPerHost < 1 {
		return fmt.Errorf("max-rooms-per-host must be positive: %d", c.Game.MaxRoomsPerHost)
	}
	if c.RateLimit.Max < 1 {
		return fmt.Errorf("rate-limit must be positive: %d", c.RateLimit.Max)
	}
	if c.Events.Buffer < 1 {
		return fmt.Errorf("event-buffer must be positive: %d", c.Events.Buffer)
	}

	durations := map[string]time.Duration{
		"room-idle-timeout":     c.Game.IdleTimeout,
		"room-sweep-interval":   c.Game.SweepInterval,
		"rate-window":           c.RateLimit.Window,
		"rate-cleanup-interval": c.RateLimit.CleanupInterval,
		"quiz-ttl":              c.Quiz.TTL,
		"quiz-sweep-interval":   c.Quiz.SweepInterval,
	}
	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive: %s", name, d)
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}
