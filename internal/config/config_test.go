package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := Default()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return cfg, cfg.Resolve(fs)
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := parse(t)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults changed (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.GetAddr() != "0.0.0.0:3001" {
		t.Errorf("GetAddr = %q", cfg.GetAddr())
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "yearguess.yaml")
	body := "port: 4000\nmax-players: 8\nlog-format: json\ncors-origin:\n  - https://a.example\n  - https://b.example\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("YEARGUESS_MAX_PLAYERS", "12")
	t.Setenv("YEARGUESS_RATE_WINDOW", "30s")

	cfg, err := parse(t, "--config", file, "--log-level", "debug")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000 from file", cfg.Server.Port)
	}
	if cfg.Game.MaxPlayers != 12 {
		t.Errorf("max-players = %d, want 12 from env", cfg.Game.MaxPlayers)
	}
	if cfg.RateLimit.Window != 30*time.Second {
		t.Errorf("rate-window = %s, want 30s from env", cfg.RateLimit.Window)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if diff := cmp.Diff([]string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins); diff != "" {
		t.Errorf("cors origins (-want +got):\n%s", diff)
	}
}

func TestProductionDefaultsToJSONLogs(t *testing.T) {
	cfg, err := parse(t, "--env", "production")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !cfg.IsProduction() || cfg.Logging.Format != "json" {
		t.Errorf("env = %q, log format = %q, want production/json", cfg.Server.Env, cfg.Logging.Format)
	}

	cfg, err = parse(t, "--env", "production", "--log-format", "console")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("explicit log format was overridden: %q", cfg.Logging.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   string
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "invalid port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid port"},
		{"no players", func(c *Config) { c.Game.MaxPlayers = 0 }, "max-players"},
		{"no rooms", func(c *Config) { c.Game.MaxRoomsPerHost = 0 }, "max-rooms-per-host"},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }, "rate-window"},
		{"negative ttl", func(c *Config) { c.Quiz.TTL = -time.Second }, "quiz-ttl"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
