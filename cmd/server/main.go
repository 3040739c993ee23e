package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"yearguess/internal/app"
	"yearguess/internal/config"
	"yearguess/internal/eventbus"
	"yearguess/internal/quiz"
	httpTransport "yearguess/internal/transport/http"
	"yearguess/internal/transport/ws"
	"yearguess/internal/validate"
)

const releaseVersion = "1.0.0"

func main() {
	// A missing .env file is fine
	_ = godotenv.Load()

	cfg := config.Default()
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "yearguess",
		Short:   "Real-time multiplayer guess-the-year elimination game server.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Resolve(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	cfg.RegisterFlags(cmd.Flags())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("yearguess v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = os.Stdout
	if cfg.Logging.Format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// newSink connects to JetStream when a NATS URL is configured
func newSink(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (eventbus.Sink, error) {
	if cfg.Events.NATSURL == "" {
		return eventbus.NopSink{}, nil
	}

	jsCfg := eventbus.DefaultJetStreamConfig()
	jsCfg.URL = cfg.Events.NATSURL
	jsCfg.StreamName = cfg.Events.Stream
	jsCfg.SubjectPrefix = cfg.Events.SubjectPrefix

	sink, err := eventbus.NewJetStreamSink(ctx, jsCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("event sink: %w", err)
	}
	return sink, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	logger.Info().
		Str("env", cfg.Server.Env).
		Int("port", cfg.Server.Port).
		Str("version", releaseVersion).
		Msg("starting yearguess server")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	sink, err := newSink(ctx, cfg, logger.With().Str("component", "eventbus").Logger())
	if err != nil {
		return err
	}
	bus := eventbus.NewBus(sink, cfg.Events.SubjectPrefix, cfg.Events.Buffer, logger.With().Str("component", "eventbus").Logger())

	registry := ws.NewRegistry()

	// Create game hub
	hub := app.NewGameHub(app.Options{
		Limits: app.Limits{
			MaxPlayersPerRoom: cfg.Game.MaxPlayers,
			MaxRoomsPerHost:   cfg.Game.MaxRoomsPerHost,
			IdleTimeout:       cfg.Game.IdleTimeout,
			SweepInterval:     cfg.Game.SweepInterval,
		},
		Liveness:  registry,
		Publisher: bus,
		Clock:     clock,
	}, logger.With().Str("component", "hub").Logger())

	quizzes := quiz.NewManager(cfg.Quiz.TTL, registry, clock, logger.With().Str("component", "quiz").Logger())
	limiter := validate.NewLimiter(clock, cfg.RateLimit.Max, cfg.RateLimit.Window)

	wsHandler := ws.NewHandler(hub, quizzes, limiter, registry, cfg.Server.CORSOrigins, logger.With().Str("component", "ws").Logger())
	server := httpTransport.NewServer(cfg, hub, quizzes, wsHandler, logger.With().Str("component", "http").Logger())

	var wg sync.WaitGroup
	background := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	background(func() { bus.Run(ctx) })
	background(func() { limiter.Run(ctx, cfg.RateLimit.CleanupInterval) })
	background(func() { quizzes.Run(ctx, cfg.Quiz.SweepInterval) })

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down server...")
	case runErr = <-serverErr:
		if runErr != nil {
			logger.Error().Err(runErr).Msg("server error")
		}
		stop()
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	registry.CloseAll()
	hub.Close()
	wg.Wait()

	logger.Info().Int("droppedEvents", bus.Dropped()).Msg("server stopped")
	return runErr
}
