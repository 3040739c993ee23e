package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// JetStreamConfig configures the NATS JetStream sink
type JetStreamConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	MaxAge        time.Duration
}

// DefaultJetStreamConfig returns the defaults used when only the URL is set
func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:           nats.DefaultURL,
		StreamName:    "YEARGUESS_EVENTS",
		SubjectPrefix: "yearguess",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		MaxAge:        24 * time.Hour,
	}
}

// JetStreamSink publishes events to a JetStream stream
type JetStreamSink struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config JetStreamConfig
	logger zerolog.Logger
}

// NewJetStreamSink connects to NATS and makes sure the stream exists
func NewJetStreamSink(ctx context.Context, cfg JetStreamConfig, logger zerolog.Logger) (*JetStreamSink, error) {
	opts := []nats.Option{
		nats.Name("yearguess"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	s := &JetStreamSink{nc: nc, js: js, config: cfg, logger: logger}

	if err := s.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return s, nil
}

func (s *JetStreamSink) ensureStream(ctx context.Context) error {
	_, err := s.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        s.config.StreamName,
		Description: "Room events mirrored from the game server",
		Subjects:    []string{s.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      s.config.MaxAge,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return err
	}

	s.logger.Info().Str("stream", s.config.StreamName).Msg("JetStream stream ready")
	return nil
}

// Publish implements Sink
func (s *JetStreamSink) Publish(ctx context.Context, subject string, data []byte) error {
	ack, err := s.js.Publish(ctx, subject, data, jetstream.WithExpectStream(s.config.StreamName))
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	s.logger.Debug().
		Str("subject", subject).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")
	return nil
}

// Close drains the connection
func (s *JetStreamSink) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
