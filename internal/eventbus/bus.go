// Package eventbus mirrors room events to an external stream without ever
// blocking the room that produced them.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"yearguess/internal/domain"
)

const (
	// DefaultBufferSize is the number of events queued before new ones are dropped
	DefaultBufferSize = 1024

	publishTimeout = 5 * time.Second
)

// Sink delivers encoded events to a backing stream
type Sink interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// NopSink discards everything
type NopSink struct{}

// Publish implements Sink
func (NopSink) Publish(context.Context, string, []byte) error { return nil }

// Close implements Sink
func (NopSink) Close() error { return nil }

// Subject builds the stream subject for an event, e.g.
// yearguess.rooms.ABC123.game.round-results
func Subject(prefix string, event *domain.Event) string {
	room := event.RoomID
	if room == "" {
		room = "_"
	}
	return fmt.Sprintf("%s.rooms.%s.%s", prefix, room, strings.ReplaceAll(string(event.Type), ":", "."))
}

// Bus queues events in memory and forwards them to a Sink from a single worker
type Bus struct {
	sink   Sink
	prefix string
	queue  chan *domain.Event
	logger zerolog.Logger

	mu      sync.Mutex
	dropped int
}

// NewBus creates a bus. Call Run to start forwarding.
func NewBus(sink Sink, prefix string, bufferSize int, logger zerolog.Logger) *Bus {
	if sink == nil {
		sink = NopSink{}
	}
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		sink:   sink,
		prefix: prefix,
		queue:  make(chan *domain.Event, bufferSize),
		logger: logger,
	}
}

// Publish enqueues an event. When the queue is full the event is dropped.
func (b *Bus) Publish(event *domain.Event) {
	select {
	case b.queue <- event:
	default:
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		b.logger.Warn().Str("type", string(event.Type)).Str("roomId", event.RoomID).Msg("event queue full, dropping event")
	}
}

// Dropped returns how many events were dropped so far
func (b *Bus) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Run forwards queued events until ctx is done, then drains what is left
// and closes the sink.
func (b *Bus) Run(ctx context.Context) {
	defer func() {
		if err := b.sink.Close(); err != nil {
			b.logger.Error().Err(err).Msg("failed to close event sink")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			b.drain()
			return
		case event := <-b.queue:
			b.forward(event)
		}
	}
}

func (b *Bus) drain() {
	for {
		select {
		case event := <-b.queue:
			b.forward(event)
		default:
			return
		}
	}
}

func (b *Bus) forward(event *domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error().Err(err).Str("type", string(event.Type)).Msg("failed to encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	subject := Subject(b.prefix, event)
	if err := b.sink.Publish(ctx, subject, data); err != nil {
		b.logger.Error().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
