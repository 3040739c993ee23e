package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"yearguess/internal/domain"
)

type memorySink struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	fail     bool
	closed   bool
}

func (s *memorySink) Publish(_ context.Context, subject string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("sink down")
	}
	s.subjects = append(s.subjects, subject)
	s.payloads = append(s.payloads, data)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestSubject(t *testing.T) {
	ev := domain.NewEvent(domain.EventRoundResults, "ABC123", nil)
	if got := Subject("yearguess", ev); got != "yearguess.rooms.ABC123.game.round-results" {
		t.Fatalf("Subject = %q", got)
	}

	ev = domain.NewEvent(domain.EventError, "", nil)
	if got := Subject("p", ev); got != "p.rooms._.error" {
		t.Fatalf("Subject = %q", got)
	}
}

func TestBusForwardsAndDrainsOnShutdown(t *testing.T) {
	sink := &memorySink{}
	bus := NewBus(sink, "yearguess", 8, zerolog.Nop())

	bus.Publish(domain.NewEvent(domain.EventGameStarted, "ABC123", &domain.GameStartedPayload{StartYear: 2000, Round: 1}))
	bus.Publish(domain.NewEvent(domain.EventNextRound, "ABC123", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		bus.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()

	if len(sink.subjects) != 2 || !sink.closed {
		t.Fatalf("expected 2 published events and a closed sink, got %d closed=%v", len(sink.subjects), sink.closed)
	}

	var decoded struct {
		Type    string `json:"type"`
		RoomID  string `json:"roomId"`
		Payload struct {
			StartYear int `json:"startYear"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(sink.payloads[0], &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Type != "game:started" || decoded.RoomID != "ABC123" || decoded.Payload.StartYear != 2000 {
		t.Fatalf("unexpected payload %+v", decoded)
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(&memorySink{}, "yearguess", 1, zerolog.Nop())

	bus.Publish(domain.NewEvent(domain.EventGameStarted, "A", nil))
	bus.Publish(domain.NewEvent(domain.EventGameStarted, "A", nil))

	if bus.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", bus.Dropped())
	}
}

func TestBusSurvivesSinkErrors(t *testing.T) {
	sink := &memorySink{fail: true}
	bus := NewBus(sink, "yearguess", 4, zerolog.Nop())
	bus.Publish(domain.NewEvent(domain.EventGameStarted, "A", nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Run(ctx)

	if !sink.closed {
		t.Fatalf("sink should be closed after Run returns")
	}
}
