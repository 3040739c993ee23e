package app

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"yearguess/internal/domain"
	"yearguess/internal/validate"
)

func TestCreateRoomCode(t *testing.T) {
	hub, _ := newTestHub(t, nil)

	session, err := hub.CreateRoom(newFakeConn("host"))
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !validate.RoomCode(session.GetRoomCode()) {
		t.Fatalf("invalid room code %q", session.GetRoomCode())
	}

	got, err := hub.GetSession(" " + session.GetRoomCode() + " ")
	if err != nil || got != session {
		t.Fatalf("lookup should normalize the code, err=%v", err)
	}
}

func TestRoomCodesUseWholeAlphabet(t *testing.T) {
	hub, _ := newTestHub(t, nil)

	seen := make(map[rune]int)
	for i := 0; i < 300; i++ {
		code, err := hub.generateRoomCode()
		if err != nil {
			t.Fatalf("generateRoomCode: %v", err)
		}
		if !validate.RoomCode(code) {
			t.Fatalf("invalid room code %q", code)
		}
		for _, r := range code {
			seen[r]++
		}
	}

	for _, r := range RoomCodeChars {
		if seen[r] == 0 {
			t.Errorf("character %q never drawn", r)
		}
	}
}

func TestDeleteSessionNormalizesCode(t *testing.T) {
	hub, _ := newTestHub(t, nil)
	session, _ := hub.CreateRoom(newFakeConn("host"))

	hub.DeleteSession(" " + strings.ToLower(session.GetRoomCode()) + " ")

	if _, ok := hub.PeekSession(session.GetRoomCode()); ok {
		t.Fatalf("room should be deleted")
	}
	select {
	case <-session.Done():
	default:
		t.Fatalf("deleted session should be closed")
	}
}

func TestRoomsPerHostCap(t *testing.T) {
	hub, _ := newTestHub(t, nil)
	host := newFakeConn("host")

	var codes []string
	for i := 0; i < validate.MaxRoomsPerHost; i++ {
		session, err := hub.CreateRoom(host)
		if err != nil {
			t.Fatalf("room %d: %v", i, err)
		}
		codes = append(codes, session.GetRoomCode())
	}

	if _, err := hub.CreateRoom(host); !errors.Is(err, domain.ErrTooManyRooms) {
		t.Fatalf("expected ErrTooManyRooms, got %v", err)
	}

	if _, err := hub.CreateRoom(newFakeConn("other")); err != nil {
		t.Fatalf("cap must be per host: %v", err)
	}

	hub.DeleteSession(codes[0])
	if _, err := hub.CreateRoom(host); err != nil {
		t.Fatalf("deleting a room should free a slot: %v", err)
	}
}

func TestPlayersPerRoomCap(t *testing.T) {
	hub, _ := newTestHub(t, nil)
	session, _ := hub.CreateRoom(newFakeConn("host"))
	room := session.GetRoomCode()

	for i := 0; i < validate.MaxPlayersPerRoom; i++ {
		conn := newFakeConn(fmt.Sprintf("p%d", i))
		if err := hub.AddPlayer(room, conn, "p"); err != nil {
			t.Fatalf("player %d: %v", i, err)
		}
	}

	if err := hub.AddPlayer(room, newFakeConn("late"), "Late"); !errors.Is(err, domain.ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if hub.GetTotalPlayerCount() != validate.MaxPlayersPerRoom {
		t.Fatalf("player count = %d", hub.GetTotalPlayerCount())
	}
}

func TestAddPlayerUnknownRoom(t *testing.T) {
	hub, _ := newTestHub(t, nil)
	if err := hub.AddPlayer("ZZZZZZ", newFakeConn("a"), "A"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	hub.RemovePlayer("ZZZZZZ", "a")
}

func TestRemovePlayerIsIdempotent(t *testing.T) {
	hub, _ := newTestHub(t, nil)
	host := newFakeConn("host")
	session, _ := hub.CreateRoom(host)
	_ = hub.AddPlayer(session.GetRoomCode(), newFakeConn("a"), "A")

	hub.RemovePlayer(session.GetRoomCode(), "a")
	hub.RemovePlayer(session.GetRoomCode(), "a")

	if session.GetPlayerCount() != 0 {
		t.Fatalf("player count = %d, want 0", session.GetPlayerCount())
	}
	list := host.last(domain.EventPlayerList).Payload.(*domain.PlayerListPayload)
	if len(list.Players) != 0 {
		t.Fatalf("host should see an empty player list")
	}
}

func TestSweepRemovesIdleRooms(t *testing.T) {
	hub, clock := newTestHub(t, nil)

	idle, _ := hub.CreateRoom(newFakeConn("h1"))
	busy, _ := hub.CreateRoom(newFakeConn("h2"))

	clock.Advance(20 * time.Minute)
	if _, err := hub.GetSession(busy.GetRoomCode()); err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	clock.Advance(11 * time.Minute)

	if removed := hub.Sweep(); removed != 1 {
		t.Fatalf("removed %d rooms, want 1", removed)
	}
	if _, err := hub.GetSession(idle.GetRoomCode()); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("idle room should be gone, got %v", err)
	}
	if hub.GetSessionCount() != 1 {
		t.Fatalf("session count = %d, want 1", hub.GetSessionCount())
	}
}

func TestDisconnectRemovesPlayer(t *testing.T) {
	live := &fakeLiveness{}
	hub, _ := newTestHub(t, live)
	host := newFakeConn("host")
	alice := newFakeConn("alice")

	session, _ := hub.CreateRoom(host)
	_ = hub.AddPlayer(session.GetRoomCode(), alice, "Alice")

	hub.Disconnect("alice", []string{session.GetRoomCode(), "NOPE00"})
	if session.GetPlayerCount() != 0 {
		t.Fatalf("alice should be removed")
	}

	if hub.RoomsHostedBy("host") != 1 {
		t.Fatalf("host should own one room")
	}
}

func TestAuthorizeHost(t *testing.T) {
	live := &fakeLiveness{}
	live.kill("dead")

	tests := []struct {
		name         string
		hostID       string
		caller       string
		member       bool
		live         Liveness
		wantOK       bool
		wantTakeover bool
	}{
		{"recorded host", "h", "h", false, live, true, false},
		{"member with live host", "h", "m", true, live, false, false},
		{"non-member with dead host", "dead", "m", false, live, false, false},
		{"member with dead host", "dead", "m", true, live, true, true},
		{"no liveness source", "dead", "m", true, nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, takeover := authorizeHost(tt.hostID, tt.caller, tt.member, tt.live)
			if ok != tt.wantOK || takeover != tt.wantTakeover {
				t.Fatalf("got (%v, %v), want (%v, %v)", ok, takeover, tt.wantOK, tt.wantTakeover)
			}
		})
	}
}
