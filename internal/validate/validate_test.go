package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRoomCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"abc123", true},
		{"ABC12", false},
		{"ABC1234", false},
		{"ABC-12", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := RoomCode(tt.code); got != tt.want {
			t.Errorf("RoomCode(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}

	if got := NormalizeRoomCode("  abc123 "); got != "ABC123" {
		t.Errorf("NormalizeRoomCode = %q", got)
	}
}

func TestYear(t *testing.T) {
	for year, want := range map[int]bool{1899: false, 1900: true, 2000: true, 2100: true, 2101: false} {
		if got := Year(year); got != want {
			t.Errorf("Year(%d) = %v, want %v", year, got, want)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", "Alice", "Alice"},
		{"trimmed", "  Bob  ", "Bob"},
		{"tags", "<b>Carol</b>", "Carol"},
		{"script", "<script>alert(1)</script>Dan", "alert(1)Dan"},
		{"stray brackets", "a<b", "ab"},
		{"control chars", "Eve\x00\x1f\x7f", "Eve"},
		{"empty", "", FallbackName},
		{"only markup", "<i></i>", FallbackName},
		{"unicode kept", "Åse Ødegård", "Åse Ødegård"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.raw); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeNameTruncates(t *testing.T) {
	got := SanitizeName(strings.Repeat("é", 80))
	if n := len([]rune(got)); n != MaxNameLength {
		t.Fatalf("got %d runes, want %d", n, MaxNameLength)
	}
}

func TestLimiterWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(clock, 3, time.Minute)

	for i := 0; i < 3; i++ {
		if !l.Allow("conn") {
			t.Fatalf("operation %d rejected", i)
		}
	}
	if l.Allow("conn") {
		t.Fatalf("fourth operation should be rejected")
	}
	if !l.Allow("other") {
		t.Fatalf("limits must be per connection")
	}

	clock.Advance(time.Minute + time.Second)
	if !l.Allow("conn") {
		t.Fatalf("window should have reset")
	}
}

func TestLimiterCleanup(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := NewLimiter(clock, 10, time.Minute)

	l.Allow("old")
	clock.Advance(30 * time.Second)
	l.Allow("fresh")
	clock.Advance(45 * time.Second)

	if removed := l.Cleanup(); removed != 1 {
		t.Fatalf("removed %d windows, want 1", removed)
	}
	if l.Len() != 1 {
		t.Fatalf("expected one tracked key, got %d", l.Len())
	}

	l.Forget("fresh")
	if l.Len() != 0 {
		t.Fatalf("Forget should drop the key")
	}
}
