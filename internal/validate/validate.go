// Package validate holds the stateless input checks applied to every inbound
// command and the per-connection rate limiter.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// RoomCodeLength is the number of characters in a room code
	RoomCodeLength = 6

	// MaxNameLength is the longest display name kept after sanitizing
	MaxNameLength = 50

	// FallbackName replaces names that sanitize to nothing
	FallbackName = "Player"

	MinYear = 1900
	MaxYear = 2100

	// MaxPlayersPerRoom caps room membership
	MaxPlayersPerRoom = 50

	// MaxRoomsPerHost caps concurrently open rooms per host connection
	MaxRoomsPerHost = 5
)

var (
	roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	tagPattern      = regexp.MustCompile(`<[^>]*>`)
	controlPattern  = regexp.MustCompile(`[\x00-\x1F\x7F]`)
)

// NormalizeRoomCode upper-cases and trims a room code as typed by a user
func NormalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// RoomCode reports whether code is six characters from [A-Z0-9], ignoring case
func RoomCode(code string) bool {
	return roomCodePattern.MatchString(strings.ToUpper(code))
}

// Year reports whether year is within the playable range
func Year(year int) bool {
	return year >= MinYear && year <= MaxYear
}

// SanitizeName strips markup and control characters from a display name,
// trims it and truncates it. It never returns an empty string.
func SanitizeName(raw string) string {
	name := tagPattern.ReplaceAllString(raw, "")
	name = strings.NewReplacer("<", "", ">", "").Replace(name)
	name = controlPattern.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}

	if name == "" {
		return FallbackName
	}
	return name
}
