package domain

import "slices"

// SlotKind says where a year falls relative to the timeline
type SlotKind string

const (
	SlotBefore  SlotKind = "before"
	SlotAfter   SlotKind = "after"
	SlotBetween SlotKind = "between"
	SlotExact   SlotKind = "exact"
)

// Slot is the position of a year relative to an ascending timeline.
// For SlotBetween, Index identifies the gap between timeline[Index] and
// timeline[Index+1]. For SlotExact, Index is the matching entry.
type Slot struct {
	Kind  SlotKind
	Index int
}

// InsertYear returns the timeline with year added in chronological order.
// The input is returned unchanged when the year is already present.
func InsertYear(year int, timeline []int) []int {
	if slices.Contains(timeline, year) {
		return timeline
	}

	out := make([]int, 0, len(timeline)+1)
	out = append(out, timeline...)
	out = append(out, year)
	slices.Sort(out)
	return out
}

// ClassifyPosition finds the slot a year falls into. An empty timeline
// classifies everything as SlotBefore.
func ClassifyPosition(year int, timeline []int) Slot {
	if len(timeline) == 0 {
		return Slot{Kind: SlotBefore}
	}

	if year < timeline[0] {
		return Slot{Kind: SlotBefore}
	}
	if year > timeline[len(timeline)-1] {
		return Slot{Kind: SlotAfter}
	}

	for i, entry := range timeline {
		if year == entry {
			return Slot{Kind: SlotExact, Index: i}
		}
		if i+1 < len(timeline) && year > entry && year < timeline[i+1] {
			return Slot{Kind: SlotBetween, Index: i}
		}
	}

	// unreachable for a sorted timeline
	return Slot{Kind: SlotAfter}
}

// IsGuessCorrect applies the slot-matching rule. In the first round (a single
// timeline entry and a known start year) the guess only has to fall on the
// same side of the start year as the answer. Later, the guess has to land in
// the same slot of the timeline as the answer; two exact slots only match when
// the years are equal.
func IsGuessCorrect(guess int, timeline []int, correctYear int, startYear *int) bool {
	if len(timeline) == 1 && startYear != nil {
		return (guess < *startYear) == (correctYear < *startYear)
	}

	guessSlot := ClassifyPosition(guess, timeline)
	correctSlot := ClassifyPosition(correctYear, timeline)

	if guessSlot.Kind == SlotExact && correctSlot.Kind == SlotExact {
		return guess == correctYear
	}

	return guessSlot == correctSlot
}
