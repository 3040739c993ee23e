package domain

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intPtr(v int) *int { return &v }

func TestInsertYear(t *testing.T) {
	tests := []struct {
		name     string
		year     int
		timeline []int
		want     []int
	}{
		{"empty", 1990, []int{}, []int{1990}},
		{"front", 1950, []int{1980, 2000}, []int{1950, 1980, 2000}},
		{"middle", 1990, []int{1980, 2000}, []int{1980, 1990, 2000}},
		{"back", 2020, []int{1980, 2000}, []int{1980, 2000, 2020}},
		{"duplicate", 2000, []int{1980, 2000}, []int{1980, 2000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InsertYear(tt.year, tt.timeline)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("InsertYear(%d) mismatch (-want +got):\n%s", tt.year, diff)
			}
		})
	}
}

func TestInsertYearDoesNotMutateInput(t *testing.T) {
	timeline := []int{1980, 2000}
	_ = InsertYear(1990, timeline)
	if diff := cmp.Diff([]int{1980, 2000}, timeline); diff != "" {
		t.Fatalf("input mutated (-want +got):\n%s", diff)
	}
}

func TestInsertYearStaysSortedAndUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		timeline := []int{}
		for i := 0; i < 40; i++ {
			timeline = InsertYear(1900+rng.Intn(60), timeline)
		}

		for i := 1; i < len(timeline); i++ {
			if timeline[i-1] >= timeline[i] {
				t.Fatalf("timeline not strictly ascending at %d: %v", i, timeline)
			}
		}
	}
}

func TestClassifyPosition(t *testing.T) {
	timeline := []int{1980, 2000, 2020}

	tests := []struct {
		year int
		want Slot
	}{
		{1970, Slot{Kind: SlotBefore}},
		{1980, Slot{Kind: SlotExact, Index: 0}},
		{1990, Slot{Kind: SlotBetween, Index: 0}},
		{2000, Slot{Kind: SlotExact, Index: 1}},
		{2010, Slot{Kind: SlotBetween, Index: 1}},
		{2020, Slot{Kind: SlotExact, Index: 2}},
		{2030, Slot{Kind: SlotAfter}},
	}

	for _, tt := range tests {
		if got := ClassifyPosition(tt.year, timeline); got != tt.want {
			t.Errorf("ClassifyPosition(%d) = %+v, want %+v", tt.year, got, tt.want)
		}
	}

	if got := ClassifyPosition(1990, nil); got.Kind != SlotBefore {
		t.Errorf("empty timeline: got %+v, want before", got)
	}
}

func TestIsGuessCorrectFirstRound(t *testing.T) {
	start := intPtr(2000)
	timeline := []int{2000}

	tests := []struct {
		name    string
		guess   int
		correct int
		want    bool
	}{
		{"both before", 1998, 1995, true},
		{"wrong side", 2002, 1995, false},
		{"both after", 2010, 2005, true},
		{"start year counts as after", 2000, 2005, true},
		{"start year against before", 2000, 1995, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGuessCorrect(tt.guess, timeline, tt.correct, start); got != tt.want {
				t.Errorf("IsGuessCorrect(%d, %d) = %v, want %v", tt.guess, tt.correct, got, tt.want)
			}
		})
	}
}

func TestIsGuessCorrectLaterRounds(t *testing.T) {
	start := intPtr(2000)
	timeline := []int{1980, 2000, 2020}

	tests := []struct {
		name    string
		guess   int
		correct int
		want    bool
	}{
		{"same gap", 1995, 1990, true},
		{"different gap", 2010, 1990, false},
		{"both before", 1950, 1970, true},
		{"both after", 2030, 2025, true},
		{"exact equal", 2000, 2000, true},
		{"two different exact years", 1980, 2000, false},
		{"exact against gap", 2000, 1990, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGuessCorrect(tt.guess, timeline, tt.correct, start); got != tt.want {
				t.Errorf("IsGuessCorrect(%d, %d) = %v, want %v", tt.guess, tt.correct, got, tt.want)
			}
		})
	}
}

func TestIsGuessCorrectExactGuessAlwaysWins(t *testing.T) {
	timelines := [][]int{
		{2000},
		{1980, 2000},
		{1950, 1980, 2000, 2020},
	}

	for _, timeline := range timelines {
		for year := 1900; year <= 2100; year += 7 {
			if !IsGuessCorrect(year, timeline, year, intPtr(2000)) {
				t.Fatalf("guess %d equal to answer rejected on %v", year, timeline)
			}
		}
	}
}
