package game

import (
	"fmt"
	"testing"
	"time"
)

// poolOf builds a synthetic pool of n distinct locations.
func poolOf(n int) []Location {
	locs := make([]Location, n)
	for i := range locs {
		locs[i] = Location{
			FIPS:    fmt.Sprintf("%05d", i),
			Lat:     float64(i),
			Lng:     -float64(i),
			Heading: i % 360,
		}
	}
	return locs
}

func TestDailySeed(t *testing.T) {
	tests := []struct {
		date time.Time
		want uint32
	}{
		{time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), 20250301},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), 20261231},
		{time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), 20260101},
	}
	for _, tt := range tests {
		if got := DailySeed(tt.date); got != tt.want {
			t.Errorf("DailySeed(%v) = %d, want %d", tt.date, got, tt.want)
		}
	}
}

func TestDailySeed_TimezoneIndependent(t *testing.T) {
	// Same UTC instant expressed in a non-UTC zone must give the same
	// seed.
	tokyo := time.FixedZone("UTC+9", 9*3600)
	utc := time.Date(2026, 6, 15, 20, 0, 0, 0, time.UTC)
	local := utc.In(tokyo) // 2026-06-16 05:00 local, still 06-15 UTC

	if DailySeed(utc) != DailySeed(local) {
		t.Error("DailySeed differs for the same instant in different zones")
	}
}

func TestDailyLocations_Deterministic(t *testing.T) {
	d := NewDataset(poolOf(500), nil)
	date := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	first := d.DailyLocations(date, RoundsPerGame)
	if len(first) != RoundsPerGame {
		t.Fatalf("expected %d locations, got %d", RoundsPerGame, len(first))
	}

	// Any number of repeat calls produce the identical ordered selection.
	for i := 0; i < 10; i++ {
		again := d.DailyLocations(date, RoundsPerGame)
		for j := range first {
			if again[j].FIPS != first[j].FIPS {
				t.Fatalf("call %d position %d: got %s, want %s", i, j, again[j].FIPS, first[j].FIPS)
			}
		}
	}
}

func TestDailyLocations_SharedAcrossInstances(t *testing.T) {
	// Two independently constructed datasets over the same pool select
	// the same board: no state crosses between them.
	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	a := NewDataset(poolOf(300), nil).DailyLocations(date, RoundsPerGame)
	b := NewDataset(poolOf(300), nil).DailyLocations(date, RoundsPerGame)

	for i := range a {
		if a[i].FIPS != b[i].FIPS {
			t.Fatalf("position %d: %s vs %s", i, a[i].FIPS, b[i].FIPS)
		}
	}
}

func TestDailyLocations_DifferentDatesDiffer(t *testing.T) {
	d := NewDataset(poolOf(500), nil)
	a := d.DailyLocations(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), RoundsPerGame)
	b := d.DailyLocations(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), RoundsPerGame)

	same := true
	for i := range a {
		if a[i].FIPS != b[i].FIPS {
			same = false
			break
		}
	}
	if same {
		t.Error("consecutive dates selected the identical board")
	}
}

func TestDailyLocations_NoDuplicates(t *testing.T) {
	d := NewDataset(poolOf(100), nil)
	locs := d.DailyLocations(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), RoundsPerGame)

	seen := make(map[string]bool)
	for _, l := range locs {
		if seen[l.FIPS] {
			t.Fatalf("duplicate location %s in selection", l.FIPS)
		}
		seen[l.FIPS] = true
	}
}

func TestDailyLocations_ShortPool(t *testing.T) {
	d := NewDataset(poolOf(3), nil)
	locs := d.DailyLocations(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), RoundsPerGame)

	if len(locs) != 3 {
		t.Errorf("expected whole pool of 3, got %d", len(locs))
	}
}

func TestDailyLocations_DoesNotMutatePool(t *testing.T) {
	pool := poolOf(50)
	d := NewDataset(pool, nil)
	d.DailyLocations(time.Date(2026, 5, 5, 0, 0, 0, 0, time.UTC), RoundsPerGame)

	for i, l := range pool {
		if l.FIPS != fmt.Sprintf("%05d", i) {
			t.Fatal("selection mutated the underlying pool")
		}
	}
}

func TestRandomLocations_CountAndUniqueness(t *testing.T) {
	d := NewDataset(poolOf(100), nil)
	locs := d.RandomLocations(RoundsPerGame)

	if len(locs) != RoundsPerGame {
		t.Fatalf("expected %d locations, got %d", RoundsPerGame, len(locs))
	}
	seen := make(map[string]bool)
	for _, l := range locs {
		if seen[l.FIPS] {
			t.Fatalf("duplicate location %s", l.FIPS)
		}
		seen[l.FIPS] = true
	}
}

func TestRandomLocations_ShortPool(t *testing.T) {
	d := NewDataset(poolOf(2), nil)
	if got := len(d.RandomLocations(RoundsPerGame)); got != 2 {
		t.Errorf("expected whole pool of 2, got %d", got)
	}
}
