package game

import (
	"math/rand/v2"
	"time"
)

// RoundsPerGame is the number of rounds in a standard game.
const RoundsPerGame = 5

// DailySeed derives the shared 32-bit shuffle seed for a calendar date.
// Every server instance computes the same seed for the same UTC date
// with no coordination, which is what makes the daily challenge
// identical for every player.
func DailySeed(date time.Time) uint32 {
	d := date.UTC()
	return uint32(d.Year()*10000 + int(d.Month())*100 + d.Day())
}

// lcg is a 32-bit linear congruential generator (Numerical Recipes
// constants). Cryptographic strength is not needed here, only exact
// cross-process reproducibility for a given seed.
type lcg struct {
	state uint32
}

// next advances the generator and returns a float in [0, 1).
func (g *lcg) next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / (1 << 32)
}

// DailyLocations returns the same ordered n locations for every caller
// on the same date and dataset: a Fisher-Yates shuffle of a copy of the
// pool, driven by the date-derived seed, truncated to n.
//
// A pool smaller than n is a dataset invariant violation; the whole
// pool is returned rather than failing the request.
func (d *Dataset) DailyLocations(date time.Time, n int) []Location {
	locs := make([]Location, len(d.locations))
	copy(locs, d.locations)

	g := &lcg{state: DailySeed(date)}
	for i := len(locs) - 1; i > 0; i-- {
		j := int(g.next() * float64(i+1))
		locs[i], locs[j] = locs[j], locs[i]
	}

	if n > len(locs) {
		n = len(locs)
	}
	return locs[:n]
}

// RandomLocations returns n locations for ad-hoc play. Unlike
// DailyLocations there is no reproducibility requirement, so the
// shuffle is non-deterministic. Short pools behave as in DailyLocations.
func (d *Dataset) RandomLocations(n int) []Location {
	locs := make([]Location, len(d.locations))
	copy(locs, d.locations)

	rand.Shuffle(len(locs), func(i, j int) {
		locs[i], locs[j] = locs[j], locs[i]
	})

	if n > len(locs) {
		n = len(locs)
	}
	return locs[:n]
}
