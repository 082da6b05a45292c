package game

import "math"

// MarginBound is the guess input domain: guesses are clamped to
// [-MarginBound, MarginBound]. The scoring formula itself is
// domain-agnostic; only the clamp depends on this constant.
const MarginBound = 100.0

// MissingGuessMargin is the sentinel used when a client never submitted
// a guess for a round (e.g. it disconnected mid-game). The round still
// yields a defined score instead of an error.
const MissingGuessMargin = 0.0

// ClampGuess restricts a guessed margin to the valid input domain.
func ClampGuess(guessed float64) float64 {
	if guessed > MarginBound {
		return MarginBound
	}
	if guessed < -MarginBound {
		return -MarginBound
	}
	return guessed
}

// Score maps an (actual, guessed) margin pair to an integer score in
// 0..100. Pure and deterministic: 100 for an exact match, linearly
// decreasing with distance, floored at 0.
func Score(actual, guessed float64) int {
	diff := math.Abs(actual - ClampGuess(guessed))
	return int(math.Max(0, math.Round(100-diff)))
}

// TotalScore sums the per-round scores of a finished game.
func TotalScore(results []RoundResult) int {
	total := 0
	for _, r := range results {
		total += r.Score
	}
	return total
}
