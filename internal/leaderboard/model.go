// Package leaderboard provides storage and ranking for daily challenge
// scores.
package leaderboard

import (
	"encoding/json"
	"errors"
	"time"
)

// Repository errors.
var (
	// ErrDuplicateSubmission is returned when a registered user already
	// has a ranked entry for the challenge date.
	ErrDuplicateSubmission = errors.New("already submitted for this date")

	// ErrEntryNotFound is returned when no entry exists for the lookup.
	ErrEntryNotFound = errors.New("leaderboard entry not found")
)

// DefaultTopSize is how many entries the public leaderboard shows.
const DefaultTopSize = 20

// Submission is one finished daily game, as stored. UserID is nil for
// anonymous players; only non-nil UserIDs are deduplicated per date.
// A display name alone is never treated as an identity.
type Submission struct {
	ID            string          `json:"id"`
	ChallengeDate string          `json:"challenge_date"` // YYYY-MM-DD (UTC)
	UserID        *string         `json:"user_id,omitempty"`
	DisplayName   string          `json:"display_name"`
	IsRegistered  bool            `json:"is_registered"`
	TotalScore    int             `json:"total_score"`
	Rounds        json.RawMessage `json:"rounds,omitempty"`
	SubmittedAt   time.Time       `json:"submitted_at"`
}

// Entry is one row of the rendered leaderboard. Rank is 1-based and
// derived at query time, never stored.
type Entry struct {
	DisplayName  string `json:"display_name"`
	IsRegistered bool   `json:"is_registered"`
	TotalScore   int    `json:"total_score"`
	Rank         int    `json:"rank"`
}
