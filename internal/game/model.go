// Package game provides the static game dataset, the round selector,
// and the scoring engine for PolitiGuessr.
package game

// Location is a curated street-level point. Immutable after load.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	FIPS    string  `json:"fips"`
	Heading int     `json:"heading"`
	Town    *string `json:"town,omitempty"`
}

// CountyResult is the ground truth for a county FIPS code.
// Margin is R% - D%: positive leans red, negative leans blue.
type CountyResult struct {
	FIPS       string  `json:"fips"`
	County     string  `json:"county"`
	State      string  `json:"state"`
	TotalVotes int     `json:"totalVotes"`
	DemVotes   int     `json:"demVotes"`
	GOPVotes   int     `json:"gopVotes"`
	DemPct     float64 `json:"demPct"`
	GOPPct     float64 `json:"gopPct"`
	Margin     float64 `json:"margin"`
}

// RoundResult is the post-reveal outcome of a single round.
type RoundResult struct {
	RoundNumber   int     `json:"roundNumber"`
	FIPS          string  `json:"fips"`
	County        string  `json:"county"`
	State         string  `json:"state"`
	Town          *string `json:"town,omitempty"`
	ActualMargin  float64 `json:"actualMargin"`
	GuessedMargin float64 `json:"guessedMargin"`
	Score         int     `json:"score"`
}

// Fallback identity fields used when a location's FIPS code is missing
// from the results table. The round still plays; the reveal is generic.
const (
	UnknownCounty = "Unknown County"
	UnknownState  = "Unknown"
)
