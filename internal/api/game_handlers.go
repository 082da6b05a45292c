package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/politiguessr/internal/game"
	"github.com/onnwee/politiguessr/internal/limits"
	"github.com/onnwee/politiguessr/internal/middleware"
	"github.com/onnwee/politiguessr/internal/session"
)

// PublicRound is the subset of a round that is safe to send to the
// client before the reveal: where to point the panorama, and nothing
// that identifies the answer. It must never carry margin, county or
// state.
type PublicRound struct {
	RoundNumber   int     `json:"roundNumber"`
	StreetViewURL string  `json:"streetViewUrl"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	Heading       int     `json:"heading"`
}

// GameResponse is the response body for a new game.
type GameResponse struct {
	SessionToken string        `json:"sessionToken"`
	Rounds       []PublicRound `json:"rounds"`
	// Tier lets the client cache its allowance class without a
	// separate round trip.
	Tier string `json:"tier,omitempty"`
}

// GuessRequest is the request body for submitting a single guess.
type GuessRequest struct {
	SessionToken  string   `json:"sessionToken"`
	RoundNumber   int      `json:"roundNumber"`
	GuessedMargin *float64 `json:"guessedMargin"`
}

// GameHandlers serves free-play game starts and per-round guesses.
type GameHandlers struct {
	dataset    *game.Dataset
	codec      *session.Codec
	limiter    *limits.Limiter
	metrics    *Metrics
	mapsAPIKey string
}

// NewGameHandlers creates a new GameHandlers instance. metrics may be
// nil in tests.
func NewGameHandlers(dataset *game.Dataset, codec *session.Codec, limiter *limits.Limiter, metrics *Metrics, mapsAPIKey string) *GameHandlers {
	return &GameHandlers{
		dataset:    dataset,
		codec:      codec,
		limiter:    limiter,
		metrics:    metrics,
		mapsAPIKey: mapsAPIKey,
	}
}

// StartGame handles GET /api/game - starts a free-play game.
//
// The daily allowance check runs here on every request, whatever the
// client's local counters claim: the client-side check is a UX hint,
// never an enforcement point.
func (h *GameHandlers) StartGame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	identity := callerIdentity(r)
	decision := h.limiter.CheckAndReserve(r.Context(), identity, time.Now())
	if !decision.Allowed {
		if h.metrics != nil {
			h.metrics.IncLimitDenied(string(decision.Tier))
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeRateLimited)
		WriteRateLimited(w, ctx, string(decision.Tier))
		return
	}

	locs := h.dataset.RandomLocations(game.RoundsPerGame)
	secret, public := h.buildRounds(locs)

	token, err := h.codec.Encode(secret)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to start game")
		return
	}

	if h.metrics != nil {
		h.metrics.IncGamesStarted("free_play", string(decision.Tier))
	}

	writeJSON(w, r.Context(), GameResponse{
		SessionToken: token,
		Rounds:       public,
		Tier:         string(decision.Tier),
	})
}

// Guess handles POST /api/guess - reveals and scores one round.
//
// Decoding the token mutates nothing, so the same token is expected
// back once per round and once more at the end of the session.
func (h *GameHandlers) Guess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req GuessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.SessionToken == "" || req.RoundNumber == 0 || req.GuessedMargin == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "sessionToken, roundNumber and guessedMargin are required")
		return
	}

	rounds, err := h.codec.Decode(req.SessionToken)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncInvalidSessions()
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidSession)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeInvalidSession, "Invalid or expired session")
		return
	}

	secret := findRound(rounds, req.RoundNumber)
	if secret == nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnknownRound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeUnknownRound, "No such round in this session")
		return
	}

	guessed := game.ClampGuess(*req.GuessedMargin)
	result := game.RoundResult{
		RoundNumber:   secret.RoundNumber,
		FIPS:          secret.FIPS,
		County:        secret.County,
		State:         secret.State,
		Town:          secret.Town,
		ActualMargin:  secret.Margin,
		GuessedMargin: guessed,
		Score:         game.Score(secret.Margin, guessed),
	}

	if h.metrics != nil {
		h.metrics.IncGuessesScored()
	}

	writeJSON(w, r.Context(), result)
}

// buildRounds resolves ground truth for the chosen locations and
// splits each round into its secret and public halves.
func (h *GameHandlers) buildRounds(locs []game.Location) ([]session.SecretRound, []PublicRound) {
	return buildRounds(h.dataset, h.mapsAPIKey, locs)
}

// buildRounds is shared by the free-play and daily handlers.
func buildRounds(dataset *game.Dataset, mapsAPIKey string, locs []game.Location) ([]session.SecretRound, []PublicRound) {
	secret := make([]session.SecretRound, len(locs))
	public := make([]PublicRound, len(locs))

	for i, loc := range locs {
		county, state, margin := game.UnknownCounty, game.UnknownState, 0.0
		if result, ok := dataset.Result(loc.FIPS); ok {
			county, state, margin = result.County, result.State, result.Margin
		}

		secret[i] = session.SecretRound{
			RoundNumber: i + 1,
			FIPS:        loc.FIPS,
			County:      county,
			State:       state,
			Town:        loc.Town,
			Margin:      margin,
		}
		public[i] = PublicRound{
			RoundNumber:   i + 1,
			StreetViewURL: game.StreetViewURL(mapsAPIKey, loc.Lat, loc.Lng, loc.Heading),
			Lat:           loc.Lat,
			Lng:           loc.Lng,
			Heading:       loc.Heading,
		}
	}
	return secret, public
}

// findRound locates a round by ordinal, or nil.
func findRound(rounds []session.SecretRound, n int) *session.SecretRound {
	for i := range rounds {
		if rounds[i].RoundNumber == n {
			return &rounds[i]
		}
	}
	return nil
}

// callerIdentity assembles the limiter identity for a request from the
// auth context and the client network origin.
func callerIdentity(r *http.Request) limits.Identity {
	id := limits.Identity{
		ClientIP: middleware.ClientIP(r),
		Tier:     limits.TierAnon,
	}
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		id.UserID = userID
		id.Tier = limits.TierFree
		if middleware.GetUserTier(r.Context()) == "pro" {
			id.Tier = limits.TierPro
		}
	}
	return id
}
