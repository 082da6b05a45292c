package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/onnwee/politiguessr/internal/game"
	"github.com/onnwee/politiguessr/internal/leaderboard"
	"github.com/onnwee/politiguessr/internal/middleware"
	"github.com/onnwee/politiguessr/internal/session"
	"github.com/onnwee/politiguessr/internal/validate"
)

// defaultDisplayName is used when an anonymous player submits no name.
const defaultDisplayName = "Guest"

// DailyResponse is the response body for GET /api/daily. Exactly one of
// the challenge fields or the already-played fields is populated.
type DailyResponse struct {
	ChallengeDate string        `json:"challengeDate"`
	AlreadyPlayed bool          `json:"alreadyPlayed"`
	SessionToken  string        `json:"sessionToken,omitempty"`
	Rounds        []PublicRound `json:"rounds,omitempty"`

	// Set only when AlreadyPlayed is true.
	TotalScore  *int                `json:"totalScore,omitempty"`
	Rank        *int                `json:"rank,omitempty"`
	Leaderboard []leaderboard.Entry `json:"leaderboard,omitempty"`
}

// DailyGuess is one guessed round in a daily submission.
type DailyGuess struct {
	RoundNumber   int     `json:"roundNumber"`
	GuessedMargin float64 `json:"guessedMargin"`
}

// DailySubmitRequest is the request body for POST /api/daily/submit.
type DailySubmitRequest struct {
	SessionToken string       `json:"sessionToken"`
	Guesses      []DailyGuess `json:"guesses"`
	DisplayName  string       `json:"displayName"`
}

// DailySubmitResponse is the response body for an accepted submission.
type DailySubmitResponse struct {
	ChallengeDate string              `json:"challengeDate"`
	DisplayName   string              `json:"displayName"`
	TotalScore    int                 `json:"totalScore"`
	Rank          int                 `json:"rank"`
	Rounds        []game.RoundResult  `json:"rounds"`
	Leaderboard   []leaderboard.Entry `json:"leaderboard"`
}

// LeaderboardResponse is the response body for the public leaderboard.
type LeaderboardResponse struct {
	ChallengeDate string              `json:"challengeDate"`
	Leaderboard   []leaderboard.Entry `json:"leaderboard"`
}

// DailyHandlers serves the shared daily challenge: one deterministic
// board per UTC date, scored server side, ranked on a per-date
// leaderboard.
type DailyHandlers struct {
	dataset    *game.Dataset
	codec      *session.Codec
	repo       leaderboard.Repository
	metrics    *Metrics
	mapsAPIKey string
	now        func() time.Time
}

// NewDailyHandlers creates a new DailyHandlers instance. metrics may be
// nil in tests.
func NewDailyHandlers(dataset *game.Dataset, codec *session.Codec, repo leaderboard.Repository, metrics *Metrics, mapsAPIKey string) *DailyHandlers {
	return &DailyHandlers{
		dataset:    dataset,
		codec:      codec,
		repo:       repo,
		metrics:    metrics,
		mapsAPIKey: mapsAPIKey,
		now:        time.Now,
	}
}

// challengeDate returns today's challenge date key. The boundary is
// UTC midnight everywhere; local midnight would give players in
// different timezones different boards.
func (h *DailyHandlers) challengeDate() string {
	return h.now().UTC().Format("2006-01-02")
}

// Daily handles GET /api/daily - returns today's challenge, or the
// caller's finished result if their account already played it.
func (h *DailyHandlers) Daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	date := h.challengeDate()

	// Registered users who already played see their result instead of a
	// fresh board. Anonymous callers always get the board; their replay
	// protection is the allowance counter, not the leaderboard.
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		sub, err := h.repo.GetByUser(r.Context(), date, userID)
		switch {
		case err == nil:
			h.writeAlreadyPlayed(w, r, date, sub)
			return
		case !errors.Is(err, leaderboard.ErrEntryNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
			WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score store unavailable, try again")
			return
		}
	}

	locs := h.dataset.DailyLocations(h.now(), game.RoundsPerGame)
	secret, public := buildRounds(h.dataset, h.mapsAPIKey, locs)

	token, err := h.codec.Encode(secret)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to start daily challenge")
		return
	}

	if h.metrics != nil {
		h.metrics.IncGamesStarted("daily", middleware.GetUserTier(r.Context()))
	}

	writeJSON(w, r.Context(), DailyResponse{
		ChallengeDate: date,
		SessionToken:  token,
		Rounds:        public,
	})
}

func (h *DailyHandlers) writeAlreadyPlayed(w http.ResponseWriter, r *http.Request, date string, sub *leaderboard.Submission) {
	rank, err := h.repo.RankOf(r.Context(), date, sub.TotalScore)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score store unavailable, try again")
		return
	}
	top, err := h.repo.Top(r.Context(), date, leaderboard.DefaultTopSize)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score store unavailable, try again")
		return
	}

	total := sub.TotalScore
	writeJSON(w, r.Context(), DailyResponse{
		ChallengeDate: date,
		AlreadyPlayed: true,
		TotalScore:    &total,
		Rank:          &rank,
		Leaderboard:   top,
	})
}

// Submit handles POST /api/daily/submit - scores a finished daily game
// and records it on the leaderboard.
//
// Every margin comes from the verified token, never from the request
// body, so the client can only influence its guesses.
func (h *DailyHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	var req DailySubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	if req.SessionToken == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "sessionToken is required")
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

	// Score every round the token carries. A round the client skipped
	// gets the sentinel guess so the total still covers the whole game.
	guessed := make(map[int]float64, len(req.Guesses))
	for _, g := range req.Guesses {
		guessed[g.RoundNumber] = game.ClampGuess(g.GuessedMargin)
	}

	results := make([]game.RoundResult, len(rounds))
	total := 0
	for i, secret := range rounds {
		guess, ok := guessed[secret.RoundNumber]
		if !ok {
			guess = game.MissingGuessMargin
		}
		score := game.Score(secret.Margin, guess)
		results[i] = game.RoundResult{
			RoundNumber:   secret.RoundNumber,
			FIPS:          secret.FIPS,
			County:        secret.County,
			State:         secret.State,
			Town:          secret.Town,
			ActualMargin:  secret.Margin,
			GuessedMargin: guess,
			Score:         score,
		}
		total += score
	}

	date := h.challengeDate()
	sub := &leaderboard.Submission{
		ChallengeDate: date,
		TotalScore:    total,
		SubmittedAt:   h.now().UTC(),
	}
	if userID := middleware.GetUserID(r.Context()); userID != "" {
		sub.UserID = &userID
		sub.IsRegistered = true
		sub.DisplayName = validate.DisplayName(middleware.GetUsername(r.Context()), "Player")
	} else {
		sub.DisplayName = validate.DisplayName(req.DisplayName, defaultDisplayName)
	}
	if data, err := json.Marshal(results); err == nil {
		sub.Rounds = data
	}

	if err := h.repo.Submit(r.Context(), sub); err != nil {
		if errors.Is(err, leaderboard.ErrDuplicateSubmission) {
			if h.metrics != nil {
				h.metrics.IncDuplicateEntries()
			}
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeDuplicateSubmission)
			WriteError(w, ctx, http.StatusConflict, ErrCodeDuplicateSubmission, "Already submitted for today's challenge")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score store unavailable, try again")
		return
	}

	if h.metrics != nil {
		h.metrics.IncDailySubmissions(sub.IsRegistered)
	}

	rank, err := h.repo.RankOf(r.Context(), date, total)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score recorded but ranking unavailable")
		return
	}
	top, err := h.repo.Top(r.Context(), date, leaderboard.DefaultTopSize)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score recorded but ranking unavailable")
		return
	}

	writeJSON(w, r.Context(), DailySubmitResponse{
		ChallengeDate: date,
		DisplayName:   sub.DisplayName,
		TotalScore:    total,
		Rank:          rank,
		Rounds:        results,
		Leaderboard:   top,
	})
}

// Leaderboard handles GET /api/daily/leaderboard - today's top entries.
func (h *DailyHandlers) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	date := h.challengeDate()
	top, err := h.repo.Top(r.Context(), date, leaderboard.DefaultTopSize)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeDependencyUnavailable)
		WriteError(w, ctx, http.StatusServiceUnavailable, ErrCodeDependencyUnavailable, "Score store unavailable, try again")
		return
	}

	// The board changes on every submission; never let an intermediary
	// serve a stale copy across the midnight rollover.
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r.Context(), LeaderboardResponse{
		ChallengeDate: date,
		Leaderboard:   top,
	})
}
