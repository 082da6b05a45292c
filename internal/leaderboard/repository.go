package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Repository defines daily score storage and ranking operations.
type Repository interface {
	// Submit inserts a finished game. For a registered user a second
	// submission on the same date returns ErrDuplicateSubmission; it is
	// never silently overwritten. Anonymous submissions are unlimited.
	Submit(ctx context.Context, sub *Submission) error

	// Top returns the highest-scoring entries for a date, ordered by
	// total score descending with ties broken by earliest submission,
	// each annotated with its 1-based rank.
	Top(ctx context.Context, date string, limit int) ([]Entry, error)

	// RankOf computes a single entrant's rank for a date as
	// 1 + count(entries with a strictly greater total), without
	// materializing the full list.
	RankOf(ctx context.Context, date string, totalScore int) (int, error)

	// GetByUser returns a registered user's entry for a date, or
	// ErrEntryNotFound.
	GetByUser(ctx context.Context, date, userID string) (*Submission, error)
}

// pqUniqueViolation is the Postgres error code for unique constraint
// violations.
const pqUniqueViolation = "23505"

// PostgresRepository implements Repository on the shared Postgres
// store. The at-most-one-entry-per-user-per-date invariant is enforced
// by a partial unique index on (challenge_date, user_id), not by
// application-level read-modify-write.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{db: db, logger: logger}
}

// Submit implements Repository.
func (r *PostgresRepository) Submit(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO daily_scores (id, challenge_date, user_id, display_name, is_registered, total_score, rounds, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		sub.ID, sub.ChallengeDate, sub.UserID, sub.DisplayName,
		sub.IsRegistered, sub.TotalScore, sub.Rounds, sub.SubmittedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return ErrDuplicateSubmission
		}
		return fmt.Errorf("failed to insert daily score: %w", err)
	}

	r.logger.InfoContext(ctx, "daily score submitted",
		"challenge_date", sub.ChallengeDate,
		"is_registered", sub.IsRegistered,
		"total_score", sub.TotalScore)
	return nil
}

// Top implements Repository.
func (r *PostgresRepository) Top(ctx context.Context, date string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultTopSize
	}

	query := `
		SELECT display_name, is_registered, total_score
		FROM daily_scores
		WHERE challenge_date = $1
		ORDER BY total_score DESC, submitted_at ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close leaderboard rows", "error", err)
		}
	}()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.DisplayName, &e.IsRegistered, &e.TotalScore); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard rows: %w", err)
	}
	return entries, nil
}

// RankOf implements Repository.
func (r *PostgresRepository) RankOf(ctx context.Context, date string, totalScore int) (int, error) {
	var better int
	query := `SELECT COUNT(*) FROM daily_scores WHERE challenge_date = $1 AND total_score > $2`
	if err := r.db.QueryRowContext(ctx, query, date, totalScore).Scan(&better); err != nil {
		return 0, fmt.Errorf("failed to compute rank: %w", err)
	}
	return better + 1, nil
}

// GetByUser implements Repository.
func (r *PostgresRepository) GetByUser(ctx context.Context, date, userID string) (*Submission, error) {
	query := `
		SELECT id, challenge_date, user_id, display_name, is_registered, total_score, submitted_at
		FROM daily_scores
		WHERE challenge_date = $1 AND user_id = $2
	`
	var sub Submission
	err := r.db.QueryRowContext(ctx, query, date, userID).Scan(
		&sub.ID, &sub.ChallengeDate, &sub.UserID, &sub.DisplayName,
		&sub.IsRegistered, &sub.TotalScore, &sub.SubmittedAt)
	if err == sql.ErrNoRows {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user entry: %w", err)
	}
	return &sub, nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via mutex. Used in development and tests.
type InMemoryRepository struct {
	mu          sync.Mutex
	submissions []*Submission
	byUserDate  map[string]*Submission // "date|userID" -> submission
	now         func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byUserDate: make(map[string]*Submission),
		now:        time.Now,
	}
}

func userDateKey(date, userID string) string {
	return date + "|" + userID
}

// Submit implements Repository.
func (r *InMemoryRepository) Submit(ctx context.Context, sub *Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.UserID != nil {
		key := userDateKey(sub.ChallengeDate, *sub.UserID)
		if _, exists := r.byUserDate[key]; exists {
			return ErrDuplicateSubmission
		}
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = r.now().UTC()
	}

	stored := *sub
	r.submissions = append(r.submissions, &stored)
	if stored.UserID != nil {
		r.byUserDate[userDateKey(stored.ChallengeDate, *stored.UserID)] = &stored
	}
	return nil
}

// Top implements Repository.
func (r *InMemoryRepository) Top(ctx context.Context, date string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultTopSize
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var forDate []*Submission
	for _, s := range r.submissions {
		if s.ChallengeDate == date {
			forDate = append(forDate, s)
		}
	}
	sort.SliceStable(forDate, func(i, j int) bool {
		if forDate[i].TotalScore != forDate[j].TotalScore {
			return forDate[i].TotalScore > forDate[j].TotalScore
		}
		return forDate[i].SubmittedAt.Before(forDate[j].SubmittedAt)
	})

	if len(forDate) > limit {
		forDate = forDate[:limit]
	}
	entries := make([]Entry, len(forDate))
	for i, s := range forDate {
		entries[i] = Entry{
			DisplayName:  s.DisplayName,
			IsRegistered: s.IsRegistered,
			TotalScore:   s.TotalScore,
			Rank:         i + 1,
		}
	}
	return entries, nil
}

// RankOf implements Repository.
func (r *InMemoryRepository) RankOf(ctx context.Context, date string, totalScore int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	better := 0
	for _, s := range r.submissions {
		if s.ChallengeDate == date && s.TotalScore > totalScore {
			better++
		}
	}
	return better + 1, nil
}

// GetByUser implements Repository.
func (r *InMemoryRepository) GetByUser(ctx context.Context, date, userID string) (*Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byUserDate[userDateKey(date, userID)]
	if !ok {
		return nil, ErrEntryNotFound
	}
	found := *sub
	return &found, nil
}
