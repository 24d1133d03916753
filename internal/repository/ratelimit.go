package repository

import (
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// RateLimitRepository keeps fixed-window hit counters in storage so the
// limit holds across processes.
type RateLimitRepository interface {
	// Hit records one hit against the scope key's current window and
	// returns the window's running total, this hit included.
	Hit(scopeKey string, windowStart time.Time) (int, error)
	// Prune removes windows that started before the cutoff.
	Prune(cutoff time.Time) (int64, error)
}

type rateLimitRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewRateLimitRepository creates a new rate limit repository.
func NewRateLimitRepository(db *sqlx.DB, logger *zap.Logger) RateLimitRepository {
	return &rateLimitRepository{db: db, logger: logger}
}

func (r *rateLimitRepository) Hit(scopeKey string, windowStart time.Time) (int, error) {
	var hits int
	query := `
		INSERT INTO rate_limits (scope_key, window_started_at, hit_count, last_hit_at)
		VALUES ($1, $2, 1, CURRENT_TIMESTAMP)
		ON CONFLICT (scope_key, window_started_at)
		DO UPDATE SET hit_count = rate_limits.hit_count + 1, last_hit_at = CURRENT_TIMESTAMP
		RETURNING hit_count
	`

	if err := r.db.QueryRow(query, scopeKey, windowStart).Scan(&hits); err != nil {
		r.logger.Error("Failed to record rate limit hit", zap.String("scope_key", scopeKey), zap.Error(err))
		return 0, err
	}

	return hits, nil
}

func (r *rateLimitRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM rate_limits WHERE window_started_at < $1`, cutoff)
	if err != nil {
		r.logger.Error("Failed to prune rate limit windows", zap.Error(err))
		return 0, err
	}

	return result.RowsAffected()
}
