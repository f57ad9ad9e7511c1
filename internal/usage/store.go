// Package usage persists routing decisions and reports per-key usage.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Decision is one recorded routing decision.
type Decision struct {
	ID                string
	KeyID             string
	UserID            string
	Complexity        string
	Preference        string
	SelectedModel     string
	Cost              float64
	BaselineCost      float64
	SavingsPercentage int
	LatencyMs         int64
	CreatedAt         time.Time
}

// Stats aggregates a key's decisions since a point in time.
type Stats struct {
	TotalQueries   int64
	TotalCost      float64
	TotalSavings   float64
	AvgLatencyMs   float64
	QueriesByModel map[string]int64
}

type Store interface {
	Record(ctx context.Context, d Decision) error
	Stats(ctx context.Context, keyID string, since time.Time) (Stats, error)
}

// PGStore implements Store on the route_decisions table.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Record(ctx context.Context, d Decision) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO route_decisions
			(id, key_id, user_id, complexity, preference, selected_model,
			 cost, baseline_cost, savings_percentage, latency_ms, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11)
	`, d.ID, d.KeyID, d.UserID, d.Complexity, d.Preference, d.SelectedModel,
		d.Cost, d.BaselineCost, d.SavingsPercentage, d.LatencyMs, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert route_decisions: %w", err)
	}
	return nil
}

func (s *PGStore) Stats(ctx context.Context, keyID string, since time.Time) (Stats, error) {
	stats := Stats{QueriesByModel: map[string]int64{}}

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cost), 0),
		       COALESCE(SUM(baseline_cost - cost), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM route_decisions
		WHERE key_id = $1 AND created_at >= $2
	`, keyID, since).Scan(&stats.TotalQueries, &stats.TotalCost, &stats.TotalSavings, &stats.AvgLatencyMs)
	if err != nil {
		return Stats{}, fmt.Errorf("query usage totals: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT selected_model, COUNT(*)
		FROM route_decisions
		WHERE key_id = $1 AND created_at >= $2
		GROUP BY selected_model
	`, keyID, since)
	if err != nil {
		return Stats{}, fmt.Errorf("query usage by model: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var model string
		var n int64
		if err := rows.Scan(&model, &n); err != nil {
			return Stats{}, fmt.Errorf("scan usage by model: %w", err)
		}
		stats.QueriesByModel[model] = n
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate usage by model: %w", err)
	}

	return stats, nil
}
