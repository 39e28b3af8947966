package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// FreeTierRepository reads the monthly free-entry markers. Markers are written by
// SubmissionRepository.CreateGroup inside the submission transaction.
type FreeTierRepository struct {
	db *sql.DB
}

func NewFreeTierRepository(db *sql.DB) *FreeTierRepository {
	return &FreeTierRepository{db: db}
}

func (r *FreeTierRepository) Used(ctx context.Context, usageKey string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM free_tier_usage WHERE usage_key = ?`, usageKey)
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("count free tier usage: %w", err)
	}
	return count > 0, nil
}
