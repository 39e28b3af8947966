package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/digkill/writory/internal/models"
)

type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func insertOutbox(ctx context.Context, db execer, entry *models.OutboxEntry) (int64, error) {
	const query = `INSERT INTO outbox (topic, aggregate_id, payload) VALUES (?, ?, ?)`
	res, err := db.ExecContext(ctx, query, entry.Topic, entry.AggregateID, string(entry.Payload))
	if err != nil {
		return 0, fmt.Errorf("insert outbox entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("outbox last insert id: %w", err)
	}
	entry.ID = id
	return id, nil
}

func (r *OutboxRepository) Get(ctx context.Context, id int64) (*models.OutboxEntry, error) {
	const query = `
SELECT id, topic, aggregate_id, payload, attempts, COALESCE(last_error, ''), delivered_at, created_at
FROM outbox WHERE id = ?`
	var (
		e         models.OutboxEntry
		delivered sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Topic, &e.AggregateID, &e.Payload, &e.Attempts, &e.LastError, &delivered, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get outbox entry: %w", err)
	}
	e.DeliveredAt = timePtr(delivered)
	return &e, nil
}

// Pending lists ids of undelivered entries created before cutoff that still have attempts left.
func (r *OutboxRepository) Pending(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]int64, error) {
	const query = `
SELECT id FROM outbox
WHERE delivered_at IS NULL AND attempts < ? AND created_at < ?
ORDER BY id ASC
LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, maxAttempts, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan outbox id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *OutboxRepository) MarkDelivered(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox SET delivered_at = NOW(), last_error = NULL WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark outbox delivered: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, cause string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE id = ?`, cause, id); err != nil {
		return fmt.Errorf("mark outbox failed: %w", err)
	}
	return nil
}

// ResetAttempts gives every undelivered entry a fresh attempt budget.
func (r *OutboxRepository) ResetAttempts(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox SET attempts = 0 WHERE delivered_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("reset outbox attempts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("outbox rows affected: %w", err)
	}
	return n, nil
}
