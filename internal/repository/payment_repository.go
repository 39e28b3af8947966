package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/writory/internal/models"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func insertPayment(ctx context.Context, db execer, payment *models.Payment) error {
	const query = `
INSERT INTO payments (provider, reference, submission_uuid, amount, currency, status, raw_payload)
VALUES (?, ?, ?, ?, ?, ?, NULLIF(?, ''))`
	res, err := db.ExecContext(ctx, query, payment.Provider, payment.Reference, payment.SubmissionUUID, payment.Amount, payment.Currency, payment.Status, payment.RawPayload)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("payment last insert id: %w", err)
	}
	payment.ID = id
	return nil
}

func (r *PaymentRepository) FindByReference(ctx context.Context, provider models.PaymentMethod, reference string) (*models.Payment, error) {
	const query = `
SELECT id, provider, reference, submission_uuid, amount, currency, status, COALESCE(raw_payload, ''), created_at, updated_at
FROM payments WHERE provider = ? AND reference = ? LIMIT 1`
	row := r.db.QueryRowContext(ctx, query, provider, reference)
	var p models.Payment
	if err := row.Scan(&p.ID, &p.Provider, &p.Reference, &p.SubmissionUUID, &p.Amount, &p.Currency, &p.Status, &p.RawPayload, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment: %w", err)
	}
	return &p, nil
}
