package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// SubmissionGroup is everything written when one entry is accepted.
// CouponID and FreeTierKey are optional.
type SubmissionGroup struct {
	Submissions []*models.Submission
	Payment     *models.Payment
	CouponID    int64
	FreeTierKey string
	Outbox      *models.OutboxEntry
}

type SubmissionFilter struct {
	Email  string
	Status string
	Tier   string
	Month  string
	Winner *bool
}

type Evaluation struct {
	Score          *int
	Type           string
	Status         string
	Breakdown      *models.ScoreBreakdown
	IsWinner       bool
	WinnerPosition *int
}

const submissionColumns = `id, submission_uuid, user_uid, name, email, COALESCE(phone, ''), age, poem_title, poem_index, total_poems,
    tier, price, discount_amount, COALESCE(coupon_code, ''), payment_id, payment_method, COALESCE(poem_file_url, ''),
    COALESCE(photo_url, ''), contest_month, score, COALESCE(type, ''), status, score_breakdown, is_winner, winner_position,
    COALESCE(winner_category, ''), created_at, updated_at`

func scanSubmission(row scanner) (*models.Submission, error) {
	var (
		s         models.Submission
		score     sql.NullInt64
		position  sql.NullInt64
		breakdown sql.NullString
	)
	err := row.Scan(&s.ID, &s.SubmissionUUID, &s.UserUID, &s.Name, &s.Email, &s.Phone, &s.Age, &s.PoemTitle, &s.PoemIndex, &s.TotalPoems,
		&s.Tier, &s.Price, &s.DiscountAmount, &s.CouponCode, &s.PaymentID, &s.PaymentMethod, &s.PoemFileURL,
		&s.PhotoURL, &s.ContestMonth, &score, &s.Type, &s.Status, &breakdown, &s.IsWinner, &position,
		&s.WinnerCategory, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Score = intPtr(score)
	s.WinnerPosition = intPtr(position)
	if breakdown.Valid && breakdown.String != "" && breakdown.String != "null" {
		var b models.ScoreBreakdown
		if err := json.Unmarshal([]byte(breakdown.String), &b); err != nil {
			return nil, fmt.Errorf("decode score breakdown: %w", err)
		}
		s.ScoreBreakdown = &b
	}
	return &s, nil
}

// CreateGroup writes the submission rows, the payment row, the coupon redemption,
// the free-tier usage marker and the outbox entry in one transaction.
func (r *SubmissionRepository) CreateGroup(ctx context.Context, group SubmissionGroup) ([]int64, int64, error) {
	if len(group.Submissions) == 0 {
		return nil, 0, fmt.Errorf("empty submission group: %w", apperr.ErrValidation)
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	uuid := group.Submissions[0].SubmissionUUID

	if group.FreeTierKey != "" {
		if _, err := tx.ExecContext(ctx, `INSERT INTO free_tier_usage (usage_key, submission_uuid) VALUES (?, ?)`, group.FreeTierKey, uuid); err != nil {
			if apperr.IsDuplicate(err) {
				return nil, 0, fmt.Errorf("free tier already used this month: %w", apperr.ErrConflict)
			}
			return nil, 0, fmt.Errorf("insert free tier usage: %w", err)
		}
	}

	if group.CouponID != 0 {
		if err := redeemCoupon(ctx, tx, group.CouponID, group.Submissions[0].UserUID, uuid); err != nil {
			return nil, 0, err
		}
	}

	ids := make([]int64, 0, len(group.Submissions))
	for _, s := range group.Submissions {
		id, err := insertSubmission(ctx, tx, s)
		if err != nil {
			return nil, 0, err
		}
		s.ID = id
		ids = append(ids, id)
	}

	if group.Payment != nil {
		if err := insertPayment(ctx, tx, group.Payment); err != nil {
			return nil, 0, err
		}
	}

	var outboxID int64
	if group.Outbox != nil {
		outboxID, err = insertOutbox(ctx, tx, group.Outbox)
		if err != nil {
			return nil, 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit submission tx: %w", err)
	}
	return ids, outboxID, nil
}

func insertSubmission(ctx context.Context, db execer, s *models.Submission) (int64, error) {
	const query = `
INSERT INTO submissions (submission_uuid, user_uid, name, email, phone, age, poem_title, poem_index, total_poems,
    tier, price, discount_amount, coupon_code, payment_id, payment_method, poem_file_url, photo_url, contest_month, status)
VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)`
	status := s.Status
	if status == "" {
		status = models.SubmissionStatusPending
	}
	res, err := db.ExecContext(ctx, query, s.SubmissionUUID, s.UserUID, s.Name, s.Email, s.Phone, s.Age, s.PoemTitle, s.PoemIndex, s.TotalPoems,
		s.Tier, s.Price, s.DiscountAmount, s.CouponCode, s.PaymentID, s.PaymentMethod, s.PoemFileURL, s.PhotoURL, s.ContestMonth, status)
	if err != nil {
		return 0, fmt.Errorf("insert submission: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("submission last insert id: %w", err)
	}
	return id, nil
}

func (r *SubmissionRepository) GetByID(ctx context.Context, id int64) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}
	return s, nil
}

// FindByEmailTitle matches after trimming and case-folding both sides. The newest
// row wins when a submitter entered the same title twice.
func (r *SubmissionRepository) FindByEmailTitle(ctx context.Context, email, title string) (*models.Submission, error) {
	const where = ` FROM submissions WHERE LOWER(TRIM(email)) = ? AND LOWER(TRIM(poem_title)) = ? ORDER BY id DESC LIMIT 1`
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+where, normalizeKey(email), normalizeKey(title))
	s, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find submission by email and title: %w", err)
	}
	return s, nil
}

func (r *SubmissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Email != "" {
		conds = append(conds, "email = ?")
		args = append(args, filter.Email)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Tier != "" {
		conds = append(conds, "tier = ?")
		args = append(args, filter.Tier)
	}
	if filter.Month != "" {
		conds = append(conds, "contest_month = ?")
		args = append(args, filter.Month)
	}
	if filter.Winner != nil {
		conds = append(conds, "is_winner = ?")
		args = append(args, *filter.Winner)
	}

	query := `SELECT ` + submissionColumns + ` FROM submissions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []models.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission list: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateEvaluation overwrites the judging fields. Clearing the winner flag also
// clears the category.
func (r *SubmissionRepository) UpdateEvaluation(ctx context.Context, id int64, e Evaluation) error {
	const query = `
UPDATE submissions
SET score = ?, type = NULLIF(?, ''), status = ?, score_breakdown = ?, is_winner = ?, winner_position = ?,
    winner_category = IF(?, winner_category, NULL), updated_at = NOW()
WHERE id = ?`
	var breakdown sql.NullString
	if e.Breakdown != nil {
		b, err := json.Marshal(e.Breakdown)
		if err != nil {
			return fmt.Errorf("marshal score breakdown: %w", err)
		}
		breakdown = sql.NullString{String: string(b), Valid: true}
	}
	status := e.Status
	if status == "" {
		status = models.SubmissionStatusPending
	}
	if _, err := r.db.ExecContext(ctx, query, nullInt(e.Score), e.Type, status, breakdown, e.IsWinner, nullInt(e.WinnerPosition), e.IsWinner, id); err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}
	return nil
}

func (r *SubmissionRepository) UpdateWinner(ctx context.Context, id int64, isWinner bool, position *int, category string) error {
	const query = `
UPDATE submissions SET is_winner = ?, winner_position = ?, winner_category = NULLIF(?, ''), updated_at = NOW()
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, isWinner, nullInt(position), category, id); err != nil {
		return fmt.Errorf("update winner: %w", err)
	}
	return nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
