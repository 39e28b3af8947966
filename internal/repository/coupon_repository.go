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

type CouponRepository struct {
	db *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

const couponColumns = `id, code, discount_type, discount_value, valid_from, valid_until, usage_limit, used_count, applicable_tiers, is_active, created_at, updated_at`

func scanCoupon(row scanner) (*models.Coupon, error) {
	var (
		c         models.Coupon
		from      sql.NullTime
		until     sql.NullTime
		limit     sql.NullInt64
		tiersJSON sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &from, &until, &limit, &c.UsedCount, &tiersJSON, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.ValidFrom = timePtr(from)
	c.ValidUntil = timePtr(until)
	c.UsageLimit = intPtr(limit)
	if tiersJSON.Valid && tiersJSON.String != "" {
		if err := json.Unmarshal([]byte(tiersJSON.String), &c.ApplicableTiers); err != nil {
			return nil, fmt.Errorf("decode applicable tiers: %w", err)
		}
	}
	return &c, nil
}

// NormalizeCode is the stored form of a coupon code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = ?`, NormalizeCode(code))
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan coupon: %w", err)
	}
	return c, nil
}

func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*models.Coupon, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id = ?`, id)
	c, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get coupon by id: %w", err)
	}
	return c, nil
}

func (r *CouponRepository) List(ctx context.Context) ([]models.Coupon, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	var coupons []models.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon list: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}

func (r *CouponRepository) Create(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	const query = `
INSERT INTO coupons (code, discount_type, discount_value, valid_from, valid_until, usage_limit, used_count, applicable_tiers, is_active)
VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`
	tiers, err := jsonArray(c.ApplicableTiers)
	if err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, query, NormalizeCode(c.Code), c.DiscountType, c.DiscountValue,
		nullTime(c.ValidFrom), nullTime(c.ValidUntil), nullInt(c.UsageLimit), tiers, c.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("coupon last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *CouponRepository) Update(ctx context.Context, c *models.Coupon) (*models.Coupon, error) {
	const query = `
UPDATE coupons
SET code = ?, discount_type = ?, discount_value = ?, valid_from = ?, valid_until = ?, usage_limit = ?, applicable_tiers = ?, is_active = ?, updated_at = NOW()
WHERE id = ?`
	tiers, err := jsonArray(c.ApplicableTiers)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, query, NormalizeCode(c.Code), c.DiscountType, c.DiscountValue,
		nullTime(c.ValidFrom), nullTime(c.ValidUntil), nullInt(c.UsageLimit), tiers, c.IsActive, c.ID); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}
	return r.GetByID(ctx, c.ID)
}

func (r *CouponRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM coupon_redemptions WHERE coupon_id = ?`, id); err != nil {
		return fmt.Errorf("delete coupon redemptions: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM coupons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) HasUserRedeemed(ctx context.Context, couponID int64, userUID string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `SELECT 1 FROM coupon_redemptions WHERE coupon_id = ? AND user_uid = ?`, couponID, userUID)
	var dummy int
	if err := row.Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check coupon redemption: %w", err)
	}
	return true, nil
}

// redeemCoupon locks the coupon row, re-checks the cap and records the redemption.
func redeemCoupon(ctx context.Context, tx *sql.Tx, couponID int64, userUID, submissionUUID string) error {
	var (
		used   int
		limit  sql.NullInt64
		active bool
	)
	row := tx.QueryRowContext(ctx, `SELECT used_count, usage_limit, is_active FROM coupons WHERE id = ? FOR UPDATE`, couponID)
	if err := row.Scan(&used, &limit, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("coupon %d: %w", couponID, apperr.ErrNotFound)
		}
		return fmt.Errorf("lock coupon: %w", err)
	}
	if !active {
		return fmt.Errorf("coupon is no longer active: %w", apperr.ErrValidation)
	}
	if limit.Valid && int64(used) >= limit.Int64 {
		return fmt.Errorf("coupon usage limit reached: %w", apperr.ErrConflict)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO coupon_redemptions (coupon_id, user_uid, submission_uuid) VALUES (?, ?, ?)`, couponID, userUID, submissionUUID); err != nil {
		if apperr.IsDuplicate(err) {
			return fmt.Errorf("coupon already redeemed: %w", apperr.ErrConflict)
		}
		return fmt.Errorf("insert coupon redemption: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE coupons SET used_count = used_count + 1, updated_at = NOW() WHERE id = ?`, couponID); err != nil {
		return fmt.Errorf("increment coupon usage: %w", err)
	}
	return nil
}
