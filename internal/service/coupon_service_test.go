package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name          string
		coupon        models.Coupon
		amount        int
		discount, fin int
	}{
		{"percentage floors", models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: 15}, 90, 13, 77},
		{"fixed", models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: 20}, 90, 20, 70},
		{"fixed larger than amount", models.Coupon{DiscountType: models.DiscountFixed, DiscountValue: 500}, 50, 50, 0},
		{"full percentage", models.Coupon{DiscountType: models.DiscountPercentage, DiscountValue: 100}, 230, 230, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			discount, final := ApplyDiscount(&tt.coupon, tt.amount)
			require.Equal(t, tt.discount, discount)
			require.Equal(t, tt.fin, final)
		})
	}
}

func TestValidateCoupon(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	past, future := now.Add(-48*time.Hour), now.Add(48*time.Hour)
	limit := 10

	coupons := newFakeCoupons(
		&models.Coupon{ID: 1, Code: "WELCOME", DiscountType: models.DiscountPercentage, DiscountValue: 10, IsActive: true},
		&models.Coupon{ID: 2, Code: "OFF", DiscountType: models.DiscountFixed, DiscountValue: 5, IsActive: false},
		&models.Coupon{ID: 3, Code: "LATER", DiscountType: models.DiscountFixed, DiscountValue: 5, IsActive: true, ValidFrom: &future},
		&models.Coupon{ID: 4, Code: "OLD", DiscountType: models.DiscountFixed, DiscountValue: 5, IsActive: true, ValidUntil: &past},
		&models.Coupon{ID: 5, Code: "FULL", DiscountType: models.DiscountFixed, DiscountValue: 5, IsActive: true, UsageLimit: &limit, UsedCount: 10},
		&models.Coupon{ID: 6, Code: "BULKONLY", DiscountType: models.DiscountFixed, DiscountValue: 30, IsActive: true, ApplicableTiers: []models.Tier{models.TierBulk}},
	)
	coupons.redeemed["WELCOME/uid-repeat"] = true
	svc := NewCouponService(coupons)
	svc.now = func() time.Time { return now }

	tests := []struct {
		name  string
		check CouponCheck
		valid bool
		err   string
	}{
		{"valid lower case", CouponCheck{Code: " welcome ", Tier: models.TierDouble, Amount: 90, UserUID: "uid-1"}, true, ""},
		{"unknown", CouponCheck{Code: "NOPE", Tier: models.TierSingle, Amount: 50}, false, "Invalid coupon code"},
		{"inactive", CouponCheck{Code: "OFF", Tier: models.TierSingle, Amount: 50}, false, "This coupon is no longer active"},
		{"not started", CouponCheck{Code: "LATER", Tier: models.TierSingle, Amount: 50}, false, "This coupon is not valid yet"},
		{"expired", CouponCheck{Code: "OLD", Tier: models.TierSingle, Amount: 50}, false, "This coupon has expired"},
		{"cap reached", CouponCheck{Code: "FULL", Tier: models.TierSingle, Amount: 50}, false, "This coupon has reached its usage limit"},
		{"wrong tier", CouponCheck{Code: "BULKONLY", Tier: models.TierSingle, Amount: 50}, false, "This coupon is not valid for the selected tier"},
		{"free tier", CouponCheck{Code: "WELCOME", Tier: models.TierFree, Amount: 0}, false, "Coupons cannot be applied to the free tier"},
		{"already redeemed", CouponCheck{Code: "WELCOME", Tier: models.TierSingle, Amount: 50, UserUID: "uid-repeat"}, false, "You have already used this coupon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Validate(context.Background(), tt.check)
			require.NoError(t, err)
			require.Equal(t, tt.valid, res.Valid)
			require.Equal(t, tt.err, res.Error)
		})
	}

	res, err := svc.Validate(context.Background(), CouponCheck{Code: "WELCOME", Tier: models.TierDouble, Amount: 90})
	require.NoError(t, err)
	require.Equal(t, 9, res.DiscountAmount)
	require.Equal(t, 81, res.FinalAmount)
}

func TestCreateCoupon(t *testing.T) {
	coupons := newFakeCoupons()
	svc := NewCouponService(coupons)

	c, err := svc.Create(context.Background(), CouponInput{Code: " spring ", DiscountType: models.DiscountPercentage, DiscountValue: 25})
	require.NoError(t, err)
	require.Equal(t, "SPRING", c.Code)
	require.True(t, c.IsActive)

	_, err = svc.Create(context.Background(), CouponInput{Code: "X", DiscountType: models.DiscountPercentage, DiscountValue: 120})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(context.Background(), CouponInput{Code: "X", DiscountType: models.DiscountFixed, DiscountValue: 5, ApplicableTiers: []models.Tier{models.TierFree}})
	require.ErrorIs(t, err, apperr.ErrValidation)

	coupons.createErr = &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	_, err = svc.Create(context.Background(), CouponInput{Code: "SPRING", DiscountType: models.DiscountFixed, DiscountValue: 5})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestDeleteMissingCoupon(t *testing.T) {
	err := NewCouponService(newFakeCoupons()).Delete(context.Background(), 42)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
