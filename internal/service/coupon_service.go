package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type couponStore interface {
	GetByCode(ctx context.Context, code string) (*models.Coupon, error)
	GetByID(ctx context.Context, id int64) (*models.Coupon, error)
	HasUserRedeemed(ctx context.Context, couponID int64, userUID string) (bool, error)
	List(ctx context.Context) ([]models.Coupon, error)
	Create(ctx context.Context, c *models.Coupon) (*models.Coupon, error)
	Update(ctx context.Context, c *models.Coupon) (*models.Coupon, error)
	Delete(ctx context.Context, id int64) error
}

type CouponService struct {
	coupons couponStore
	now     func() time.Time
}

type CouponCheck struct {
	Code    string      `json:"code"`
	Tier    models.Tier `json:"tier"`
	Amount  int         `json:"amount"`
	UserUID string      `json:"userId"`
}

// CouponResult is the validation outcome. A rejected code is not an error:
// Valid is false and Error carries the reason.
type CouponResult struct {
	Valid          bool           `json:"valid"`
	DiscountAmount int            `json:"discountAmount,omitempty"`
	FinalAmount    int            `json:"finalAmount,omitempty"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
	Coupon         *models.Coupon `json:"-"`
}

type CouponInput struct {
	Code            string              `json:"code"`
	DiscountType    models.DiscountType `json:"discountType"`
	DiscountValue   int                 `json:"discountValue"`
	ValidFrom       *time.Time          `json:"validFrom"`
	ValidUntil      *time.Time          `json:"validUntil"`
	UsageLimit      *int                `json:"usageLimit"`
	ApplicableTiers []models.Tier       `json:"applicableTiers"`
	IsActive        *bool               `json:"isActive"`
}

func NewCouponService(coupons couponStore) *CouponService {
	return &CouponService{coupons: coupons, now: time.Now}
}

func rejected(reason string) CouponResult {
	return CouponResult{Valid: false, Error: reason}
}

func (s *CouponService) Validate(ctx context.Context, req CouponCheck) (CouponResult, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return rejected("Coupon code is required"), nil
	}
	if req.Tier == models.TierFree {
		return rejected("Coupons cannot be applied to the free tier"), nil
	}
	if req.Amount <= 0 {
		return rejected("Coupon requires a payable amount"), nil
	}

	c, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return CouponResult{}, fmt.Errorf("get coupon: %w", err)
	}
	if c == nil {
		return rejected("Invalid coupon code"), nil
	}
	if !c.IsActive {
		return rejected("This coupon is no longer active"), nil
	}
	now := s.now()
	if c.ValidFrom != nil && now.Before(*c.ValidFrom) {
		return rejected("This coupon is not valid yet"), nil
	}
	if c.ValidUntil != nil && now.After(*c.ValidUntil) {
		return rejected("This coupon has expired"), nil
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return rejected("This coupon has reached its usage limit"), nil
	}
	if len(c.ApplicableTiers) > 0 && !slices.Contains(c.ApplicableTiers, req.Tier) {
		return rejected("This coupon is not valid for the selected tier"), nil
	}
	if req.UserUID != "" {
		used, err := s.coupons.HasUserRedeemed(ctx, c.ID, req.UserUID)
		if err != nil {
			return CouponResult{}, fmt.Errorf("check redemption: %w", err)
		}
		if used {
			return rejected("You have already used this coupon"), nil
		}
	}

	discount, final := ApplyDiscount(c, req.Amount)
	return CouponResult{
		Valid:          true,
		DiscountAmount: discount,
		FinalAmount:    final,
		Message:        fmt.Sprintf("Coupon applied: ₹%d off", discount),
		Coupon:         c,
	}, nil
}

// ApplyDiscount never lets the final amount go below zero; the reported discount
// is capped at amount.
func ApplyDiscount(c *models.Coupon, amount int) (discount, final int) {
	switch c.DiscountType {
	case models.DiscountPercentage:
		discount = amount * c.DiscountValue / 100
	case models.DiscountFixed:
		discount = c.DiscountValue
	}
	if discount < 0 {
		discount = 0
	}
	if discount > amount {
		discount = amount
	}
	return discount, amount - discount
}

func (s *CouponService) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.List(ctx)
}

func (s *CouponService) Create(ctx context.Context, in CouponInput) (*models.Coupon, error) {
	c := &models.Coupon{IsActive: true}
	if err := applyCouponInput(c, in); err != nil {
		return nil, err
	}
	created, err := s.coupons.Create(ctx, c)
	if err != nil {
		if apperr.IsDuplicate(err) {
			return nil, fmt.Errorf("coupon %q already exists: %w", in.Code, apperr.ErrConflict)
		}
		return nil, err
	}
	return created, nil
}

func (s *CouponService) Update(ctx context.Context, id int64, in CouponInput) (*models.Coupon, error) {
	existing, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("coupon %d: %w", id, apperr.ErrNotFound)
	}
	if err := applyCouponInput(existing, in); err != nil {
		return nil, err
	}
	return s.coupons.Update(ctx, existing)
}

func (s *CouponService) Delete(ctx context.Context, id int64) error {
	existing, err := s.coupons.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("coupon %d: %w", id, apperr.ErrNotFound)
	}
	return s.coupons.Delete(ctx, id)
}

func applyCouponInput(c *models.Coupon, in CouponInput) error {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" {
		return fmt.Errorf("coupon code is required: %w", apperr.ErrValidation)
	}
	switch in.DiscountType {
	case models.DiscountPercentage:
		if in.DiscountValue <= 0 || in.DiscountValue > 100 {
			return fmt.Errorf("percentage must be between 1 and 100: %w", apperr.ErrValidation)
		}
	case models.DiscountFixed:
		if in.DiscountValue <= 0 {
			return fmt.Errorf("discount value must be positive: %w", apperr.ErrValidation)
		}
	default:
		return fmt.Errorf("discount type %q unsupported: %w", in.DiscountType, apperr.ErrValidation)
	}
	if in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
		return fmt.Errorf("validUntil is before validFrom: %w", apperr.ErrValidation)
	}
	if in.UsageLimit != nil && *in.UsageLimit < 0 {
		return fmt.Errorf("usage limit cannot be negative: %w", apperr.ErrValidation)
	}
	for _, t := range in.ApplicableTiers {
		if _, err := ResolveTier(string(t)); err != nil || t == models.TierFree {
			return fmt.Errorf("tier %q cannot carry coupons: %w", t, apperr.ErrValidation)
		}
	}

	c.Code = code
	c.DiscountType = in.DiscountType
	c.DiscountValue = in.DiscountValue
	c.ValidFrom = in.ValidFrom
	c.ValidUntil = in.ValidUntil
	c.UsageLimit = in.UsageLimit
	c.ApplicableTiers = in.ApplicableTiers
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}
