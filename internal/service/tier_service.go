package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type TierInfo struct {
	Tier      models.Tier `json:"tier"`
	PoemCount int         `json:"poemCount"`
	Price     int         `json:"price"`
}

var tierOrder = []TierInfo{
	{Tier: models.TierFree, PoemCount: 1, Price: 0},
	{Tier: models.TierSingle, PoemCount: 1, Price: 50},
	{Tier: models.TierDouble, PoemCount: 2, Price: 90},
	{Tier: models.TierBulk, PoemCount: 5, Price: 230},
}

// Tiers returns the pricing table, cheapest first. Prices are whole rupees.
func Tiers() []TierInfo {
	out := make([]TierInfo, len(tierOrder))
	copy(out, tierOrder)
	return out
}

func ResolveTier(tier string) (TierInfo, error) {
	t := models.Tier(strings.ToLower(strings.TrimSpace(tier)))
	for _, info := range tierOrder {
		if info.Tier == t {
			return info, nil
		}
	}
	return TierInfo{}, fmt.Errorf("tier %q unavailable: %w", tier, apperr.ErrValidation)
}

type freeTierStore interface {
	Used(ctx context.Context, usageKey string) (bool, error)
}

type FreeTierStatus struct {
	Allowed  bool   `json:"allowed"`
	UsageKey string `json:"usageKey"`
	Month    string `json:"month"`
	Message  string `json:"message,omitempty"`
}

// TierService owns the contest calendar: months are cut in the contest timezone.
type TierService struct {
	usage freeTierStore
	loc   *time.Location
	now   func() time.Time
}

func NewTierService(usage freeTierStore, loc *time.Location) *TierService {
	if loc == nil {
		loc = time.UTC
	}
	return &TierService{usage: usage, loc: loc, now: time.Now}
}

func (s *TierService) Location() *time.Location {
	return s.loc
}

func (s *TierService) ContestMonth(at time.Time) string {
	return at.In(s.loc).Format("2006-01")
}

func (s *TierService) CurrentMonth() string {
	return s.ContestMonth(s.now())
}

func (s *TierService) FreeTierKey(userUID string, at time.Time) string {
	return userUID + "-" + s.ContestMonth(at)
}

func (s *TierService) CheckFreeTier(ctx context.Context, userUID string) (FreeTierStatus, error) {
	if userUID == "" {
		return FreeTierStatus{}, fmt.Errorf("user id is required: %w", apperr.ErrValidation)
	}
	now := s.now()
	status := FreeTierStatus{
		UsageKey: s.FreeTierKey(userUID, now),
		Month:    s.ContestMonth(now),
	}
	used, err := s.usage.Used(ctx, status.UsageKey)
	if err != nil {
		return FreeTierStatus{}, fmt.Errorf("check free tier: %w", err)
	}
	status.Allowed = !used
	if used {
		status.Message = "You have already used your free submission this month."
	}
	return status, nil
}
