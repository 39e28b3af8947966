package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type winnerStore interface {
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	UpdateWinner(ctx context.Context, id int64, isWinner bool, position *int, category string) error
}

type settingsStore interface {
	List(ctx context.Context, scope string) ([]models.Setting, error)
	Put(ctx context.Context, scope, key, value string) error
	ListWinnerPhotos(ctx context.Context, month string) ([]models.WinnerPhoto, error)
	GetWinnerPhoto(ctx context.Context, id int64) (*models.WinnerPhoto, error)
	CreateWinnerPhoto(ctx context.Context, photo *models.WinnerPhoto) (*models.WinnerPhoto, error)
	DeleteWinnerPhoto(ctx context.Context, id int64) error
}

const (
	ScopeContest = "contest"
	ScopeAdmin   = "admin"
)

var monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// AdminService backs the console: manual winner edits, contest settings and
// the winners gallery.
type AdminService struct {
	submissions winnerStore
	settings    settingsStore
}

func NewAdminService(submissions winnerStore, settings settingsStore) *AdminService {
	return &AdminService{submissions: submissions, settings: settings}
}

type WinnerInput struct {
	IsWinner       bool   `json:"isWinner"`
	WinnerPosition *int   `json:"winnerPosition"`
	WinnerCategory string `json:"winnerCategory"`
}

func (s *AdminService) UpdateWinner(ctx context.Context, id int64, in WinnerInput) (*models.Submission, error) {
	if in.WinnerPosition != nil && (*in.WinnerPosition < 1 || *in.WinnerPosition > 3) {
		return nil, fmt.Errorf("winner position must be 1, 2 or 3: %w", apperr.ErrValidation)
	}
	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, fmt.Errorf("submission %d: %w", id, apperr.ErrNotFound)
	}

	position, category := in.WinnerPosition, strings.TrimSpace(in.WinnerCategory)
	if !in.IsWinner {
		position, category = nil, ""
	}
	if err := s.submissions.UpdateWinner(ctx, id, in.IsWinner, position, category); err != nil {
		return nil, err
	}
	sub.IsWinner, sub.WinnerPosition, sub.WinnerCategory = in.IsWinner, position, category
	return sub, nil
}

func validScope(scope string) error {
	if scope != ScopeContest && scope != ScopeAdmin {
		return fmt.Errorf("settings scope %q unsupported: %w", scope, apperr.ErrValidation)
	}
	return nil
}

// Settings returns the scope as a key/value map.
func (s *AdminService) Settings(ctx context.Context, scope string) (map[string]string, error) {
	if err := validScope(scope); err != nil {
		return nil, err
	}
	list, err := s.settings.List(ctx, scope)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(list))
	for _, st := range list {
		out[st.Key] = st.Value
	}
	return out, nil
}

func (s *AdminService) PutSetting(ctx context.Context, scope, key, value string) error {
	if err := validScope(scope); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is required: %w", apperr.ErrValidation)
	}
	return s.settings.Put(ctx, scope, key, value)
}

func (s *AdminService) WinnerPhotos(ctx context.Context, month string) ([]models.WinnerPhoto, error) {
	if month != "" && !monthPattern.MatchString(month) {
		return nil, fmt.Errorf("month must look like 2026-10: %w", apperr.ErrValidation)
	}
	photos, err := s.settings.ListWinnerPhotos(ctx, month)
	if err != nil {
		return nil, err
	}
	if photos == nil {
		photos = []models.WinnerPhoto{}
	}
	return photos, nil
}

func (s *AdminService) AddWinnerPhoto(ctx context.Context, photo models.WinnerPhoto) (*models.WinnerPhoto, error) {
	photo.Title = strings.TrimSpace(photo.Title)
	photo.ImageURL = strings.TrimSpace(photo.ImageURL)
	if photo.Title == "" || photo.ImageURL == "" {
		return nil, fmt.Errorf("title and imageUrl are required: %w", apperr.ErrValidation)
	}
	if !monthPattern.MatchString(photo.ContestMonth) {
		return nil, fmt.Errorf("contestMonth must look like 2026-10: %w", apperr.ErrValidation)
	}
	if photo.Position < 0 {
		return nil, fmt.Errorf("position cannot be negative: %w", apperr.ErrValidation)
	}
	return s.settings.CreateWinnerPhoto(ctx, &photo)
}

func (s *AdminService) DeleteWinnerPhoto(ctx context.Context, id int64) error {
	photo, err := s.settings.GetWinnerPhoto(ctx, id)
	if err != nil {
		return err
	}
	if photo == nil {
		return fmt.Errorf("winner photo %d: %w", id, apperr.ErrNotFound)
	}
	return s.settings.DeleteWinnerPhoto(ctx, id)
}
