package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type fakeSettings struct {
	values map[string]map[string]string
	photos map[int64]*models.WinnerPhoto
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string]map[string]string{}, photos: map[int64]*models.WinnerPhoto{}}
}

func (f *fakeSettings) List(_ context.Context, scope string) ([]models.Setting, error) {
	var out []models.Setting
	for k, v := range f.values[scope] {
		out = append(out, models.Setting{Scope: scope, Key: k, Value: v})
	}
	return out, nil
}

func (f *fakeSettings) Put(_ context.Context, scope, key, value string) error {
	if f.values[scope] == nil {
		f.values[scope] = map[string]string{}
	}
	f.values[scope][key] = value
	return nil
}

func (f *fakeSettings) ListWinnerPhotos(context.Context, string) ([]models.WinnerPhoto, error) {
	return nil, nil
}

func (f *fakeSettings) GetWinnerPhoto(_ context.Context, id int64) (*models.WinnerPhoto, error) {
	return f.photos[id], nil
}

func (f *fakeSettings) CreateWinnerPhoto(_ context.Context, p *models.WinnerPhoto) (*models.WinnerPhoto, error) {
	p.ID = int64(len(f.photos) + 1)
	f.photos[p.ID] = p
	return p, nil
}

func (f *fakeSettings) DeleteWinnerPhoto(_ context.Context, id int64) error {
	delete(f.photos, id)
	return nil
}

func TestUpdateWinner(t *testing.T) {
	two := 2
	store := newFakeEvaluations(&models.Submission{ID: 5, IsWinner: true, WinnerPosition: &two, WinnerCategory: "Youth"})
	svc := NewAdminService(store, newFakeSettings())
	ctx := context.Background()

	bad := 4
	_, err := svc.UpdateWinner(ctx, 5, WinnerInput{IsWinner: true, WinnerPosition: &bad})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.UpdateWinner(ctx, 99, WinnerInput{IsWinner: true})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	sub, err := svc.UpdateWinner(ctx, 5, WinnerInput{IsWinner: false, WinnerPosition: &two, WinnerCategory: "Youth"})
	require.NoError(t, err)
	require.False(t, sub.IsWinner)
	require.Nil(t, sub.WinnerPosition)
	require.Empty(t, sub.WinnerCategory)
	require.Nil(t, store.byID[5].WinnerPosition)
}

func TestSettingsScopes(t *testing.T) {
	settings := newFakeSettings()
	svc := NewAdminService(newFakeEvaluations(), settings)
	ctx := context.Background()

	require.NoError(t, svc.PutSetting(ctx, ScopeContest, "theme", "Rivers"))
	values, err := svc.Settings(ctx, ScopeContest)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"theme": "Rivers"}, values)

	require.ErrorIs(t, svc.PutSetting(ctx, "global", "x", "y"), apperr.ErrValidation)
	require.ErrorIs(t, svc.PutSetting(ctx, ScopeAdmin, " ", "y"), apperr.ErrValidation)
}

func TestWinnerPhotos(t *testing.T) {
	svc := NewAdminService(newFakeEvaluations(), newFakeSettings())
	ctx := context.Background()

	_, err := svc.AddWinnerPhoto(ctx, models.WinnerPhoto{Title: "First", ImageURL: "https://cdn/w.jpg", ContestMonth: "2026-13"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	photo, err := svc.AddWinnerPhoto(ctx, models.WinnerPhoto{Title: "First", ImageURL: "https://cdn/w.jpg", ContestMonth: "2026-10", Position: 1})
	require.NoError(t, err)

	list, err := svc.WinnerPhotos(ctx, "2026-10")
	require.NoError(t, err)
	require.NotNil(t, list)

	require.NoError(t, svc.DeleteWinnerPhoto(ctx, photo.ID))
	require.ErrorIs(t, svc.DeleteWinnerPhoto(ctx, photo.ID), apperr.ErrNotFound)
}
