package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/writory/internal/models"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) List(ctx context.Context, scope string) ([]models.Setting, error) {
	const query = `
SELECT scope, setting_key, setting_value, updated_at
FROM settings
WHERE scope = ?
ORDER BY setting_key ASC`
	rows, err := r.db.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []models.Setting
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Scope, &s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

func (r *SettingsRepository) Put(ctx context.Context, scope, key, value string) error {
	const query = `
INSERT INTO settings (scope, setting_key, setting_value)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE setting_value = VALUES(setting_value), updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, scope, key, value); err != nil {
		return fmt.Errorf("put setting: %w", err)
	}
	return nil
}

func (r *SettingsRepository) ListWinnerPhotos(ctx context.Context, month string) ([]models.WinnerPhoto, error) {
	query := `SELECT id, title, image_url, contest_month, position, created_at FROM winner_photos`
	var args []any
	if month != "" {
		query += ` WHERE contest_month = ?`
		args = append(args, month)
	}
	query += ` ORDER BY contest_month DESC, position ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list winner photos: %w", err)
	}
	defer rows.Close()

	var photos []models.WinnerPhoto
	for rows.Next() {
		var p models.WinnerPhoto
		if err := rows.Scan(&p.ID, &p.Title, &p.ImageURL, &p.ContestMonth, &p.Position, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan winner photo: %w", err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

func (r *SettingsRepository) GetWinnerPhoto(ctx context.Context, id int64) (*models.WinnerPhoto, error) {
	const query = `SELECT id, title, image_url, contest_month, position, created_at FROM winner_photos WHERE id = ?`
	var p models.WinnerPhoto
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Title, &p.ImageURL, &p.ContestMonth, &p.Position, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get winner photo: %w", err)
	}
	return &p, nil
}

func (r *SettingsRepository) CreateWinnerPhoto(ctx context.Context, photo *models.WinnerPhoto) (*models.WinnerPhoto, error) {
	const query = `INSERT INTO winner_photos (title, image_url, contest_month, position) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, photo.Title, photo.ImageURL, photo.ContestMonth, photo.Position)
	if err != nil {
		return nil, fmt.Errorf("create winner photo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("winner photo last insert id: %w", err)
	}
	return r.GetWinnerPhoto(ctx, id)
}

func (r *SettingsRepository) DeleteWinnerPhoto(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM winner_photos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete winner photo: %w", err)
	}
	return nil
}
