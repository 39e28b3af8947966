package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/writory/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, uid, email, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(profile_picture_url, ''), created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.UID, &u.Email, &u.Name, &u.Phone, &u.ProfilePictureURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) FindByUID(ctx context.Context, uid string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user by email: %w", err)
	}
	return u, nil
}

// Upsert creates the user on first sign-in and refreshes the profile afterwards.
// Empty profile fields never overwrite stored values.
func (r *UserRepository) Upsert(ctx context.Context, user *models.User) (*models.User, error) {
	const query = `
INSERT INTO users (uid, email, name, phone, profile_picture_url)
VALUES (?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''))
ON DUPLICATE KEY UPDATE
    email = VALUES(email),
    name = COALESCE(VALUES(name), name),
    phone = COALESCE(VALUES(phone), phone),
    profile_picture_url = COALESCE(VALUES(profile_picture_url), profile_picture_url),
    updated_at = NOW()`
	if _, err := r.db.ExecContext(ctx, query, user.UID, user.Email, user.Name, user.Phone, user.ProfilePictureURL); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return r.FindByUID(ctx, user.UID)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, uid, name, phone, pictureURL string) error {
	const query = `
UPDATE users SET name = NULLIF(?, ''), phone = NULLIF(?, ''), profile_picture_url = NULLIF(?, ''), updated_at = NOW()
WHERE uid = ?`
	if _, err := r.db.ExecContext(ctx, query, name, phone, pictureURL, uid); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
