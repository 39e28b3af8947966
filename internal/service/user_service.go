package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, uid, name, phone, pictureURL string) error
}

type UserService struct {
	users userStore
}

func NewUserService(users userStore) *UserService {
	return &UserService{users: users}
}

type ProfileInput struct {
	UID               string `json:"uid"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	ProfilePictureURL string `json:"profilePictureUrl"`
}

// Sync records the identity-provider user on sign-in.
func (s *UserService) Sync(ctx context.Context, in ProfileInput) (*models.User, error) {
	uid := strings.TrimSpace(in.UID)
	email := strings.TrimSpace(in.Email)
	if uid == "" {
		return nil, fmt.Errorf("uid is required: %w", apperr.ErrValidation)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("a valid email is required: %w", apperr.ErrValidation)
	}
	user, err := s.users.Upsert(ctx, &models.User{
		UID:               uid,
		Email:             email,
		Name:              strings.TrimSpace(in.Name),
		Phone:             strings.TrimSpace(in.Phone),
		ProfilePictureURL: strings.TrimSpace(in.ProfilePictureURL),
	})
	if err != nil {
		if apperr.IsDuplicate(err) {
			return nil, fmt.Errorf("email belongs to another account: %w", apperr.ErrConflict)
		}
		return nil, fmt.Errorf("sync user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("email belongs to another account: %w", apperr.ErrConflict)
	}
	return user, nil
}

// Resolve maps the caller's email header to a known user.
func (s *UserService) Resolve(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("missing user identity: %w", apperr.ErrUnauthorized)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s is not registered: %w", email, apperr.ErrUnauthorized)
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, email string, in ProfileInput) (*models.User, error) {
	user, err := s.Resolve(ctx, email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", apperr.ErrValidation)
	}
	if err := s.users.UpdateProfile(ctx, user.UID, name, strings.TrimSpace(in.Phone), strings.TrimSpace(in.ProfilePictureURL)); err != nil {
		return nil, err
	}
	return s.users.FindByEmail(ctx, user.Email)
}
