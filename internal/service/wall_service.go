package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

const (
	maxWallTitle   = 120
	maxWallContent = 2000
	maxPageSize    = 100
)

type wallStore interface {
	Create(ctx context.Context, post *models.WallPost) (*models.WallPost, error)
	GetByID(ctx context.Context, id int64) (*models.WallPost, error)
	List(ctx context.Context, status models.WallStatus, limit, offset int) ([]models.WallPost, error)
	ListByAuthor(ctx context.Context, authorUID string) ([]models.WallPost, error)
	Delete(ctx context.Context, id int64, authorUID string) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.WallStatus) error
	SetLike(ctx context.Context, id int64, uid string, like bool) (*models.WallPost, error)
}

type WallService struct {
	posts wallStore
}

func NewWallService(posts wallStore) *WallService {
	return &WallService{posts: posts}
}

type WallPostInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Create files a post for moderation; it is hidden until approved.
func (s *WallService) Create(ctx context.Context, author *models.User, in WallPostInput) (*models.WallPost, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("title and content are required: %w", apperr.ErrValidation)
	}
	if utf8.RuneCountInString(title) > maxWallTitle {
		return nil, fmt.Errorf("title is longer than %d characters: %w", maxWallTitle, apperr.ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxWallContent {
		return nil, fmt.Errorf("content is longer than %d characters: %w", maxWallContent, apperr.ErrValidation)
	}
	name := author.Name
	if name == "" {
		name = strings.Split(author.Email, "@")[0]
	}
	return s.posts.Create(ctx, &models.WallPost{
		AuthorUID:   author.UID,
		AuthorName:  name,
		AuthorEmail: author.Email,
		Title:       title,
		Content:     content,
		Status:      models.WallPending,
	})
}

// Approved pages through the public feed; page is 1-based.
func (s *WallService) Approved(ctx context.Context, page, pageSize int) ([]models.WallPost, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return s.posts.List(ctx, models.WallApproved, pageSize, (page-1)*pageSize)
}

func (s *WallService) Mine(ctx context.Context, authorUID string) ([]models.WallPost, error) {
	return s.posts.ListByAuthor(ctx, authorUID)
}

func (s *WallService) Delete(ctx context.Context, id int64, authorUID string) error {
	deleted, err := s.posts.Delete(ctx, id, authorUID)
	if err != nil {
		return err
	}
	if deleted {
		return nil
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return fmt.Errorf("wall post %d: %w", id, apperr.ErrNotFound)
	}
	return fmt.Errorf("only the author can delete this post: %w", apperr.ErrForbidden)
}

func (s *WallService) Like(ctx context.Context, id int64, uid string) (*models.WallPost, error) {
	return s.posts.SetLike(ctx, id, uid, true)
}

func (s *WallService) Unlike(ctx context.Context, id int64, uid string) (*models.WallPost, error) {
	return s.posts.SetLike(ctx, id, uid, false)
}

// List is the moderation view; an empty status lists everything.
func (s *WallService) List(ctx context.Context, status models.WallStatus) ([]models.WallPost, error) {
	if status != "" && !validWallStatus(status) {
		return nil, fmt.Errorf("status %q unsupported: %w", status, apperr.ErrValidation)
	}
	return s.posts.List(ctx, status, 500, 0)
}

func (s *WallService) SetStatus(ctx context.Context, id int64, status models.WallStatus) (*models.WallPost, error) {
	if !validWallStatus(status) {
		return nil, fmt.Errorf("status %q unsupported: %w", status, apperr.ErrValidation)
	}
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("wall post %d: %w", id, apperr.ErrNotFound)
	}
	if err := s.posts.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	post.Status = status
	return post, nil
}

func validWallStatus(s models.WallStatus) bool {
	switch s {
	case models.WallPending, models.WallApproved, models.WallRejected:
		return true
	}
	return false
}
