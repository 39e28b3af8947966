package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type WallRepository struct {
	db *sql.DB
}

func NewWallRepository(db *sql.DB) *WallRepository {
	return &WallRepository{db: db}
}

const wallColumns = `id, author_uid, author_name, author_email, title, content, status, likes, liked_by, created_at, updated_at`

func scanWallPost(row scanner) (*models.WallPost, error) {
	var (
		p       models.WallPost
		likedBy sql.NullString
	)
	if err := row.Scan(&p.ID, &p.AuthorUID, &p.AuthorName, &p.AuthorEmail, &p.Title, &p.Content, &p.Status, &p.Likes, &likedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	set, err := decodeLikedBy(likedBy)
	if err != nil {
		return nil, err
	}
	p.LikedBy = set
	return &p, nil
}

func decodeLikedBy(raw sql.NullString) ([]string, error) {
	set := []string{}
	if !raw.Valid || raw.String == "" {
		return set, nil
	}
	if err := json.Unmarshal([]byte(raw.String), &set); err != nil {
		return nil, fmt.Errorf("decode liked_by: %w", err)
	}
	if set == nil {
		set = []string{}
	}
	return set, nil
}

func (r *WallRepository) Create(ctx context.Context, post *models.WallPost) (*models.WallPost, error) {
	const query = `
INSERT INTO wall_posts (author_uid, author_name, author_email, title, content, status, likes, liked_by)
VALUES (?, ?, ?, ?, ?, ?, 0, '[]')`
	res, err := r.db.ExecContext(ctx, query, post.AuthorUID, post.AuthorName, post.AuthorEmail, post.Title, post.Content, post.Status)
	if err != nil {
		return nil, fmt.Errorf("create wall post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("wall post last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *WallRepository) GetByID(ctx context.Context, id int64) (*models.WallPost, error) {
	p, err := scanWallPost(r.db.QueryRowContext(ctx, `SELECT `+wallColumns+` FROM wall_posts WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get wall post: %w", err)
	}
	return p, nil
}

// List returns posts newest first. An empty status lists every post.
func (r *WallRepository) List(ctx context.Context, status models.WallStatus, limit, offset int) ([]models.WallPost, error) {
	query := `SELECT ` + wallColumns + ` FROM wall_posts`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)
	return r.query(ctx, query, args...)
}

func (r *WallRepository) ListByAuthor(ctx context.Context, authorUID string) ([]models.WallPost, error) {
	return r.query(ctx, `SELECT `+wallColumns+` FROM wall_posts WHERE author_uid = ? ORDER BY created_at DESC, id DESC`, authorUID)
}

func (r *WallRepository) query(ctx context.Context, query string, args ...any) ([]models.WallPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list wall posts: %w", err)
	}
	defer rows.Close()

	posts := []models.WallPost{}
	for rows.Next() {
		p, err := scanWallPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wall post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// Delete removes a post owned by authorUID and reports whether a row was removed.
func (r *WallRepository) Delete(ctx context.Context, id int64, authorUID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wall_posts WHERE id = ? AND author_uid = ?`, id, authorUID)
	if err != nil {
		return false, fmt.Errorf("delete wall post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("wall post rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *WallRepository) UpdateStatus(ctx context.Context, id int64, status models.WallStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE wall_posts SET status = ?, updated_at = NOW() WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update wall post status: %w", err)
	}
	return nil
}

// SetLike adds or removes uid from the post's liked_by set under a row lock.
// Repeating the same operation leaves the row unchanged.
func (r *WallRepository) SetLike(ctx context.Context, id int64, uid string, like bool) (*models.WallPost, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		status models.WallStatus
		raw    sql.NullString
	)
	row := tx.QueryRowContext(ctx, `SELECT status, liked_by FROM wall_posts WHERE id = ? FOR UPDATE`, id)
	if err := row.Scan(&status, &raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("wall post %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("lock wall post: %w", err)
	}
	if status != models.WallApproved {
		return nil, fmt.Errorf("only approved posts can be liked: %w", apperr.ErrValidation)
	}

	set, err := decodeLikedBy(raw)
	if err != nil {
		return nil, err
	}
	next, changed := toggleMember(set, uid, like)
	if changed {
		encoded, err := jsonArray(next)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE wall_posts SET likes = ?, liked_by = ? WHERE id = ?`, len(next), encoded, id); err != nil {
			return nil, fmt.Errorf("update wall likes: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit like tx: %w", err)
	}
	return r.GetByID(ctx, id)
}

func toggleMember(set []string, uid string, add bool) ([]string, bool) {
	for i, v := range set {
		if v == uid {
			if add {
				return set, false
			}
			out := append([]string{}, set[:i]...)
			return append(out, set[i+1:]...), true
		}
	}
	if !add {
		return set, false
	}
	return append(set, uid), true
}
