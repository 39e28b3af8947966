package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/digkill/writory/internal/models"
)

type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, msg *models.ContactMessage) error {
	const query = `INSERT INTO contact_messages (name, email, subject, message) VALUES (?, ?, NULLIF(?, ''), ?)`
	res, err := r.db.ExecContext(ctx, query, msg.Name, msg.Email, msg.Subject, msg.Message)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("contact last insert id: %w", err)
	}
	msg.ID = id
	return nil
}
