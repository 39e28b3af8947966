package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type contactStore interface {
	Create(ctx context.Context, msg *models.ContactMessage) error
}

type contactNotifier interface {
	ContactMessage(msg *models.ContactMessage)
}

type ContactService struct {
	messages contactStore
	notifier contactNotifier
}

func NewContactService(messages contactStore, notifier contactNotifier) *ContactService {
	return &ContactService{messages: messages, notifier: notifier}
}

func (s *ContactService) Submit(ctx context.Context, msg models.ContactMessage) (*models.ContactMessage, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)
	if msg.Name == "" || msg.Message == "" {
		return nil, fmt.Errorf("name and message are required: %w", apperr.ErrValidation)
	}
	if _, err := mail.ParseAddress(msg.Email); err != nil {
		return nil, fmt.Errorf("a valid email is required: %w", apperr.ErrValidation)
	}
	if err := s.messages.Create(ctx, &msg); err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ContactMessage(&msg)
	}
	return &msg, nil
}
