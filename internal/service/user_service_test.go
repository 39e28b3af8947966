package service

import (
	"context"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

type fakeUsers struct {
	byEmail   map[string]*models.User
	upsertErr error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeUsers) Upsert(_ context.Context, u *models.User) (*models.User, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.byEmail[u.Email] = u
	return u, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, uid, name, phone, picture string) error {
	for _, u := range f.byEmail {
		if u.UID == uid {
			u.Name, u.Phone, u.ProfilePictureURL = name, phone, picture
		}
	}
	return nil
}

func TestUserSyncAndResolve(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*models.User{}}
	svc := NewUserService(users)
	ctx := context.Background()

	_, err := svc.Sync(ctx, ProfileInput{UID: "uid-1", Email: "nope"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	u, err := svc.Sync(ctx, ProfileInput{UID: "uid-1", Email: "asha@example.com", Name: " Asha "})
	require.NoError(t, err)
	require.Equal(t, "Asha", u.Name)

	_, err = svc.Resolve(ctx, "")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Resolve(ctx, "ghost@example.com")
	require.ErrorIs(t, err, apperr.ErrUnauthorized)

	u, err = svc.UpdateProfile(ctx, "asha@example.com", ProfileInput{Name: "Asha Rao", Phone: "123"})
	require.NoError(t, err)
	require.Equal(t, "Asha Rao", u.Name)
	require.Equal(t, "123", u.Phone)

	users.upsertErr = &mysql.MySQLError{Number: 1062}
	_, err = svc.Sync(ctx, ProfileInput{UID: "uid-2", Email: "asha@example.com"})
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestContactSubmitNotifies(t *testing.T) {
	notifier := &fakeNotifier{}
	store := &fakeContacts{}
	svc := NewContactService(store, notifier)

	_, err := svc.Submit(context.Background(), models.ContactMessage{Name: "Ravi", Email: "bad", Message: "hi"})
	require.ErrorIs(t, err, apperr.ErrValidation)
	require.Empty(t, notifier.contacts)

	msg, err := svc.Submit(context.Background(), models.ContactMessage{Name: "Ravi", Email: "ravi@example.com", Subject: "Fees", Message: " Is bulk open? "})
	require.NoError(t, err)
	require.Equal(t, "Is bulk open?", msg.Message)
	require.Len(t, store.saved, 1)
	require.Len(t, notifier.contacts, 1)
}

type fakeContacts struct {
	saved []*models.ContactMessage
}

func (f *fakeContacts) Create(_ context.Context, msg *models.ContactMessage) error {
	msg.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, msg)
	return nil
}
