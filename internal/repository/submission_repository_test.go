package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
)

func newMock(t *testing.T) (*SubmissionRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSubmissionRepository(db), mock
}

func groupOf(n int) SubmissionGroup {
	var subs []*models.Submission
	for i := 1; i <= n; i++ {
		subs = append(subs, &models.Submission{
			SubmissionUUID: "8a4c1c1e-0f57-4a39-9b8e-3c1f4c0d2a11",
			UserUID:        "uid-1",
			Name:           "Asha",
			Email:          "asha@example.com",
			PoemTitle:      "Monsoon",
			PoemIndex:      i,
			TotalPoems:     n,
			Tier:           models.TierDouble,
			Price:          70,
			PaymentID:      "pi_123",
			PaymentMethod:  models.PaymentStripe,
			ContestMonth:   "2026-10",
		})
	}
	return SubmissionGroup{
		Submissions: subs,
		Payment: &models.Payment{
			Provider:       models.PaymentStripe,
			Reference:      "pi_123",
			SubmissionUUID: subs[0].SubmissionUUID,
			Amount:         70,
			Currency:       "inr",
			Status:         "succeeded",
		},
		Outbox: &models.OutboxEntry{Topic: "sheet_mirror", AggregateID: subs[0].SubmissionUUID, Payload: []byte(`[]`)},
	}
}

func TestCreateGroupWritesEverythingInOneTransaction(t *testing.T) {
	repo, mock := newMock(t)
	group := groupOf(2)
	group.CouponID = 4

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT used_count, usage_limit, is_active FROM coupons WHERE id = ? FOR UPDATE")).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"used_count", "usage_limit", "is_active"}).AddRow(1, 10, true))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO coupon_redemptions")).
		WithArgs(int64(4), "uid-1", group.Submissions[0].SubmissionUUID).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE coupons SET used_count = used_count + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox")).WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectCommit()

	ids, outboxID, err := repo.CreateGroup(context.Background(), group)
	require.NoError(t, err)
	require.Equal(t, []int64{11, 12}, ids)
	require.Equal(t, int64(9), outboxID)
	require.Equal(t, int64(12), group.Submissions[1].ID)
	require.Equal(t, int64(3), group.Payment.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupRejectsExhaustedCoupon(t *testing.T) {
	repo, mock := newMock(t)
	group := groupOf(1)
	group.CouponID = 4

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM coupons WHERE id = ? FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"used_count", "usage_limit", "is_active"}).AddRow(5, 5, true))
	mock.ExpectRollback()

	_, _, err := repo.CreateGroup(context.Background(), group)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupRejectsSecondFreeEntryInMonth(t *testing.T) {
	repo, mock := newMock(t)
	group := groupOf(1)
	group.FreeTierKey = "uid-1-2026-10"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO free_tier_usage")).
		WithArgs("uid-1-2026-10", group.Submissions[0].SubmissionUUID).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, _, err := repo.CreateGroup(context.Background(), group)
	require.ErrorIs(t, err, apperr.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateGroupRollsBackOnInsertFailure(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := repo.CreateGroup(context.Background(), groupOf(1))
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

var submissionRowColumns = []string{
	"id", "submission_uuid", "user_uid", "name", "email", "phone", "age", "poem_title", "poem_index", "total_poems",
	"tier", "price", "discount_amount", "coupon_code", "payment_id", "payment_method", "poem_file_url",
	"photo_url", "contest_month", "score", "type", "status", "score_breakdown", "is_winner", "winner_position",
	"winner_category", "created_at", "updated_at",
}

func TestFindByEmailTitleNormalizesKeys(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE LOWER(TRIM(email)) = ? AND LOWER(TRIM(poem_title)) = ?")).
		WithArgs("asha@example.com", "monsoon").
		WillReturnRows(sqlmock.NewRows(submissionRowColumns).AddRow(
			7, "u-1", "uid-1", "Asha", "Asha@Example.com", "", 21, "Monsoon", 1, 1,
			"single", 50, 0, "", "pi_1", "stripe", "https://cdn/p.pdf",
			"https://cdn/p.jpg", "2026-10", 88, "Free verse", "Reviewed", `{"originality":9,"emotion":8,"structure":7,"language":9,"theme":8}`, true, 1,
			"", now, now,
		))

	s, err := repo.FindByEmailTitle(context.Background(), "  Asha@Example.com ", "MONSOON ")
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, int64(7), s.ID)
	require.Equal(t, 88, *s.Score)
	require.Equal(t, 1, *s.WinnerPosition)
	require.Equal(t, 9, s.ScoreBreakdown.Originality)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByEmailTitleMissing(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("FROM submissions").WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	s, err := repo.FindByEmailTitle(context.Background(), "nobody@example.com", "Nothing")
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestListBuildsFilter(t *testing.T) {
	repo, mock := newMock(t)
	winner := true

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ? AND contest_month = ? AND is_winner = ?")).
		WithArgs("Reviewed", "2026-10", true).
		WillReturnRows(sqlmock.NewRows(submissionRowColumns))

	list, err := repo.List(context.Background(), SubmissionFilter{Status: "Reviewed", Month: "2026-10", Winner: &winner})
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}
