package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/repository"
)

func seededEvaluations() *fakeEvaluations {
	return newFakeEvaluations(
		&models.Submission{ID: 11, Email: "asha@example.com", PoemTitle: "Monsoon Letters", PoemFileURL: "https://cdn/p1.pdf", PhotoURL: "https://cdn/a.jpg"},
		&models.Submission{ID: 12, Email: "ravi@example.com", PoemTitle: "Dawn"},
	)
}

func TestImportMatchesByEmailAndTitle(t *testing.T) {
	store := seededEvaluations()
	csvData := "Email,Poem Title,Score,Type,Originality,Emotion,Structure,Language,Theme,Status,Winner\n" +
		" ASHA@example.com , monsoon letters ,87.6,Free Verse,18,17,16,18,18,Reviewed,1\n" +
		"nobody@example.com,Ghost,50,,,,,,,,\n" +
		",,,,,,,,,,\n" +
		"ravi@example.com,Dawn,abc,,,,,,,,\n"

	res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Equal(t, 1, res.SuccessCount)
	require.Equal(t, 2, res.ErrorCount)

	require.Equal(t, 3, res.Errors[0].Row)
	require.Equal(t, "no submission matches this row", res.Errors[0].Message)
	require.Equal(t, 5, res.Errors[1].Row)
	require.Contains(t, res.Errors[1].Message, "score")

	applied := store.applied[11]
	require.Equal(t, 88, *applied.Score)
	require.Equal(t, "Free Verse", applied.Type)
	require.Equal(t, "Reviewed", applied.Status)
	require.Equal(t, &models.ScoreBreakdown{Originality: 18, Emotion: 17, Structure: 16, Language: 18, Theme: 18}, applied.Breakdown)
	require.True(t, applied.IsWinner)
	require.Equal(t, 1, *applied.WinnerPosition)
	require.NotContains(t, store.applied, int64(12))

	require.Equal(t, "https://cdn/p1.pdf", res.Updated[0].PoemFileURL)
}

func TestImportPrefersIDColumn(t *testing.T) {
	store := seededEvaluations()
	csvData := "id,email,poemtitle,score,status,winner\n" +
		"12,someone-else@example.com,Renamed,70,,yes\n"

	res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.True(t, store.applied[12].IsWinner)
	require.Nil(t, store.applied[12].WinnerPosition)
	require.Nil(t, store.applied[12].Breakdown)
	require.Equal(t, models.SubmissionStatusPending, res.Updated[0].Status)
}

func TestImportReportsBadWinner(t *testing.T) {
	store := seededEvaluations()
	csvData := "email,poemtitle,winner\nravi@example.com,Dawn,fourth\n"

	res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, res.ErrorCount)
	require.Empty(t, store.applied)
}

func TestImportStripsByteOrderMark(t *testing.T) {
	store := seededEvaluations()
	csvData := "\ufeffEmail,Poem Title,Score\nasha@example.com,Monsoon Letters,90\n"

	res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, res.SuccessCount)
	require.Equal(t, 90, *store.applied[11].Score)
}

func TestImportRejectsOutOfRangeMarks(t *testing.T) {
	tests := []struct {
		name, row string
	}{
		{"nan score", "asha@example.com,Monsoon Letters,NaN,"},
		{"infinite score", "asha@example.com,Monsoon Letters,+Inf,"},
		{"huge score", "asha@example.com,Monsoon Letters,1e300,"},
		{"negative score", "asha@example.com,Monsoon Letters,-3,"},
		{"score above max", "asha@example.com,Monsoon Letters,101,"},
		{"bad criterion", "asha@example.com,Monsoon Letters,80,Inf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededEvaluations()
			csvData := "email,poemtitle,score,originality\n" + tt.row + "\n"

			res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
			require.NoError(t, err)
			require.Equal(t, 0, res.SuccessCount)
			require.Equal(t, 1, res.ErrorCount)
			require.Empty(t, store.applied)
		})
	}
}

func TestImportKeepsGoingAfterStoreFailure(t *testing.T) {
	store := newFakeEvaluations(
		&models.Submission{ID: 11, Email: "asha@example.com", PoemTitle: "Monsoon Letters"},
		&models.Submission{ID: 12, Email: "ravi@example.com", PoemTitle: "Dawn"},
		&models.Submission{ID: 13, Email: "mira@example.com", PoemTitle: "Salt"},
	)
	store.updateErr = map[int64]error{12: errors.New("db down")}
	csvData := "email,poemtitle,score\n" +
		"asha@example.com,Monsoon Letters,70\n" +
		"ravi@example.com,Dawn,80\n" +
		"mira@example.com,Salt,90\n"

	res, err := NewReconcileService(store).Import(context.Background(), strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Equal(t, 2, res.SuccessCount)
	require.Equal(t, 1, res.ErrorCount)
	require.Equal(t, 3, res.Errors[0].Row)
	require.Contains(t, res.Errors[0].Message, "db down")
	require.Equal(t, int64(11), res.Updated[0].ID)
	require.Equal(t, int64(13), res.Updated[1].ID)
	require.Contains(t, store.applied, int64(13))
}

func TestImportRejectsUnusableHeader(t *testing.T) {
	_, err := NewReconcileService(seededEvaluations()).Import(context.Background(), strings.NewReader("email,score\n"))
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = NewReconcileService(seededEvaluations()).Import(context.Background(), strings.NewReader(""))
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestParseWinner(t *testing.T) {
	tests := []struct {
		raw      string
		winner   bool
		position int
	}{
		{"1", true, 1},
		{" 3 ", true, 3},
		{"Winner", true, 0},
		{"y", true, 0},
		{"", false, 0},
		{"0", false, 0},
		{"NO", false, 0},
	}
	for _, tt := range tests {
		winner, position, err := ParseWinner(tt.raw)
		require.NoError(t, err, tt.raw)
		require.Equal(t, tt.winner, winner, tt.raw)
		if tt.position == 0 {
			require.Nil(t, position, tt.raw)
		} else {
			require.Equal(t, tt.position, *position, tt.raw)
		}
	}

	_, _, err := ParseWinner("4")
	require.Error(t, err)
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	score, pos := 91, 2
	store := seededEvaluations()
	store.list = []models.Submission{
		{ID: 11, Email: "asha@example.com", PoemTitle: "Monsoon Letters", Score: &score, Status: "Reviewed",
			ScoreBreakdown: &models.ScoreBreakdown{Originality: 19, Emotion: 18, Structure: 18, Language: 18, Theme: 18},
			IsWinner: true, WinnerPosition: &pos},
		{ID: 12, Email: "ravi@example.com", PoemTitle: "Dawn", Status: "Pending"},
	}
	svc := NewReconcileService(store)

	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), &buf, repository.SubmissionFilter{}))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Equal(t, []string{"id", "email", "poemtitle", "score", "type", "originality", "emotion", "structure", "language", "theme", "status", "winner"}, records[0])
	require.Equal(t, []string{"11", "asha@example.com", "Monsoon Letters", "91", "", "19", "18", "18", "18", "18", "Reviewed", "2"}, records[1])
	require.Equal(t, []string{"12", "ravi@example.com", "Dawn", "", "", "", "", "", "", "", "Pending", "false"}, records[2])

	res, err := svc.Import(context.Background(), bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 2, res.SuccessCount)
	require.Equal(t, 2, *store.applied[11].WinnerPosition)
}
