package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/digkill/writory/internal/apperr"
	"github.com/digkill/writory/internal/models"
	"github.com/digkill/writory/internal/repository"
)

type evaluationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Submission, error)
	FindByEmailTitle(ctx context.Context, email, title string) (*models.Submission, error)
	UpdateEvaluation(ctx context.Context, id int64, e repository.Evaluation) error
	List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, error)
}

var scoreColumns = []string{"email", "poemtitle", "score", "type", "originality", "emotion", "structure", "language", "theme", "status", "winner"}

type RowError struct {
	Row       int    `json:"row"`
	Email     string `json:"email"`
	PoemTitle string `json:"poemTitle"`
	Message   string `json:"message"`
}

type UpdatedSubmission struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	PoemTitle      string `json:"poemTitle"`
	Score          *int   `json:"score"`
	Status         string `json:"status"`
	IsWinner       bool   `json:"isWinner"`
	WinnerPosition *int   `json:"winnerPosition"`
	PoemFileURL    string `json:"poemFileUrl"`
	PhotoURL       string `json:"photoUrl"`
}

type ReconcileResult struct {
	Total        int                 `json:"total"`
	SuccessCount int                 `json:"successCount"`
	ErrorCount   int                 `json:"errorCount"`
	Errors       []RowError          `json:"errors"`
	Updated      []UpdatedSubmission `json:"updated"`
}

// ReconcileService applies judges' score sheets to recorded submissions.
type ReconcileService struct {
	store evaluationStore
}

func NewReconcileService(store evaluationStore) *ReconcileService {
	return &ReconcileService{store: store}
}

// normalizeHeader folds "Poem Title", "poem_title" and "POEMTITLE" to one key.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

// Import matches each row by the id column when present, otherwise by email and
// poem title. Unmatched, malformed or unsaved rows are reported as row errors and
// the import carries on; rows already applied stay applied.
func (s *ReconcileService) Import(ctx context.Context, r io.Reader) (*ReconcileResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv file is empty: %w", apperr.ErrValidation)
		}
		return nil, fmt.Errorf("read csv header: %v: %w", err, apperr.ErrValidation)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}
	_, hasID := cols["id"]
	_, hasEmail := cols["email"]
	_, hasTitle := cols["poemtitle"]
	if !hasID && (!hasEmail || !hasTitle) {
		return nil, fmt.Errorf("csv needs an id column or both email and poemtitle columns: %w", apperr.ErrValidation)
	}

	result := &ReconcileResult{Errors: []RowError{}, Updated: []UpdatedSubmission{}}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			result.Total++
			result.Errors = append(result.Errors, RowError{Row: line, Message: fmt.Sprintf("malformed csv row: %v", err)})
			continue
		}
		if blank(record) {
			continue
		}
		result.Total++

		field := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}
		rowErr := RowError{Row: line, Email: field("email"), PoemTitle: field("poemtitle")}

		eval, err := parseEvaluation(field)
		if err != nil {
			rowErr.Message = err.Error()
			result.Errors = append(result.Errors, rowErr)
			continue
		}

		sub, err := s.match(ctx, field("id"), rowErr.Email, rowErr.PoemTitle)
		if err != nil {
			rowErr.Message = err.Error()
			result.Errors = append(result.Errors, rowErr)
			continue
		}
		if sub == nil {
			rowErr.Message = "no submission matches this row"
			result.Errors = append(result.Errors, rowErr)
			continue
		}

		if err := s.store.UpdateEvaluation(ctx, sub.ID, eval); err != nil {
			rowErr.Message = fmt.Sprintf("save evaluation: %v", err)
			result.Errors = append(result.Errors, rowErr)
			continue
		}
		result.Updated = append(result.Updated, UpdatedSubmission{
			ID:             sub.ID,
			Email:          sub.Email,
			PoemTitle:      sub.PoemTitle,
			Score:          eval.Score,
			Status:         evalStatus(eval),
			IsWinner:       eval.IsWinner,
			WinnerPosition: eval.WinnerPosition,
			PoemFileURL:    sub.PoemFileURL,
			PhotoURL:       sub.PhotoURL,
		})
	}

	result.SuccessCount = len(result.Updated)
	result.ErrorCount = len(result.Errors)
	return result, nil
}

func (s *ReconcileService) match(ctx context.Context, rawID, email, title string) (*models.Submission, error) {
	if rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			return nil, nil
		}
		return s.store.GetByID(ctx, id)
	}
	if email == "" || title == "" {
		return nil, nil
	}
	return s.store.FindByEmailTitle(ctx, email, title)
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func evalStatus(e repository.Evaluation) string {
	if e.Status == "" {
		return models.SubmissionStatusPending
	}
	return e.Status
}

func parseEvaluation(field func(string) string) (repository.Evaluation, error) {
	var e repository.Evaluation

	score, err := parseOptionalInt(field("score"))
	if err != nil {
		return e, fmt.Errorf("score: %w", err)
	}
	e.Score = score
	e.Type = field("type")
	e.Status = field("status")

	parts := []string{"originality", "emotion", "structure", "language", "theme"}
	values := make([]int, len(parts))
	scored := false
	for i, name := range parts {
		v, err := parseOptionalInt(field(name))
		if err != nil {
			return e, fmt.Errorf("%s: %w", name, err)
		}
		if v != nil {
			values[i] = *v
			scored = true
		}
	}
	if scored {
		e.Breakdown = &models.ScoreBreakdown{
			Originality: values[0],
			Emotion:     values[1],
			Structure:   values[2],
			Language:    values[3],
			Theme:       values[4],
		}
	}

	winner, position, err := ParseWinner(field("winner"))
	if err != nil {
		return e, err
	}
	e.IsWinner = winner
	e.WinnerPosition = position
	return e, nil
}

// maxMark bounds the total score and every breakdown criterion.
const maxMark = 100

func parseOptionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%q is not a number", raw)
	}
	v := math.Round(f)
	if v < 0 || v > maxMark {
		return nil, fmt.Errorf("%q is outside 0-%d", raw, maxMark)
	}
	n := int(v)
	return &n, nil
}

// ParseWinner reads the winner column: 1, 2 or 3 is a podium position, the
// boolean words mark a winner without a position.
func ParseWinner(raw string) (bool, *int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "1", "2", "3":
		p := int(v[0] - '0')
		return true, &p, nil
	case "true", "yes", "y", "winner":
		return true, nil, nil
	case "false", "no", "n", "0", "":
		return false, nil, nil
	}
	return false, nil, fmt.Errorf("winner value %q not recognised", raw)
}

// Export writes every submission matching filter with the id column first, so the
// sheet can be edited and imported back.
func (s *ReconcileService) Export(ctx context.Context, w io.Writer, filter repository.SubmissionFilter) error {
	subs, err := s.store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"id"}, scoreColumns...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, sub := range subs {
		b := sub.ScoreBreakdown
		if b == nil {
			b = &models.ScoreBreakdown{}
		}
		part := func(v int) string {
			if sub.ScoreBreakdown == nil {
				return ""
			}
			return strconv.Itoa(v)
		}
		record := []string{
			strconv.FormatInt(sub.ID, 10),
			sub.Email,
			sub.PoemTitle,
			optionalInt(sub.Score),
			sub.Type,
			part(b.Originality),
			part(b.Emotion),
			part(b.Structure),
			part(b.Language),
			part(b.Theme),
			sub.Status,
			winnerCell(sub),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func winnerCell(s models.Submission) string {
	switch {
	case s.IsWinner && s.WinnerPosition != nil:
		return strconv.Itoa(*s.WinnerPosition)
	case s.IsWinner:
		return "true"
	}
	return "false"
}
