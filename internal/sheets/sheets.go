package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Row is one poem in the Poetry sheet, columns A to L.
type Row struct {
	Timestamp      string `json:"timestamp"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Age            int    `json:"age"`
	PoemTitle      string `json:"poemTitle"`
	Tier           string `json:"tier"`
	Amount         int    `json:"amount"`
	PoemFileURL    string `json:"poemFileUrl"`
	PhotoURL       string `json:"photoUrl"`
	SubmissionUUID string `json:"submissionUuid"`
	PoemIndex      int    `json:"poemIndex"`
}

func (r Row) values() []any {
	return []any{
		r.Timestamp, r.Name, r.Email, r.Phone, r.Age, r.PoemTitle,
		r.Tier, r.Amount, r.PoemFileURL, r.PhotoURL, r.SubmissionUUID, r.PoemIndex,
	}
}

type Appender struct {
	svc           *gsheets.Service
	spreadsheetID string
	writeRange    string
}

// NewAppender builds a Sheets client from a service-account credentials file.
// Extra options are appended after the credentials option.
func NewAppender(ctx context.Context, spreadsheetID, credentialsFile, writeRange string, opts ...option.ClientOption) (*Appender, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}
	if writeRange == "" {
		writeRange = "Poetry!A:L"
	}
	var all []option.ClientOption
	if credentialsFile != "" {
		all = append(all, option.WithCredentialsFile(credentialsFile), option.WithScopes(gsheets.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Appender{svc: svc, spreadsheetID: spreadsheetID, writeRange: writeRange}, nil
}

// Append adds rows below the existing data of the configured range.
func (a *Appender) Append(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.values())
	}
	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, a.writeRange, &gsheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append sheet rows: %w", err)
	}
	return nil
}
