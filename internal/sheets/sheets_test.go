package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestAppendSendsRowsInColumnOrder(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  struct {
			Values [][]any `json:"values"`
		}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-1"}`))
	}))
	defer srv.Close()

	a, err := NewAppender(context.Background(), "sheet-1", "", "Poetry!A:L",
		option.WithEndpoint(srv.URL+"/"), option.WithoutAuthentication(), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	err = a.Append(context.Background(), []Row{{
		Timestamp:      "2026-10-02T09:00:00+05:30",
		Name:           "Asha",
		Email:          "asha@example.com",
		Phone:          "98450",
		Age:            21,
		PoemTitle:      "Monsoon",
		Tier:           "double",
		Amount:         70,
		PoemFileURL:    "https://cdn/p.pdf",
		PhotoURL:       "https://cdn/p.jpg",
		SubmissionUUID: "u-1",
		PoemIndex:      2,
	}})
	require.NoError(t, err)

	require.True(t, strings.HasSuffix(gotPath, ":append"), gotPath)
	require.Contains(t, gotPath, "/v4/spreadsheets/sheet-1/values/")
	require.Contains(t, gotQuery, "valueInputOption=USER_ENTERED")
	require.Contains(t, gotQuery, "insertDataOption=INSERT_ROWS")
	require.Len(t, gotBody.Values, 1)
	require.Len(t, gotBody.Values[0], 12)
	require.Equal(t, "Monsoon", gotBody.Values[0][5])
	require.Equal(t, "u-1", gotBody.Values[0][10])
	require.EqualValues(t, 2, gotBody.Values[0][11])
}

func TestAppendNoRowsIsNoop(t *testing.T) {
	a, err := NewAppender(context.Background(), "sheet-1", "", "", option.WithEndpoint("http://127.0.0.1:1/"), option.WithoutAuthentication())
	require.NoError(t, err)
	require.NoError(t, a.Append(context.Background(), nil))
}

func TestNewAppenderRequiresSpreadsheet(t *testing.T) {
	_, err := NewAppender(context.Background(), "", "", "")
	require.Error(t, err)
}
