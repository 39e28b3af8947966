package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestMigrateAppliesEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	for range schema {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithParseTime(t *testing.T) {
	dsn, err := withParseTime("writory:secret@tcp(localhost:3306)/writory")
	require.NoError(t, err)
	require.Contains(t, dsn, "parseTime=true")

	_, err = withParseTime("not a dsn")
	require.Error(t, err)
}
