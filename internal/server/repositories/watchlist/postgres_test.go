package watchlist

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerms(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`^SELECT term FROM watchlist ORDER BY id$`).
		WillReturnRows(sqlmock.NewRows([]string{"term"}).AddRow("B-207").AddRow("Ravi Kumar"))

	terms, err := NewPostgresRepository(db).Terms(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B-207", "Ravi Kumar"}, terms)
}

func TestTerms_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM watchlist`).WillReturnError(errors.New("db down"))

	_, err = NewPostgresRepository(db).Terms(context.Background())
	assert.ErrorContains(t, err, "db error: db down")
}
