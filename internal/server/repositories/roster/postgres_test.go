package roster

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestUpsert(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+roster.*ON\s+CONFLICT\s+\(normalized_key\)\s+DO\s+UPDATE.*RETURNING\s+id,\s*status,\s*remarks\s*$`).
		WithArgs("a-104", "A-104", ts, "x@y.com", "Asha", "98450", "containers/1", "New", "Unassigned").
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "remarks"}).AddRow(int64(3), "Verified", "Paid"))

	row := &models.RosterRow{NormalizedKey: "a-104", UnitKey: "A-104", SubmittedAt: ts, Email: "x@y.com",
		OwnerName: "Asha", Phone: "98450", ContainerLink: "containers/1"}
	require.NoError(t, repo.Upsert(context.Background(), row))
	assert.Equal(t, int64(3), row.ID)
	assert.Equal(t, "Verified", row.Status, "existing status is kept")
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*normalized_key.*FROM\s+roster\s+ORDER\s+BY\s+id\s*$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "normalized_key", "unit_key", "submitted_at", "email",
			"owner_name", "phone", "container_link", "status", "remarks", "watchlist"}).
			AddRow(int64(1), "a-104", "A-104", ts, "x@y.com", "Asha", "98450", "c1", "New", "Unassigned", ""))

	rows, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Asha", rows[0].OwnerName)
}

func TestSetWatchlist(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `^UPDATE roster SET watchlist = \$1 WHERE id = \$2$`
	mock.ExpectExec(q).WithArgs(models.WatchlistMatch, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("", int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.SetWatchlist(context.Background(), 1, models.WatchlistMatch))
	err := repo.SetWatchlist(context.Background(), 99, "")
	assert.True(t, errors.Is(err, common.ErrorNotFound))
}
