package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/lock"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/memrepo"
)

func TestLedgerSeeder_Seed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := memrepo.New()
	withIDs := repo.Put(models.RegistryEntry{UnitKey: "A-104", NormalizedKey: "a-104",
		Ledger: models.Ledger{Uploaded: models.NewIDSet("stale-id-that-is-long-enough-x")}})
	noIDs := repo.Put(models.RegistryEntry{UnitKey: "B-2", NormalizedKey: "b-2",
		Ledger: models.Ledger{Uploaded: models.NewIDSet(idThree)}})

	mock.ExpectBegin()
	mock.ExpectCommit()

	seeder := NewLedgerSeeder(db, repo, lock.NewExclusive(time.Second), logging.Nop{})
	report, err := seeder.Seed(context.Background(), []models.HistoricalSubmission{
		{RawUnitKey: "a 104", FileRefs: "https://x/d/" + idOne + "/view"},
		{RawUnitKey: "A-104", FileRefs: idTwo + "," + idOne},
		{RawUnitKey: "b-2", FileRefs: "no ids here"},
		{RawUnitKey: "Z-9", FileRefs: idThree},
		{RawUnitKey: "  ", FileRefs: idThree},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.IDs)
	assert.Equal(t, []string{"z-9"}, report.Unmatched)

	a, _ := repo.Entry(withIDs)
	assert.Equal(t, []string{idOne, idTwo}, a.Ledger.Uploaded.IDs())
	b, _ := repo.Entry(noIDs)
	assert.Equal(t, []string{idThree}, b.Ledger.Uploaded.IDs())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerSeeder_LockTimeout(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := lock.NewExclusive(20 * time.Millisecond)
	release, err := l.Acquire(context.Background())
	require.NoError(t, err)
	defer release()

	_, err = NewLedgerSeeder(db, memrepo.New(), l, logging.Nop{}).Seed(context.Background(),
		[]models.HistoricalSubmission{{RawUnitKey: "A-1", FileRefs: idOne}})
	assert.ErrorIs(t, err, common.ErrLockTimeout)
}
