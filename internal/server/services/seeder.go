package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/gate"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
)

// SeedReport summarises one ledger seeding run.
type SeedReport struct {
	// Updated counts entries whose uploaded set was replaced.
	Updated int
	// IDs is the total number of ids written.
	IDs int
	// Unmatched lists normalized keys with no registry entry.
	Unmatched []string
}

// LedgerSeeder rebuilds uploaded sets from historical submissions.
type LedgerSeeder struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	lock        Locker
	log         logging.Logger
}

func NewLedgerSeeder(db *sql.DB, rm repomanager.RepositoryManager, lock Locker, log logging.Logger) *LedgerSeeder {
	return &LedgerSeeder{db: db, repomanager: rm, lock: lock, log: log.With("module", "seeder")}
}

// Seed groups the object ids of history by normalized unit key and, for
// every existing entry, replaces its uploaded set with the collected ids.
// Keys without an entry or without ids are left alone.
func (s *LedgerSeeder) Seed(ctx context.Context, history []models.HistoricalSubmission) (*SeedReport, error) {
	var keys []string
	byKey := make(map[string]*models.IDSet)
	for _, h := range history {
		key := gate.Normalize(h.RawUnitKey)
		if key == "" {
			continue
		}
		set, ok := byKey[key]
		if !ok {
			fresh := models.NewIDSet()
			set = &fresh
			byKey[key] = set
			keys = append(keys, key)
		}
		for _, id := range gate.ExtractObjectIDs(h.FileRefs) {
			set.Add(id)
		}
	}

	release, err := s.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	report := &SeedReport{}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Registry(tx)
		for _, key := range keys {
			ids := byKey[key]
			entry, err := repo.FindByNormalizedKey(ctx, key)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					report.Unmatched = append(report.Unmatched, key)
					continue
				}
				return fmt.Errorf("lookup %s: %w", key, err)
			}
			if ids.Len() == 0 {
				continue
			}
			if err := repo.Apply(ctx, models.EntryUpdate{EntryID: entry.ID, Uploaded: ids}); err != nil {
				return fmt.Errorf("entry %s: %w", key, err)
			}
			report.Updated++
			report.IDs += ids.Len()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "ledger seeded", "entries", report.Updated, "ids", report.IDs, "unmatched", len(report.Unmatched))
	return report, nil
}
