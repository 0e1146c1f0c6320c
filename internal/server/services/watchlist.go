package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
)

// minTermLen is the shortest watchlist term that is matched; shorter ones
// would flag half the roster.
const minTermLen = 3

// Screener flags roster rows that match a watchlist term.
type Screener struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewScreener(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *Screener {
	return &Screener{db: db, repomanager: rm, log: log.With("module", "watchlist")}
}

// Refresh sets models.WatchlistMatch on every roster row whose unit, owner
// name or phone equals a term, and clears the flag everywhere else. Only
// rows whose flag changes are written.
func (s *Screener) Refresh(ctx context.Context) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		raw, err := s.repomanager.Watchlist(tx).Terms(ctx)
		if err != nil {
			return fmt.Errorf("terms: %w", err)
		}
		terms := make(map[string]struct{}, len(raw))
		for _, t := range raw {
			if t = fold(t); len(t) >= minTermLen {
				terms[t] = struct{}{}
			}
		}

		repo := s.repomanager.Roster(tx)
		rows, err := repo.List(ctx)
		if err != nil {
			return fmt.Errorf("roster: %w", err)
		}

		flagged := 0
		for _, row := range rows {
			want := ""
			if matches(terms, row) {
				want = models.WatchlistMatch
				flagged++
			}
			if row.Watchlist == want {
				continue
			}
			if err := repo.SetWatchlist(ctx, row.ID, want); err != nil {
				return fmt.Errorf("roster %d: %w", row.ID, err)
			}
		}
		s.log.Debug(ctx, "watchlist refreshed", "terms", len(terms), "flagged", flagged)
		return nil
	})
}

func matches(terms map[string]struct{}, row models.RosterRow) bool {
	if len(terms) == 0 {
		return false
	}
	for _, v := range []string{row.UnitKey, row.OwnerName, row.Phone} {
		if _, ok := terms[fold(v)]; ok {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
