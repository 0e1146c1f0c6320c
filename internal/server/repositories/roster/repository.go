package roster

import (
	"context"

	"github.com/dmitrijs2005/memvault/internal/server/models"
)

type Repository interface {
	// Upsert inserts a row for a new unit or refreshes the submission
	// fields of an existing one, keeping its status and remarks.
	Upsert(ctx context.Context, row *models.RosterRow) error
	List(ctx context.Context) ([]models.RosterRow, error)
	SetWatchlist(ctx context.Context, id int64, flag string) error
}
