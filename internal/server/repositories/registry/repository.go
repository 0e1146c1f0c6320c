package registry

import (
	"context"

	"github.com/dmitrijs2005/memvault/internal/server/models"
)

type Repository interface {
	List(ctx context.Context) ([]models.RegistryEntry, error)
	FindByNormalizedKey(ctx context.Context, key string) (*models.RegistryEntry, error)
	Create(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error)
	// Apply writes only the non-nil fields of upd.
	Apply(ctx context.Context, upd models.EntryUpdate) error
	// UploadedIDs reads the uploaded set and locks the row until the
	// surrounding transaction ends.
	UploadedIDs(ctx context.Context, id int64) (models.IDSet, error)
}
