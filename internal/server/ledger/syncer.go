package ledger

import (
	"context"

	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/metrics"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

// SyncResult is what one SyncFiles call achieved.
type SyncResult struct {
	Accepted   int
	AddedBytes int64
	Ledger     models.Ledger
	// Files are the sanitized names of the moved objects.
	Files []string
}

type Syncer struct {
	store   storage.ObjectStorage
	trail   Recorder
	metrics *metrics.Metrics
	log     logging.Logger
}

func NewSyncer(store storage.ObjectStorage, trail Recorder, m *metrics.Metrics, log logging.Logger) *Syncer {
	return &Syncer{store: store, trail: trail, metrics: m, log: log.With("module", "syncer")}
}

// SyncFiles moves every candidate id not yet in the entry's uploaded set
// into the entry's container. Failures are per id and never abort the
// loop. The entry itself is not modified; the updated ledger is returned.
func (s *Syncer) SyncFiles(ctx context.Context, entry *models.RegistryEntry, ids []string) SyncResult {
	res := SyncResult{Ledger: entry.Ledger.Clone()}

	for _, id := range ids {
		if res.Ledger.Uploaded.Has(id) {
			continue
		}
		if err := ctx.Err(); err != nil {
			s.log.Warn(ctx, "sync interrupted", "unit", entry.UnitKey, "error", err)
			break
		}

		obj, err := s.store.Object(ctx, id)
		if err != nil {
			if storage.IsNotFound(err) {
				s.log.Info(ctx, "object no longer in inbox", "unit", entry.UnitKey, "id", id)
				continue
			}
			s.log.Warn(ctx, "object metadata", "unit", entry.UnitKey, "id", id, "error", err)
			continue
		}
		if obj.Trashed {
			s.log.Info(ctx, "skipping trashed object", "unit", entry.UnitKey, "id", id)
			continue
		}

		name := SanitizeName(obj.Name)
		if name == "" {
			name = id
		}

		if err := s.store.MoveObject(ctx, id, entry.ContainerRef, name); err != nil {
			s.log.Warn(ctx, "move object", "unit", entry.UnitKey, "id", id, "error", err)
			continue
		}

		res.Ledger.Uploaded.Add(id)
		res.Ledger.Present.Add(id)
		res.Ledger.Deleted.Remove(id)
		res.Accepted++
		res.AddedBytes += obj.Size
		res.Files = append(res.Files, name)

		if err := s.trail.Record(ctx, models.CategorySync, entry.UnitKey, name, models.AuditSuccess,
			"", "moved to "+entry.ContainerRef); err != nil {
			s.log.Warn(ctx, "audit sync", "unit", entry.UnitKey, "error", err)
		}
	}

	s.metrics.RecordSync(res.Accepted, res.AddedBytes)
	return res
}
