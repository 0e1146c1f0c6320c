package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

// DefaultHeavyStorageBytes is the container size above which an entry is
// flagged HEAVY STORAGE.
const DefaultHeavyStorageBytes int64 = 52428800

const (
	issueSynced  = "Synced"
	issueJoinSep = " | "
)

// LedgerResult is the observed state of one container.
type LedgerResult struct {
	Present    models.IDSet
	Deleted    models.IDSet
	Manual     models.IDSet
	FilesFound int
	TotalBytes int64
	Health     models.Health
	Issues     string
}

// Reconciler compares recorded ledgers with container contents. It never
// writes to storage.
type Reconciler struct {
	store          storage.ObjectStorage
	heavyThreshold int64
}

func NewReconciler(store storage.ObjectStorage, heavyThreshold int64) *Reconciler {
	if heavyThreshold <= 0 {
		heavyThreshold = DefaultHeavyStorageBytes
	}
	return &Reconciler{store: store, heavyThreshold: heavyThreshold}
}

func (r *Reconciler) Reconcile(ctx context.Context, containerRef string, uploaded models.IDSet) (LedgerResult, error) {
	objs, err := r.store.ListObjects(ctx, containerRef)
	if err != nil {
		return LedgerResult{}, fmt.Errorf("list container: %w", err)
	}

	var res LedgerResult
	for _, o := range objs {
		if o.Trashed {
			continue
		}
		if res.Present.Add(o.ID) {
			res.TotalBytes += o.Size
		}
	}

	res.FilesFound = res.Present.Len()
	res.Manual = res.Present.Minus(uploaded)
	res.Deleted = uploaded.Minus(res.Present)

	res.Health = models.HealthNormal
	if res.TotalBytes > r.heavyThreshold {
		res.Health = models.HealthHeavy
	}

	res.Issues = Summarize(res.Manual, res.Deleted)
	return res, nil
}

// Summarize composes the issues note for a container with manual uploads
// and deleted files, or "Synced" when there are neither.
func Summarize(manual, deleted models.IDSet) string {
	var issues []string
	if n := manual.Len(); n > 0 {
		issues = append(issues, fmt.Sprintf("Manual upload (+%d)", n))
	}
	if n := deleted.Len(); n > 0 {
		issues = append(issues, fmt.Sprintf("Missing (%d deleted)", n))
	}
	if len(issues) == 0 {
		return issueSynced
	}
	return strings.Join(issues, issueJoinSep)
}
