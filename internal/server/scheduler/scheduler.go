// Package scheduler runs the periodic provisioning and reconciliation pass
// over every registry entry, most urgent first, within a runtime budget.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/access"
	"github.com/dmitrijs2005/memvault/internal/server/ledger"
	"github.com/dmitrijs2005/memvault/internal/server/lock"
	"github.com/dmitrijs2005/memvault/internal/server/metrics"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

const (
	DefaultBudget       = 280 * time.Second
	DefaultGrace        = 20 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	critErrorPrefix = "Crit Error: "
)

// ErrPassRunning is returned by RunPass while another pass is in progress.
var ErrPassRunning = errors.New("pass already running")

// Tiers, most urgent first.
const (
	TierOnboarding = 1
	TierRepair     = 2
	TierRoutine    = 3
)

// Tier classifies an entry for the current pass.
func Tier(e *models.RegistryEntry) int {
	switch {
	case !e.Provisioned():
		return TierOnboarding
	case e.FullPath == "" || e.Access.NeedsRepair():
		return TierRepair
	default:
		return TierRoutine
	}
}

// Order sorts entries by tier, then by last-checked time with never
// checked entries first. Equal entries keep their registry order.
func Order(entries []models.RegistryEntry) []models.RegistryEntry {
	out := append([]models.RegistryEntry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := Tier(&out[i]), Tier(&out[j])
		if ti != tj {
			return ti < tj
		}
		return out[i].LastChecked.Before(out[j].LastChecked)
	})
	return out
}

// AccessAuditor audits container permissions.
type AccessAuditor interface {
	AuditAccess(ctx context.Context, containerRef, expected string) access.AccessResult
}

// LedgerReconciler observes container contents.
type LedgerReconciler interface {
	Reconcile(ctx context.Context, containerRef string, uploaded models.IDSet) (ledger.LedgerResult, error)
}

// Recorder appends audit records.
type Recorder interface {
	Record(ctx context.Context, category models.AuditCategory, subject, object string,
		status models.AuditStatus, reason, action string) error
}

type Options struct {
	RootContainer string
	// Budget bounds the time spent starting new entries.
	Budget time.Duration
	// Grace is added to Budget for the hard pass deadline.
	Grace time.Duration
	// WriteTimeout bounds the end-of-pass write, which runs detached from
	// the pass deadline.
	WriteTimeout time.Duration
}

// PassReport summarises one pass.
type PassReport struct {
	StartedAt   time.Time
	Duration    time.Duration
	Processed   int
	Deferred    int
	Provisioned int
	Failed      int
}

type Scheduler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStorage
	auditor     AccessAuditor
	reconciler  LedgerReconciler
	trail       Recorder
	lock        *lock.Exclusive
	metrics     *metrics.Metrics
	opts        Options
	log         logging.Logger

	running sync.Mutex
	now     func() time.Time
}

func New(db *sql.DB, rm repomanager.RepositoryManager, store storage.ObjectStorage, auditor AccessAuditor,
	reconciler LedgerReconciler, trail Recorder, l *lock.Exclusive, m *metrics.Metrics, opts Options,
	log logging.Logger) *Scheduler {
	if opts.Budget <= 0 {
		opts.Budget = DefaultBudget
	}
	if opts.Grace <= 0 {
		opts.Grace = DefaultGrace
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Scheduler{
		db:          db,
		repomanager: rm,
		store:       store,
		auditor:     auditor,
		reconciler:  reconciler,
		trail:       trail,
		lock:        l,
		metrics:     m,
		opts:        opts,
		log:         log.With("module", "scheduler"),
		now:         time.Now,
	}
}

// RunPass processes registry entries in priority order until the budget
// is spent, then writes every collected update in one transaction under
// the exclusive lock. Per-entry failures are recorded in the entry's
// issues and never abort the pass.
func (s *Scheduler) RunPass(ctx context.Context) (*PassReport, error) {
	if !s.running.TryLock() {
		return nil, ErrPassRunning
	}
	defer s.running.Unlock()

	start := s.now()
	report := &PassReport{StartedAt: start}

	passCtx, cancel := context.WithTimeout(ctx, s.opts.Budget+s.opts.Grace)
	defer cancel()

	entries, err := s.repomanager.Registry(s.db).List(passCtx)
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}

	queue := Order(entries)
	snapshot := make(map[int64]models.IDSet, len(queue))
	updates := make([]models.EntryUpdate, 0, len(queue))

	for i := range queue {
		e := &queue[i]
		if e.UnitKey == "" {
			continue
		}
		if s.now().Sub(start) > s.opts.Budget || passCtx.Err() != nil {
			report.Deferred = countKeyed(queue[i:])
			break
		}

		upd := s.processEntry(passCtx, e, start)
		if upd.LastChecked == nil && passCtx.Err() != nil {
			// Cut off by the pass deadline. Only a container created for
			// the entry is kept; the rest is redone next pass.
			if upd.ContainerRef != nil {
				updates = append(updates, models.EntryUpdate{EntryID: e.ID, ContainerRef: upd.ContainerRef})
				report.Provisioned++
			}
			report.Deferred = countKeyed(queue[i:])
			break
		}
		if upd.ContainerRef != nil {
			report.Provisioned++
		}
		if upd.LastChecked == nil {
			report.Failed++
		}
		snapshot[e.ID] = e.Ledger.Uploaded
		updates = append(updates, upd)
		report.Processed++
	}

	if err := s.write(ctx, updates, snapshot); err != nil {
		return nil, err
	}

	report.Duration = s.now().Sub(start)
	s.metrics.RecordPass(report.Duration, report.Processed, report.Deferred)
	s.log.Info(ctx, "pass finished", "processed", report.Processed, "deferred", report.Deferred,
		"provisioned", report.Provisioned, "failed", report.Failed, "duration", report.Duration)
	return report, nil
}

func countKeyed(entries []models.RegistryEntry) int {
	n := 0
	for i := range entries {
		if entries[i].UnitKey != "" {
			n++
		}
	}
	return n
}

// processEntry collects the update for one entry. On failure the fields
// gathered so far are kept, the issue note carries the error and
// last-checked stays untouched so the entry sorts early next pass.
func (s *Scheduler) processEntry(ctx context.Context, e *models.RegistryEntry, passStart time.Time) models.EntryUpdate {
	upd := models.EntryUpdate{EntryID: e.ID}

	fail := func(err error) models.EntryUpdate {
		s.log.Warn(ctx, "entry failed", "unit", e.UnitKey, "error", err)
		note := critErrorPrefix + err.Error()
		upd.Issues = &note
		return upd
	}

	ref := e.ContainerRef
	if ref == "" {
		created, err := s.store.CreateContainer(ctx, s.opts.RootContainer, e.UnitKey)
		if err != nil {
			return fail(fmt.Errorf("provision: %w", err))
		}
		ref = created
		upd.ContainerRef = &ref
		if err := s.trail.Record(ctx, models.CategoryProvision, e.UnitKey, ref, models.AuditCreated,
			"", "container created"); err != nil {
			s.log.Warn(ctx, "audit provision", "unit", e.UnitKey, "error", err)
		}
	}

	path, err := storage.FullPath(ctx, s.store, ref, s.opts.RootContainer)
	if err != nil {
		return fail(err)
	}
	upd.FullPath = &path

	acc := s.auditor.AuditAccess(ctx, ref, e.OwnerIdentity)
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("access audit: %w", err))
	}
	upd.Access = &acc.Status
	upd.AccessIssues = &acc.Note

	lr, err := s.reconciler.Reconcile(ctx, ref, e.Ledger.Uploaded)
	if err != nil {
		return fail(err)
	}
	upd.Present = &lr.Present
	upd.Deleted = &lr.Deleted
	upd.FilesFound = &lr.FilesFound
	upd.TotalBytes = &lr.TotalBytes
	upd.Health = &lr.Health
	upd.Issues = &lr.Issues
	upd.LastChecked = &passStart
	return upd
}

// write applies updates in one transaction while holding the exclusive
// lock. Ids the event path admitted after the snapshot was taken are
// merged into present so a concurrent admission is never lost.
func (s *Scheduler) write(ctx context.Context, updates []models.EntryUpdate, snapshot map[int64]models.IDSet) error {
	if len(updates) == 0 {
		return nil
	}

	lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancel()
	release, err := s.lock.Acquire(lockCtx)
	if err != nil {
		return fmt.Errorf("pass write: %w", err)
	}
	defer release()

	return dbx.WithDetachedTx(ctx, s.db, s.opts.WriteTimeout, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Registry(tx)
		for i := range updates {
			upd := updates[i]
			if upd.Present != nil {
				current, err := repo.UploadedIDs(ctx, upd.EntryID)
				if err != nil {
					return fmt.Errorf("entry %d: %w", upd.EntryID, err)
				}
				if admitted := current.Minus(snapshot[upd.EntryID]); admitted.Len() > 0 {
					mergeAdmitted(&upd, current, admitted)
				}
			}
			if err := repo.Apply(ctx, upd); err != nil {
				return fmt.Errorf("entry %d: %w", upd.EntryID, err)
			}
		}
		return nil
	})
}

// mergeAdmitted folds ids admitted during the pass into the update and
// recomputes the issues note against the current uploaded set. Their bytes
// were counted by the event path, so the observed total is dropped.
func mergeAdmitted(upd *models.EntryUpdate, current, admitted models.IDSet) {
	present := upd.Present.Union(admitted)
	upd.Present = &present
	var deleted models.IDSet
	if upd.Deleted != nil {
		deleted = upd.Deleted.Minus(admitted)
		upd.Deleted = &deleted
	}
	found := present.Len()
	upd.FilesFound = &found
	upd.TotalBytes = nil
	issues := ledger.Summarize(present.Minus(current), deleted)
	upd.Issues = &issues
}
