package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/gate"
	"github.com/dmitrijs2005/memvault/internal/server/ledger"
	"github.com/dmitrijs2005/memvault/internal/server/metrics"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/notify"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
)

// FileSyncer moves submitted objects into an entry's container.
type FileSyncer interface {
	SyncFiles(ctx context.Context, entry *models.RegistryEntry, ids []string) ledger.SyncResult
}

// Recorder appends audit records.
type Recorder interface {
	Record(ctx context.Context, category models.AuditCategory, subject, object string,
		status models.AuditStatus, reason, action string) error
}

// Locker hands out the process-wide registry lock.
type Locker interface {
	Acquire(ctx context.Context) (func(), error)
}

// Alerter notifies the operator of system failures.
type Alerter interface {
	Alert(ctx context.Context, subject, body string)
}

// IntakeResult is the visible outcome of one processed submission.
type IntakeResult struct {
	Outcome      models.Outcome
	Accepted     int
	AddedBytes   int64
	Reason       string
	ContainerRef string
}

type IntakeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gate        *gate.Gate
	syncer      FileSyncer
	trail       Recorder
	sender      notify.Sender
	alerter     Alerter
	lock        Locker
	screener    *Screener
	metrics     *metrics.Metrics
	log         logging.Logger

	// trigger, when set, is called after every processed submission.
	trigger func()
	now     func() time.Time
}

func NewIntakeService(db *sql.DB, rm repomanager.RepositoryManager, syncer FileSyncer, trail Recorder,
	sender notify.Sender, alerter Alerter, lock Locker, m *metrics.Metrics, log logging.Logger) *IntakeService {
	return &IntakeService{
		db:          db,
		repomanager: rm,
		gate:        gate.New(rm.Registry(db), log),
		syncer:      syncer,
		trail:       trail,
		sender:      sender,
		alerter:     alerter,
		lock:        lock,
		screener:    NewScreener(db, rm, log),
		metrics:     m,
		log:         log.With("module", "intake"),
		now:         time.Now,
	}
}

// OnProcessed registers fn to run after each submission that got the lock.
func (s *IntakeService) OnProcessed(fn func()) {
	s.trigger = fn
}

// Process runs one submission through the gate and, when admitted, the
// file sync and registry update. Only system failures are returned as
// errors; rejections are reported through the result.
func (s *IntakeService) Process(ctx context.Context, sub models.Submission) (*IntakeResult, error) {
	if sub.ReceivedAt.IsZero() {
		sub.ReceivedAt = s.now()
	}

	release, err := s.lock.Acquire(ctx)
	if err != nil {
		if errors.Is(err, common.ErrLockTimeout) {
			s.dropped(ctx, sub, err)
			return &IntakeResult{Outcome: models.OutcomeDropped, Reason: err.Error()}, err
		}
		return nil, err
	}

	res, err := s.process(ctx, sub)
	release()

	if err != nil {
		s.metrics.RecordOutcome(string(models.OutcomeError))
		s.alerter.Alert(ctx, "submission failed",
			fmt.Sprintf("unit %q from %s: %v", sub.RawUnitKey, sub.SubmitterIdentity, err))
		return &IntakeResult{Outcome: models.OutcomeError, Reason: err.Error()}, err
	}

	s.metrics.RecordOutcome(string(res.Outcome))
	if s.trigger != nil {
		s.trigger()
	}
	return res, nil
}

func (s *IntakeService) dropped(ctx context.Context, sub models.Submission, err error) {
	s.metrics.RecordDropped()
	s.metrics.RecordOutcome(string(models.OutcomeDropped))
	s.alerter.Alert(ctx, "submission dropped",
		fmt.Sprintf("unit %q from %s: %v", sub.RawUnitKey, sub.SubmitterIdentity, err))
	if rerr := s.trail.Record(ctx, models.CategorySystem, sub.RawUnitKey, sub.SubmitterIdentity,
		models.AuditDropped, err.Error(), "event dropped"); rerr != nil {
		s.log.Warn(ctx, "audit drop", "error", rerr)
	}
}

func (s *IntakeService) process(ctx context.Context, sub models.Submission) (*IntakeResult, error) {
	decision, err := s.gate.Admit(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordGate(decision.Verdict.String())

	var res *IntakeResult
	switch decision.Verdict {
	case gate.Unknown:
		res = s.unknown(ctx, sub, decision)
	case gate.Mismatch:
		res = s.mismatch(ctx, sub, decision)
	default:
		res, err = s.admitted(ctx, sub, decision.Entry)
		if err != nil {
			return nil, err
		}
	}

	if err := s.screener.Refresh(ctx); err != nil {
		s.log.Warn(ctx, "watchlist refresh", "error", err)
	}
	return res, nil
}

func (s *IntakeService) unknown(ctx context.Context, sub models.Submission, d gate.Decision) *IntakeResult {
	s.record(ctx, models.CategoryUnknownUnit, sub.RawUnitKey, sub.SubmitterIdentity,
		models.AuditPending, d.Reason, "awaiting operator review")
	s.notify(ctx, notify.KeyUnknown, sub, nil)
	return &IntakeResult{Outcome: models.OutcomePendingReview, Reason: common.ErrUnknownUnit.Error()}
}

func (s *IntakeService) mismatch(ctx context.Context, sub models.Submission, d gate.Decision) *IntakeResult {
	s.record(ctx, models.CategoryIdentityMismatch, d.Entry.UnitKey, sub.SubmitterIdentity,
		models.AuditBlocked, d.Reason, "submission rejected")
	s.notify(ctx, notify.KeyMismatch, sub, map[string]string{"Flat": d.Entry.UnitKey})
	return &IntakeResult{Outcome: models.OutcomeMismatch, Reason: d.Reason}
}

func (s *IntakeService) admitted(ctx context.Context, sub models.Submission, entry *models.RegistryEntry) (*IntakeResult, error) {
	s.record(ctx, models.CategoryGate, entry.UnitKey, sub.SubmitterIdentity, models.AuditAdmitted, "", "")

	ids := gate.ExtractObjectIDs(sub.FileRefs)
	if len(ids) > 0 && !entry.Provisioned() {
		s.log.Info(ctx, "no container yet", "unit", entry.UnitKey, "files", len(ids))
		return &IntakeResult{Outcome: models.OutcomeNoContainer, Reason: common.ErrNoContainer.Error()}, nil
	}

	var sync ledger.SyncResult
	if len(ids) > 0 {
		sync = s.syncer.SyncFiles(ctx, entry, ids)
	} else {
		sync = ledger.SyncResult{Ledger: entry.Ledger.Clone()}
	}

	now := s.now()
	upd := models.EntryUpdate{EntryID: entry.ID}
	if sync.Accepted > 0 {
		found := entry.FilesFound + sync.Accepted
		total := entry.TotalBytes + sync.AddedBytes
		upd.Uploaded = &sync.Ledger.Uploaded
		upd.Present = &sync.Ledger.Present
		upd.Deleted = &sync.Ledger.Deleted
		upd.FilesFound = &found
		upd.TotalBytes = &total
		upd.LastSynced = &now
	}

	row := &models.RosterRow{
		NormalizedKey: entry.NormalizedKey,
		UnitKey:       entry.UnitKey,
		SubmittedAt:   sub.ReceivedAt,
		Email:         gate.NormalizeIdentity(sub.SubmitterIdentity),
		OwnerName:     strings.TrimSpace(sub.OwnerName),
		Phone:         strings.TrimSpace(sub.Phone),
		ContainerLink: entry.ContainerRef,
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if !upd.Empty() {
			if err := s.repomanager.Registry(tx).Apply(ctx, upd); err != nil {
				return fmt.Errorf("registry: %w", err)
			}
		}
		if err := s.repomanager.Roster(tx).Upsert(ctx, row); err != nil {
			return fmt.Errorf("roster: %w", err)
		}
		return nil
	})
	if err != nil {
		if sync.Accepted > 0 {
			// The objects already sit in the container and their SYNC
			// records stand, but the ledger does not list them.
			moved := sync.Ledger.Uploaded.Minus(entry.Ledger.Uploaded)
			s.record(ctx, models.CategorySystem, entry.UnitKey, moved.String(), models.AuditError,
				err.Error(), "moved to "+entry.ContainerRef+" without ledger update")
		}
		return nil, err
	}

	if sync.Accepted > 0 {
		s.notify(ctx, notify.KeyReceipt, sub, map[string]string{
			"Flat":  entry.UnitKey,
			"Link":  entry.ContainerRef,
			"Files": strings.Join(sync.Files, "\n"),
			"Count": strconv.Itoa(sync.Accepted),
		})
	}

	return &IntakeResult{
		Outcome:      models.OutcomeDone,
		Accepted:     sync.Accepted,
		AddedBytes:   sync.AddedBytes,
		ContainerRef: entry.ContainerRef,
	}, nil
}

func (s *IntakeService) record(ctx context.Context, category models.AuditCategory, subject, object string,
	status models.AuditStatus, reason, action string) {
	if err := s.trail.Record(ctx, category, subject, object, status, reason, action); err != nil {
		s.log.Warn(ctx, "audit", "category", category, "error", err)
	}
}

func (s *IntakeService) notify(ctx context.Context, key string, sub models.Submission, extra map[string]string) {
	fields := map[string]string{
		notify.FieldEmail: gate.NormalizeIdentity(sub.SubmitterIdentity),
		"Name":            strings.TrimSpace(sub.OwnerName),
		"Flat":            strings.TrimSpace(sub.RawUnitKey),
	}
	for k, v := range extra {
		fields[k] = v
	}
	if err := s.sender.Send(ctx, key, fields); err != nil {
		s.log.Warn(ctx, "notify", "key", key, "error", err)
	}
}
