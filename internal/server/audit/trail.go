// Package audit is the append-only audit trail of gate decisions, file
// movements, provisioning and access repairs.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

// Store persists audit records.
type Store interface {
	Append(ctx context.Context, rec *models.AuditRecord) error
	List(ctx context.Context, limit int) ([]models.AuditRecord, error)
}

// Limits on how many records Recent returns.
const (
	DefaultRecent = 50
	MaxRecent     = 500
)

type Trail struct {
	store Store
	log   logging.Logger
	now   func() time.Time
}

func NewTrail(store Store, log logging.Logger) *Trail {
	return &Trail{store: store, log: log.With("module", "audit"), now: time.Now}
}

// Record appends one audit record stamped with the current time.
func (t *Trail) Record(ctx context.Context, category models.AuditCategory, subject, object string,
	status models.AuditStatus, reason, action string) error {
	rec := &models.AuditRecord{
		Timestamp: t.now().UTC(),
		Category:  category,
		Subject:   subject,
		Object:    object,
		Status:    status,
		Reason:    reason,
		Action:    action,
	}

	if err := t.store.Append(ctx, rec); err != nil {
		t.log.Error(ctx, "audit append failed", "category", category, "subject", subject, "error", err)
		return err
	}

	t.log.Debug(ctx, "audit", "id", rec.ID, "category", category, "subject", subject, "status", status)
	return nil
}

// Recent returns up to limit records, newest first. A non-positive limit
// means DefaultRecent; larger limits are capped at MaxRecent.
func (t *Trail) Recent(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecent
	case limit > MaxRecent:
		limit = MaxRecent
	}
	recs, err := t.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("audit log: %w", err)
	}
	return recs, nil
}
