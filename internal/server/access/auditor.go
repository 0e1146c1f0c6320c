// Package access audits container permissions against the registered
// owner identity. It only ever adds a read grant for the owner; grants it
// does not expect are reported, never revoked.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
)

const (
	noteOK         = "OK"
	noteUnexpected = "Unexpected: "
)

// Recorder appends audit records.
type Recorder interface {
	Record(ctx context.Context, category models.AuditCategory, subject, object string,
		status models.AuditStatus, reason, action string) error
}

type Options struct {
	// IgnoredIdentities are service or committee accounts that may hold
	// grants on any container.
	IgnoredIdentities []string
}

// AccessResult is the audit outcome for one container.
type AccessResult struct {
	Status models.AccessStatus
	// Note is "OK" or "Unexpected: a, b" listing other member grantees.
	Note string
}

type Auditor struct {
	store   storage.ObjectStorage
	trail   Recorder
	ignored map[string]struct{}
	log     logging.Logger
}

func NewAuditor(store storage.ObjectStorage, trail Recorder, opts Options, log logging.Logger) *Auditor {
	ignored := make(map[string]struct{}, len(opts.IgnoredIdentities))
	for _, id := range opts.IgnoredIdentities {
		if id = normalize(id); id != "" {
			ignored[id] = struct{}{}
		}
	}
	return &Auditor{store: store, trail: trail, ignored: ignored, log: log.With("module", "access")}
}

func normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// AuditAccess checks the grants of containerRef and adds a read grant for
// expected when it is a usable identity that is missing.
func (a *Auditor) AuditAccess(ctx context.Context, containerRef, expected string) AccessResult {
	grants, err := a.store.Grants(ctx, containerRef)
	if err != nil {
		a.log.Warn(ctx, "list grants", "container", containerRef, "error", err)
		return AccessResult{Status: models.StatusAPIError()}
	}

	expected = normalize(expected)
	granted := false
	var others []string
	seen := make(map[string]struct{})

	for _, g := range grants {
		if g.Type != storage.GranteeUser || g.Role == storage.RoleOwner {
			continue
		}
		id := normalize(g.Identity)
		if _, skip := a.ignored[id]; skip || id == "" {
			continue
		}
		if id == expected {
			granted = true
			continue
		}
		if _, dup := seen[id]; !dup {
			seen[id] = struct{}{}
			others = append(others, id)
		}
	}

	res := AccessResult{Status: models.StatusOK(), Note: noteOK}
	if len(others) > 0 {
		res.Note = noteUnexpected + strings.Join(others, ", ")
	}

	if granted || expected == "" || !strings.Contains(expected, "@") {
		return res
	}

	err = a.store.AddReadGrant(ctx, containerRef, expected)
	switch {
	case err == nil:
		res.Status = models.StatusFixed()
		a.record(ctx, expected, containerRef, models.AuditFixed, "", "added read grant")
	case errors.Is(err, common.ErrIncompatibleDomain):
		res.Status = models.StatusError(models.ErrorKindIncompatibleDomain)
		a.record(ctx, expected, containerRef, models.AuditError, err.Error(), "")
	default:
		res.Status = models.StatusAPIError()
		a.log.Warn(ctx, "add read grant", "container", containerRef, "identity", expected, "error", err)
	}
	return res
}

func (a *Auditor) record(ctx context.Context, subject, object string, status models.AuditStatus, reason, action string) {
	if a.trail == nil {
		return
	}
	if err := a.trail.Record(ctx, models.CategoryAccess, subject, object, status, reason, action); err != nil {
		a.log.Warn(ctx, "audit access", "error", err)
	}
}
