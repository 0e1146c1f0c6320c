// Package memrepo is an in-memory RepositoryManager. Every repository it
// vends shares one state regardless of the DBTX passed in, so services can
// be exercised with sqlmock handling only transaction boundaries.
package memrepo

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/audit"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/registry"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/roster"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/templates"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/watchlist"
)

type Manager struct {
	mu        sync.Mutex
	entries   map[int64]*models.RegistryEntry
	nextID    int64
	audit     []models.AuditRecord
	roster    []*models.RosterRow
	terms     []string
	templates map[string]models.Template

	// ListErr, when set, is returned by registry List.
	ListErr error
}

func New() *Manager {
	return &Manager{
		entries:   make(map[int64]*models.RegistryEntry),
		templates: make(map[string]models.Template),
	}
}

func (m *Manager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *Manager) Registry(dbx.DBTX) registry.Repository   { return (*registryRepo)(m) }
func (m *Manager) Audit(dbx.DBTX) audit.Repository         { return (*auditRepo)(m) }
func (m *Manager) Roster(dbx.DBTX) roster.Repository       { return (*rosterRepo)(m) }
func (m *Manager) Watchlist(dbx.DBTX) watchlist.Repository { return (*watchlistRepo)(m) }
func (m *Manager) Templates(dbx.DBTX) templates.Repository { return (*templatesRepo)(m) }

// Put stores a copy of e, assigning an id when it has none.
func (m *Manager) Put(e models.RegistryEntry) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == 0 {
		m.nextID++
		e.ID = m.nextID
	} else if e.ID > m.nextID {
		m.nextID = e.ID
	}
	e.Ledger = e.Ledger.Clone()
	m.entries[e.ID] = &e
	return e.ID
}

// Entry returns a copy of the entry with id.
func (m *Manager) Entry(id int64) (models.RegistryEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return models.RegistryEntry{}, false
	}
	out := *e
	out.Ledger = e.Ledger.Clone()
	return out, true
}

// AuditRecords returns the appended records in order.
func (m *Manager) AuditRecords() []models.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditRecord(nil), m.audit...)
}

// RosterRows returns copies of the roster rows.
func (m *Manager) RosterRows() []models.RosterRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RosterRow, 0, len(m.roster))
	for _, r := range m.roster {
		out = append(out, *r)
	}
	return out
}

func (m *Manager) SetTerms(terms ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms = terms
}

func (m *Manager) PutTemplate(t models.Template) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[strings.ToUpper(strings.TrimSpace(t.Key))] = t
}

type registryRepo Manager

func (r *registryRepo) List(ctx context.Context) ([]models.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]models.RegistryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		c := *e
		c.Ledger = e.Ledger.Clone()
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *registryRepo) FindByNormalizedKey(ctx context.Context, key string) (*models.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.NormalizedKey == key {
			c := *e
			c.Ledger = e.Ledger.Clone()
			return &c, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *registryRepo) Create(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	r.mu.Lock()
	for _, e := range r.entries {
		if e.NormalizedKey == entry.NormalizedKey {
			r.mu.Unlock()
			return nil, fmt.Errorf("unit %s: %w", entry.NormalizedKey, common.ErrorAlreadyExists)
		}
	}
	r.mu.Unlock()
	entry.ID = (*Manager)(r).Put(*entry)
	return entry, nil
}

func (r *registryRepo) Apply(ctx context.Context, upd models.EntryUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[upd.EntryID]
	if !ok {
		return common.ErrorNotFound
	}
	if upd.ContainerRef != nil {
		e.ContainerRef = *upd.ContainerRef
	}
	if upd.FullPath != nil {
		e.FullPath = *upd.FullPath
	}
	if upd.Access != nil {
		e.Access = *upd.Access
	}
	if upd.AccessIssues != nil {
		e.AccessIssues = *upd.AccessIssues
	}
	if upd.Uploaded != nil {
		e.Ledger.Uploaded = upd.Uploaded.Clone()
	}
	if upd.Present != nil {
		e.Ledger.Present = upd.Present.Clone()
	}
	if upd.Deleted != nil {
		e.Ledger.Deleted = upd.Deleted.Clone()
	}
	if upd.FilesFound != nil {
		e.FilesFound = *upd.FilesFound
	}
	if upd.TotalBytes != nil {
		e.TotalBytes = *upd.TotalBytes
	}
	if upd.Health != nil {
		e.Health = *upd.Health
	}
	if upd.Issues != nil {
		e.Issues = *upd.Issues
	}
	if upd.LastChecked != nil {
		e.LastChecked = *upd.LastChecked
	}
	if upd.LastSynced != nil {
		e.LastSynced = *upd.LastSynced
	}
	return nil
}

func (r *registryRepo) UploadedIDs(ctx context.Context, id int64) (models.IDSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return models.IDSet{}, common.ErrorNotFound
	}
	return e.Ledger.Uploaded.Clone(), nil
}

type auditRepo Manager

func (r *auditRepo) Append(ctx context.Context, rec *models.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = int64(len(r.audit) + 1)
	r.audit = append(r.audit, *rec)
	return nil
}

func (r *auditRepo) List(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AuditRecord
	for i := len(r.audit) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.audit[i])
	}
	return out, nil
}

type rosterRepo Manager

func (r *rosterRepo) Upsert(ctx context.Context, row *models.RosterRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roster {
		if existing.NormalizedKey == row.NormalizedKey {
			existing.UnitKey = row.UnitKey
			existing.SubmittedAt = row.SubmittedAt
			existing.Email = row.Email
			existing.OwnerName = row.OwnerName
			existing.Phone = row.Phone
			existing.ContainerLink = row.ContainerLink
			row.ID, row.Status, row.Remarks = existing.ID, existing.Status, existing.Remarks
			return nil
		}
	}
	c := *row
	c.ID = int64(len(r.roster) + 1)
	c.Status = roster.StatusNew
	c.Remarks = roster.RemarksUnassigned
	r.roster = append(r.roster, &c)
	row.ID, row.Status, row.Remarks = c.ID, c.Status, c.Remarks
	return nil
}

func (r *rosterRepo) List(ctx context.Context) ([]models.RosterRow, error) {
	return (*Manager)(r).RosterRows(), nil
}

func (r *rosterRepo) SetWatchlist(ctx context.Context, id int64, flag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.roster {
		if row.ID == id {
			row.Watchlist = flag
			return nil
		}
	}
	return common.ErrorNotFound
}

type watchlistRepo Manager

func (r *watchlistRepo) Terms(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.terms...), nil
}

type templatesRepo Manager

func (r *templatesRepo) FindByKey(ctx context.Context, key string) (*models.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[strings.ToUpper(strings.TrimSpace(key))]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}
