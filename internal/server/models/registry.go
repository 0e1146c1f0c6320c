// Package models defines the server-side data models persisted in the
// registry database.
package models

import "time"

// Health classifies a container by its aggregate size.
type Health string

const (
	HealthNormal Health = "Normal"
	HealthHeavy  Health = "HEAVY STORAGE"
)

// Ledger tracks which objects a member's container is believed (Uploaded)
// and observed (Present) to contain, and which recorded objects went
// missing (Deleted).
type Ledger struct {
	Uploaded IDSet
	Present  IDSet
	Deleted  IDSet
}

func (l Ledger) Clone() Ledger {
	return Ledger{Uploaded: l.Uploaded.Clone(), Present: l.Present.Clone(), Deleted: l.Deleted.Clone()}
}

// RegistryEntry is the per-member record tying an identity, a storage
// container and a ledger together.
type RegistryEntry struct {
	ID int64
	// UnitKey is the operator-entered display key; NormalizedKey is unique.
	UnitKey       string
	NormalizedKey string
	// OwnerIdentity is stored lowercased; empty means not configured.
	OwnerIdentity string
	// ContainerRef is empty until the entry is provisioned.
	ContainerRef string
	Access       AccessStatus
	AccessIssues string
	FullPath     string
	Ledger       Ledger
	FilesFound   int
	TotalBytes   int64
	Health       Health
	Issues       string
	// LastChecked is zero for entries never audited.
	LastChecked time.Time
	LastSynced  time.Time
}

// Provisioned reports whether the entry has a container.
func (e *RegistryEntry) Provisioned() bool { return e.ContainerRef != "" }

// EntryUpdate is a field-scoped change to one registry row. Nil fields are
// left untouched.
type EntryUpdate struct {
	EntryID      int64
	ContainerRef *string
	FullPath     *string
	Access       *AccessStatus
	AccessIssues *string
	Uploaded     *IDSet
	Present      *IDSet
	Deleted      *IDSet
	FilesFound   *int
	TotalBytes   *int64
	Health       *Health
	Issues       *string
	LastChecked  *time.Time
	LastSynced   *time.Time
}

// Empty reports whether the update changes nothing.
func (u *EntryUpdate) Empty() bool {
	return u.ContainerRef == nil && u.FullPath == nil && u.Access == nil && u.AccessIssues == nil &&
		u.Uploaded == nil && u.Present == nil && u.Deleted == nil && u.FilesFound == nil &&
		u.TotalBytes == nil && u.Health == nil && u.Issues == nil && u.LastChecked == nil && u.LastSynced == nil
}
