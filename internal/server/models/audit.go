package models

import "time"

// AuditCategory groups audit records by the action that produced them.
type AuditCategory string

const (
	CategoryIdentityMismatch AuditCategory = "IDENTITY_MISMATCH"
	CategoryUnknownUnit      AuditCategory = "UNKNOWN_UNIT"
	CategoryGate             AuditCategory = "GATE"
	CategorySync             AuditCategory = "SYNC"
	CategoryProvision        AuditCategory = "PROVISION"
	CategoryAccess           AuditCategory = "ACCESS"
	CategoryReconcile        AuditCategory = "RECONCILE"
	CategorySystem           AuditCategory = "SYSTEM"
)

// AuditStatus is the outcome recorded with an audit record.
type AuditStatus string

const (
	AuditBlocked  AuditStatus = "BLOCKED"
	AuditPending  AuditStatus = "PENDING"
	AuditAdmitted AuditStatus = "ADMITTED"
	AuditSuccess  AuditStatus = "SUCCESS"
	AuditCreated  AuditStatus = "CREATED"
	AuditFixed    AuditStatus = "FIXED"
	AuditWarning  AuditStatus = "WARNING"
	AuditError    AuditStatus = "ERROR"
	AuditDropped  AuditStatus = "DROPPED"
)

// AuditRecord is one immutable, append-only audit trail row.
type AuditRecord struct {
	ID        int64
	Timestamp time.Time
	Category  AuditCategory
	// Subject is a unit key or an identity.
	Subject string
	// Object is what the action touched, e.g. a file name.
	Object string
	Status AuditStatus
	Reason string
	Action string
}
