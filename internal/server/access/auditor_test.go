package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/storage"
	"github.com/dmitrijs2005/memvault/internal/server/storage/memstore"
)

type fakeRecorder struct {
	statuses []models.AuditStatus
}

func (f *fakeRecorder) Record(ctx context.Context, category models.AuditCategory, subject, object string,
	status models.AuditStatus, reason, action string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func setup(t *testing.T) (*memstore.Store, *fakeRecorder, *Auditor) {
	t.Helper()
	s := memstore.New()
	require.NoError(t, s.EnsureContainer(context.Background(), "c1", "", "C1"))
	rec := &fakeRecorder{}
	a := NewAuditor(s, rec, Options{IgnoredIdentities: []string{" Committee@Example.org "}}, logging.Nop{})
	return s, rec, a
}

func TestAuditAccess_AlreadyGranted(t *testing.T) {
	s, rec, a := setup(t)
	s.SetGrants("c1",
		storage.Grant{Identity: "Owner@Example.com", Type: storage.GranteeUser, Role: storage.RoleReader},
		storage.Grant{Identity: "committee@example.org", Type: storage.GranteeUser, Role: storage.RoleWriter},
		storage.Grant{Identity: "example.org", Type: storage.GranteeDomain, Role: storage.RoleReader},
	)

	res := a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, models.StatusOK(), res.Status)
	assert.Equal(t, "OK", res.Note)
	assert.Empty(t, rec.statuses)
}

func TestAuditAccess_AddsMissingGrant(t *testing.T) {
	s, rec, a := setup(t)

	res := a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, "Fixed(Added Member)", res.Status.String())
	assert.Equal(t, []models.AuditStatus{models.AuditFixed}, rec.statuses)

	grants, err := s.Grants(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", grants[len(grants)-1].Identity)

	res = a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, models.StatusOK(), res.Status)
}

func TestAuditAccess_UnexpectedGranteesAreReported(t *testing.T) {
	s, _, a := setup(t)
	s.SetGrants("c1",
		storage.Grant{Identity: "owner@example.com", Type: storage.GranteeUser, Role: storage.RoleReader},
		storage.Grant{Identity: "tenant@example.com", Type: storage.GranteeUser, Role: storage.RoleReader},
		storage.Grant{Identity: "agent@example.com", Type: storage.GranteeUser, Role: storage.RoleWriter},
	)

	res := a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, models.StatusOK(), res.Status)
	assert.Equal(t, "Unexpected: tenant@example.com, agent@example.com", res.Note)

	grants, err := s.Grants(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, grants, 4, "nothing is revoked")
}

func TestAuditAccess_IncompatibleDomain(t *testing.T) {
	s, rec, a := setup(t)
	s.RejectIdentity("owner@corp.example")

	res := a.AuditAccess(context.Background(), "c1", "owner@corp.example")
	assert.Equal(t, "Error: incompatible domain", res.Status.String())
	assert.Equal(t, []models.AuditStatus{models.AuditError}, rec.statuses)
}

func TestAuditAccess_ListFailure(t *testing.T) {
	s, _, a := setup(t)
	s.FailGrants("c1", errors.New("quota exceeded"))

	res := a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, "API Access Error", res.Status.String())
}

type failingGrantStore struct {
	*memstore.Store
}

func (failingGrantStore) AddReadGrant(ctx context.Context, containerRef, identity string) error {
	return errors.New("backend unavailable")
}

func TestAuditAccess_OtherGrantFailure(t *testing.T) {
	s, rec, _ := setup(t)
	a := NewAuditor(failingGrantStore{s}, rec, Options{}, logging.Nop{})

	res := a.AuditAccess(context.Background(), "c1", "owner@example.com")
	assert.Equal(t, models.StatusAPIError(), res.Status)
	assert.Empty(t, rec.statuses)
}

func TestAuditAccess_UnusableExpectedIdentity(t *testing.T) {
	s, rec, a := setup(t)

	for _, expected := range []string{"", "not-an-email"} {
		res := a.AuditAccess(context.Background(), "c1", expected)
		assert.Equal(t, models.StatusOK(), res.Status, expected)
	}
	assert.Empty(t, rec.statuses)
	grants, err := s.Grants(context.Background(), "c1")
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}
