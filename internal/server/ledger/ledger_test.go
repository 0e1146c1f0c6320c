package ledger

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

type recorded struct {
	category models.AuditCategory
	subject  string
	object   string
	status   models.AuditStatus
}

type fakeRecorder struct {
	recs []recorded
}

func (f *fakeRecorder) Record(ctx context.Context, category models.AuditCategory, subject, object string,
	status models.AuditStatus, reason, action string) error {
	f.recs = append(f.recs, recorded{category, subject, object, status})
	return nil
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"deed.pdf", "deed.pdf"},
		{"  sale   deed (1).pdf ", "sale deed _1_.pdf"},
		{"a/b\\c:d.png", "a_b_c_d.png"},
		{"tab\tname", "tab name"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

const (
	id1 = "1111111111111111111111111a"
	id2 = "2222222222222222222222222b"
	id3 = "3333333333333333333333333c"
)

func newEntry(t *testing.T, s *memstore.Store) *models.RegistryEntry {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.EnsureContainer(ctx, "root", "", "Vault"))
	ref, err := s.CreateContainer(ctx, "root", "A-104")
	require.NoError(t, err)
	return &models.RegistryEntry{ID: 1, UnitKey: "A-104", NormalizedKey: "a-104", ContainerRef: ref}
}

func TestSyncFiles_MovesNewIDs(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	entry.Ledger.Uploaded = models.NewIDSet(id1)
	entry.Ledger.Present = models.NewIDSet(id1)
	entry.Ledger.Deleted = models.NewIDSet(id2)

	s.PutInbound(storage.ObjectInfo{ID: id2, Name: "sale deed.pdf", Size: 100})
	s.PutInbound(storage.ObjectInfo{ID: id3, Name: "id?card.jpg", Size: 50})

	rec := &fakeRecorder{}
	res := NewSyncer(s, rec, nil, logging.Nop{}).SyncFiles(context.Background(), entry, []string{id1, id2, id3})

	assert.Equal(t, 2, res.Accepted)
	assert.Equal(t, int64(150), res.AddedBytes)
	assert.Equal(t, []string{"sale deed.pdf", "id_card.jpg"}, res.Files)
	assert.Equal(t, []string{id1, id2, id3}, res.Ledger.Uploaded.IDs())
	assert.Equal(t, []string{id1, id2, id3}, res.Ledger.Present.IDs())
	assert.Equal(t, 0, res.Ledger.Deleted.Len())
	assert.Equal(t, 2, s.Moves())

	require.Len(t, rec.recs, 2)
	for _, r := range rec.recs {
		assert.Equal(t, models.CategorySync, r.category)
		assert.Equal(t, models.AuditSuccess, r.status)
	}

	assert.Equal(t, []string{id1}, entry.Ledger.Uploaded.IDs(), "entry ledger is not mutated")
}

func TestSyncFiles_PerIDFailuresDoNotAbort(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)

	s.PutInbound(storage.ObjectInfo{ID: id1, Name: "trashed.pdf", Trashed: true})
	s.FailObject(id2, errors.New("rate limited"))
	s.PutInbound(storage.ObjectInfo{ID: id3, Name: "ok.pdf", Size: 7})

	rec := &fakeRecorder{}
	res := NewSyncer(s, rec, nil, logging.Nop{}).SyncFiles(context.Background(), entry, []string{id1, id2, id3})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, []string{id3}, res.Ledger.Uploaded.IDs())
	assert.Len(t, rec.recs, 1)
}

func TestSyncFiles_IDNotInInboxIsSkipped(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	s.PutInbound(storage.ObjectInfo{ID: id2, Name: "b.pdf", Size: 3})

	rec := &fakeRecorder{}
	res := NewSyncer(s, rec, nil, logging.Nop{}).SyncFiles(context.Background(), entry, []string{id1, id2})

	assert.Equal(t, 1, res.Accepted)
	assert.Equal(t, []string{id2}, res.Ledger.Uploaded.IDs())
	assert.Equal(t, 1, s.Moves())
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "Synced", Summarize(models.IDSet{}, models.IDSet{}))
	assert.Equal(t, "Manual upload (+2)", Summarize(models.NewIDSet("a", "b"), models.IDSet{}))
	assert.Equal(t, "Manual upload (+1) | Missing (1 deleted)", Summarize(models.NewIDSet("a"), models.NewIDSet("z")))
}

func TestSyncFiles_ResubmissionIsIdempotent(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	s.PutInbound(storage.ObjectInfo{ID: id1, Name: "a.pdf", Size: 1})

	sy := NewSyncer(s, &fakeRecorder{}, nil, logging.Nop{})
	first := sy.SyncFiles(context.Background(), entry, []string{id1})
	entry.Ledger = first.Ledger

	second := sy.SyncFiles(context.Background(), entry, []string{id1})
	assert.Equal(t, 0, second.Accepted)
	assert.Equal(t, 1, s.Moves())
}

func TestReconcile_ManualUpload(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: id, Size: 10}))
	}

	res, err := NewReconciler(s, 0).Reconcile(context.Background(), entry.ContainerRef, models.NewIDSet("1", "2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"3"}, res.Manual.IDs())
	assert.Equal(t, 0, res.Deleted.Len())
	assert.Equal(t, []string{"1", "2", "3"}, res.Present.IDs())
	assert.Equal(t, "Manual upload (+1)", res.Issues)
	assert.Equal(t, 3, res.FilesFound)
	assert.Equal(t, int64(30), res.TotalBytes)
	assert.Equal(t, models.HealthNormal, res.Health)
}

func TestReconcile_MissingFile(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: "1"}))

	res, err := NewReconciler(s, 0).Reconcile(context.Background(), entry.ContainerRef, models.NewIDSet("1", "2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, res.Deleted.IDs())
	assert.Equal(t, 0, res.Manual.Len())
	assert.Equal(t, "Missing (1 deleted)", res.Issues)
}

func TestReconcile_IssuesAndHealth(t *testing.T) {
	s := memstore.New()
	entry := newEntry(t, s)
	require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: "1", Size: 60}))
	require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: "9", Size: 60}))
	require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: "t", Size: 1000, Trashed: true}))

	r := NewReconciler(s, 100)
	res, err := r.Reconcile(context.Background(), entry.ContainerRef, models.NewIDSet("1", "2"))
	require.NoError(t, err)
	assert.Equal(t, "Manual upload (+1) | Missing (1 deleted)", res.Issues)
	assert.Equal(t, int64(120), res.TotalBytes)
	assert.Equal(t, models.HealthHeavy, res.Health)

	s.RemoveObject(entry.ContainerRef, "9")
	res, err = r.Reconcile(context.Background(), entry.ContainerRef, models.NewIDSet("1"))
	require.NoError(t, err)
	assert.Equal(t, "Synced", res.Issues)
	assert.Equal(t, models.HealthNormal, res.Health)
}

func TestReconcile_CoverageInvariant(t *testing.T) {
	cases := []struct {
		observed []string
		uploaded []string
	}{
		{nil, nil},
		{nil, []string{"a", "b"}},
		{[]string{"a", "b"}, nil},
		{[]string{"a", "c"}, []string{"a", "b"}},
		{[]string{"x", "y", "z"}, []string{"z", "q", "x"}},
	}

	for _, tc := range cases {
		s := memstore.New()
		entry := newEntry(t, s)
		for _, id := range tc.observed {
			require.NoError(t, s.PutObject(entry.ContainerRef, storage.ObjectInfo{ID: id}))
		}
		uploaded := models.NewIDSet(tc.uploaded...)

		res, err := NewReconciler(s, 0).Reconcile(context.Background(), entry.ContainerRef, uploaded)
		require.NoError(t, err)
		assert.True(t, res.Present.Union(res.Deleted).Covers(uploaded), "observed=%v uploaded=%v", tc.observed, tc.uploaded)
	}
}

func TestReconcile_ListError(t *testing.T) {
	_, err := NewReconciler(memstore.New(), 0).Reconcile(context.Background(), "missing", models.IDSet{})
	assert.Error(t, err)
}
