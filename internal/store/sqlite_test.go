package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleRecord(accession string) FilingRecord {
	return FilingRecord{
		Accession:  accession,
		CIK:        "0000320193",
		FormType:   "10-K",
		FilingDate: "2024-11-01",
		TarPath:    "/data/tars/batch_001.tar",
		Member:     accession + "/",
	}
}

func TestIndexAndGetFiling(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.IndexFiling(ctx, sampleRecord("0000320193-24-000123"))
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.IndexedAt.IsZero())

	got, err := s.GetFiling(ctx, "0000320193-24-000123")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "10-K", got.FormType)
	assert.Equal(t, "/data/tars/batch_001.tar", got.TarPath)
}

func TestGetFilingMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetFiling(context.Background(), "0000000000-00-000000")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIndexFilingUpsertsByAccession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.IndexFiling(ctx, sampleRecord("0000320193-24-000123"))
	require.NoError(t, err)

	moved := sampleRecord("0000320193-24-000123")
	moved.TarPath = "/data/tars/batch_002.tar"
	second, err := s.IndexFiling(ctx, moved)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "/data/tars/batch_002.tar", second.TarPath)

	recs, err := s.ListFilings(ctx, FilingFilter{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestListFilingsFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := sampleRecord("0000320193-23-000100")
	older.FilingDate = "2023-11-03"
	_, err := s.IndexFiling(ctx, older)
	require.NoError(t, err)

	newer := sampleRecord("0000320193-24-000123")
	_, err = s.IndexFiling(ctx, newer)
	require.NoError(t, err)

	other := sampleRecord("0000789019-24-000055")
	other.CIK = "0000789019"
	other.FormType = "10-Q"
	_, err = s.IndexFiling(ctx, other)
	require.NoError(t, err)

	recs, err := s.ListFilings(ctx, FilingFilter{CIK: "0000320193"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "0000320193-24-000123", recs[0].Accession) // newest first
	assert.Equal(t, "0000320193-23-000100", recs[1].Accession)

	recs, err = s.ListFilings(ctx, FilingFilter{FormType: "10-Q"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "0000789019-24-000055", recs[0].Accession)

	recs, err = s.ListFilings(ctx, FilingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestListFilingsByTarPath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.IndexFiling(ctx, sampleRecord("0000320193-24-000123"))
	require.NoError(t, err)
	other := sampleRecord("0000789019-24-000055")
	other.TarPath = "/data/tars/batch_002.tar"
	_, err = s.IndexFiling(ctx, other)
	require.NoError(t, err)

	recs, err := s.ListFilings(ctx, FilingFilter{TarPath: "/data/tars/batch_002.tar", Limit: -1})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "0000789019-24-000055", recs[0].Accession)
}

func TestDeleteFilingsForTar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.IndexFiling(ctx, sampleRecord("0000320193-24-000123"))
	require.NoError(t, err)
	other := sampleRecord("0000789019-24-000055")
	other.TarPath = "/data/tars/batch_002.tar"
	_, err = s.IndexFiling(ctx, other)
	require.NoError(t, err)

	n, err := s.DeleteFilingsForTar(ctx, "/data/tars/batch_001.tar")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetFiling(ctx, "0000320193-24-000123")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = s.GetFiling(ctx, "0000789019-24-000055")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestETagRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	etag, err := s.GetETag(ctx, "https://data.sec.gov/submissions/CIK0000320193.json")
	require.NoError(t, err)
	assert.Empty(t, etag)

	require.NoError(t, s.SetETag(ctx, "https://data.sec.gov/submissions/CIK0000320193.json", `"v1"`))
	require.NoError(t, s.SetETag(ctx, "https://data.sec.gov/submissions/CIK0000320193.json", `"v2"`))

	etag, err = s.GetETag(ctx, "https://data.sec.gov/submissions/CIK0000320193.json")
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, etag)
}
