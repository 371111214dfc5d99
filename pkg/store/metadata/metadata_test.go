package metadata

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ocean-watch.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertDocumentDiscovered_InsertThenReDiscover(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc, err := s.UpsertDocumentDiscovered(ctx, "ICCAT", "https://x.org/a", models.CategoryRecommendationsResolutions, "Title A", nil)
	require.NoError(t, err)
	assert.Equal(t, "Title A", doc.Title)
	assert.Equal(t, models.CategoryRecommendationsResolutions, doc.DocumentType)

	pubDate := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	doc2, err := s.UpsertDocumentDiscovered(ctx, "ICCAT", "https://x.org/a", models.CategoryMeetingDecisions, "New Title", &pubDate)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, doc2.ID, "re-discovery must update the same row, not insert a new one")
	assert.Equal(t, models.CategoryMeetingDecisions, doc2.DocumentType, "document_type is always overwritten on re-discovery")
	assert.Equal(t, "Title A", doc2.Title, "title is preserved once set")
	require.NotNil(t, doc2.PublicationDate)
	assert.Equal(t, "2021-01-01", doc2.PublicationDate.Format("2006-01-02"), "publication_date is filled in only because it was previously unset")
}

func TestCreateVersion_UpdatesParentDocument(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc, err := s.UpsertDocumentDiscovered(ctx, "WCPFC", "https://x.org/b", models.CategoryCircularLetters, "B", nil)
	require.NoError(t, err)

	v, err := s.CreateVersion(ctx, doc.ID, models.DocumentVersionRecord{
		VersionNumber: 1,
		FileHash:      "hash1",
		MetadataHash:  "meta1",
		ContentHash:   "content1",
		StoredPath:    "/tmp/raw.pdf",
	}, models.StatusIngested)
	require.NoError(t, err)
	assert.Equal(t, 1, v.VersionNumber)

	updated, err := s.GetDocument(ctx, "WCPFC", "https://x.org/b")
	require.NoError(t, err)
	assert.Equal(t, 1, updated.LatestVersion)
	assert.Equal(t, "hash1", updated.LatestFileHash)
	assert.Equal(t, models.StatusIngested, updated.Status)

	latest, err := s.LatestVersion(ctx, doc.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "hash1", latest.FileHash)
}

func TestLatestVersion_NoneYet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	doc, err := s.UpsertDocumentDiscovered(ctx, "IOTC", "https://x.org/c", models.CategoryOther, "C", nil)
	require.NoError(t, err)

	v, err := s.LatestVersion(ctx, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSourceHealth_PutAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h, err := s.GetSourceHealth(ctx, "iccat")
	require.NoError(t, err)
	assert.Nil(t, h)

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, s.PutSourceHealth(ctx, models.SourceHealth{
		AdapterName: "iccat", RFMO: "ICCAT", LastSuccessAt: &now, ConsecutiveFailures: 0,
	}))

	got, err := s.GetSourceHealth(ctx, "iccat")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.ConsecutiveFailures)

	require.NoError(t, s.PutSourceHealth(ctx, models.SourceHealth{
		AdapterName: "iccat", RFMO: "ICCAT", ConsecutiveFailures: 3, LastError: "boom",
	}))
	got2, err := s.GetSourceHealth(ctx, "iccat")
	require.NoError(t, err)
	assert.Equal(t, 3, got2.ConsecutiveFailures)
	assert.Equal(t, "boom", got2.LastError)
}

func TestPutRunResult(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.PutRunResult(ctx, models.IngestionRunResult{RunID: "run-1", Metrics: models.RunMetrics{DocumentsDiscovered: 5}})
	require.NoError(t, err)
}

func TestAllStoredPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	paths, err := s.AllStoredPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)

	doc, err := s.UpsertDocumentDiscovered(ctx, "ICCAT", "https://x.org/d", models.CategoryOther, "D", nil)
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, doc.ID, models.DocumentVersionRecord{VersionNumber: 1, FileHash: "h1", StoredPath: "/tmp/a/v1/raw.pdf"}, models.StatusIngested)
	require.NoError(t, err)
	_, err = s.CreateVersion(ctx, doc.ID, models.DocumentVersionRecord{VersionNumber: 2, FileHash: "h2", StoredPath: "/tmp/a/v2/raw.pdf"}, models.StatusIngested)
	require.NoError(t, err)

	paths, err = s.AllStoredPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/a/v1/raw.pdf", "/tmp/a/v2/raw.pdf"}, paths)
}
