package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtForContentType(t *testing.T) {
	assert.Equal(t, ".pdf", ExtForContentType("application/pdf", ""))
	assert.Equal(t, ".html", ExtForContentType("text/html; charset=utf-8", ""))
	assert.Equal(t, ".docx", ExtForContentType("", "https://x.org/a.docx"))
	assert.Equal(t, ".bin", ExtForContentType("", "https://x.org/a"))
}

func TestPersist_WritesAllFilesAndMetadata(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	snapshot := "<html>snap</html>"
	year := 2021
	result, err := s.Persist("ICCAT", &year, 42, 1, ".pdf", []byte("raw bytes"), "extracted text", &snapshot, Metadata{
		SourceURL: "https://x.org/a.pdf",
		RFMO:      "ICCAT",
		FileHash:  "abc123",
	})
	require.NoError(t, err)

	wantDir := filepath.Join(dir, "iccat", "2021", "42", "v1")
	assert.Equal(t, filepath.Join(wantDir, "raw.pdf"), result.RawPath)
	assert.Equal(t, filepath.Join(wantDir, "extracted.txt"), result.ExtractedPath)
	assert.Equal(t, filepath.Join(wantDir, "snapshot.html"), result.SnapshotPath)
	assert.Equal(t, filepath.Join(wantDir, "metadata.json"), result.MetadataPath)
	assert.Greater(t, result.BytesWritten, int64(0))

	rawBytes, err := os.ReadFile(result.RawPath)
	require.NoError(t, err)
	assert.Equal(t, "raw bytes", string(rawBytes))

	var meta map[string]any
	metaBytes, err := os.ReadFile(result.MetadataPath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(metaBytes, &meta))
	assert.Equal(t, "abc123", meta["file_hash"])
	assert.Equal(t, float64(1), meta["version_number"])
}

func TestPersist_NoSnapshotWhenNil(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	result, err := s.Persist("WCPFC", nil, 1, 1, "", []byte("x"), "y", nil, Metadata{})
	require.NoError(t, err)
	assert.Empty(t, result.SnapshotPath)

	_, statErr := os.Stat(filepath.Join(dir, "wcpfc"))
	require.NoError(t, statErr)
}

func TestPersist_RefusesToOverwriteExistingVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	year := 2022

	_, err := s.Persist("IOTC", &year, 7, 1, ".pdf", []byte("a"), "a", nil, Metadata{})
	require.NoError(t, err)

	_, err = s.Persist("IOTC", &year, 7, 1, ".pdf", []byte("b"), "b", nil, Metadata{})
	require.Error(t, err)
}
