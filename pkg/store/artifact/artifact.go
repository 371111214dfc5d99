// Package artifact implements the versioned on-disk layout: one directory
// per (rfmo, year, document, version) holding the raw bytes, extracted
// text, an optional HTML snapshot, and a metadata sidecar.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
)

// Store writes versioned artifacts under a single root directory.
type Store struct {
	root string
}

// NewStore constructs a Store rooted at root. It does not create root
// eagerly — directories are created idempotently on first persist.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Metadata is the full payload written to metadata.json.
type Metadata struct {
	SourceURL        string            `json:"source_url"`
	RFMO             string            `json:"rfmo"`
	DocumentType     string            `json:"document_type"`
	Title            string            `json:"title"`
	PublicationDate  string            `json:"publication_date,omitempty"`
	DocumentNumber   string            `json:"document_number,omitempty"`
	MeetingReference string            `json:"meeting_reference,omitempty"`
	RFMORegion       string            `json:"rfmo_region,omitempty"`
	VersionNumber    int               `json:"version_number"`
	FileHash         string            `json:"file_hash"`
	ContentHash      string            `json:"content_hash"`
	MetadataHash     string            `json:"metadata_hash"`
	ETag             string            `json:"etag,omitempty"`
	LastModified     string            `json:"last_modified,omitempty"`
	ContentType      string            `json:"content_type,omitempty"`
	Headers          map[string]string `json:"headers,omitempty"`
	ParserInfo       map[string]string `json:"parser_info,omitempty"`
	AdapterMetadata  map[string]string `json:"adapter_metadata,omitempty"`
}

// Result is what Persist returns.
type Result struct {
	RawPath         string
	ExtractedPath   string
	SnapshotPath    string // empty when no snapshot was produced
	MetadataPath    string
	BytesWritten    int64
}

// Persist writes raw<ext>, extracted.txt, metadata.json, and (if snapshotHTML
// is non-nil) snapshot.html into
// <root>/<rfmo>/<year>/<documentID>/v<versionNumber>/. It refuses to
// overwrite an existing version directory.
func (s *Store) Persist(rfmo string, publicationYear *int, documentID int64, versionNumber int, ext string, rawBody []byte, extractedText string, snapshotHTML *string, meta Metadata) (*Result, error) {
	year := time.Now().UTC().Year()
	if publicationYear != nil {
		year = *publicationYear
	}

	versionDir := filepath.Join(
		s.root,
		strings.ToLower(rfmo),
		strconv.Itoa(year),
		strconv.FormatInt(documentID, 10),
		"v"+strconv.Itoa(versionNumber),
	)

	if _, err := os.Stat(versionDir); err == nil {
		return nil, &ingesterr.StorageError{Path: versionDir, Cause: fmt.Errorf("version directory already exists")}
	}
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return nil, &ingesterr.StorageError{Path: versionDir, Cause: err}
	}

	var bytesWritten int64

	rawPath := filepath.Join(versionDir, "raw"+normalizeExt(ext))
	n, err := writeFile(rawPath, rawBody)
	if err != nil {
		return nil, &ingesterr.StorageError{Path: rawPath, Cause: err}
	}
	bytesWritten += n

	extractedPath := filepath.Join(versionDir, "extracted.txt")
	n, err = writeFile(extractedPath, []byte(extractedText))
	if err != nil {
		return nil, &ingesterr.StorageError{Path: extractedPath, Cause: err}
	}
	bytesWritten += n

	var snapshotPath string
	if snapshotHTML != nil {
		snapshotPath = filepath.Join(versionDir, "snapshot.html")
		n, err = writeFile(snapshotPath, []byte(*snapshotHTML))
		if err != nil {
			return nil, &ingesterr.StorageError{Path: snapshotPath, Cause: err}
		}
		bytesWritten += n
	}

	meta.VersionNumber = versionNumber
	metadataJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, &ingesterr.StorageError{Path: versionDir, Cause: err}
	}
	metadataJSON = asciiSafe(metadataJSON)

	metadataPath := filepath.Join(versionDir, "metadata.json")
	n, err = writeFile(metadataPath, metadataJSON)
	if err != nil {
		return nil, &ingesterr.StorageError{Path: metadataPath, Cause: err}
	}
	bytesWritten += n

	return &Result{
		RawPath:       rawPath,
		ExtractedPath: extractedPath,
		SnapshotPath:  snapshotPath,
		MetadataPath:  metadataPath,
		BytesWritten:  bytesWritten,
	}, nil
}

func writeFile(path string, data []byte) (int64, error) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func normalizeExt(ext string) string {
	if ext == "" {
		return ".bin"
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

// ExtForContentType picks the artifact extension from content-type, else
// URL suffix, else ".bin".
func ExtForContentType(contentType, sourceURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return ".pdf"
	case strings.Contains(ct, "html"):
		return ".html"
	case strings.Contains(ct, "wordprocessingml"), strings.Contains(ct, "msword"):
		return ".docx"
	}

	lowerURL := strings.ToLower(sourceURL)
	for _, ext := range []string{".pdf", ".html", ".htm", ".docx", ".doc", ".xlsx", ".xls"} {
		if strings.HasSuffix(lowerURL, ext) {
			return ext
		}
	}
	return ".bin"
}

// asciiSafe escapes any byte sequence outside the ASCII range as \uXXXX, so
// metadata sidecars stay ASCII-safe regardless of source-document content.
func asciiSafe(b []byte) []byte {
	var out []byte
	for _, r := range string(b) {
		if r < 0x80 {
			out = append(out, byte(r))
			continue
		}
		if r > 0xFFFF {
			hi, lo := utf16.EncodeRune(r)
			out = append(out, []byte(fmt.Sprintf(`\u%04x\u%04x`, hi, lo))...)
			continue
		}
		out = append(out, []byte(fmt.Sprintf(`\u%04x`, r))...)
	}
	return out
}
