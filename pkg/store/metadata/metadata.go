// Package metadata implements the Metadata Store: a SQLite-backed
// transactional store for documents, their versions, per-adapter source
// health, and run records.
package metadata

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    rfmo TEXT NOT NULL,
    source_url TEXT NOT NULL,
    document_type TEXT NOT NULL,
    title TEXT,
    publication_date TEXT,
    latest_version INTEGER NOT NULL DEFAULT 0,
    latest_file_hash TEXT,
    status TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    UNIQUE(rfmo, source_url)
);

CREATE TABLE IF NOT EXISTS document_versions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id INTEGER NOT NULL,
    version_number INTEGER NOT NULL,
    file_hash TEXT,
    etag TEXT,
    last_modified TEXT,
    metadata_hash TEXT,
    content_hash TEXT,
    status TEXT NOT NULL,
    stored_path TEXT,
    extracted_text_path TEXT,
    snapshot_html_path TEXT,
    metadata_path TEXT,
    created_at TIMESTAMP NOT NULL,
    UNIQUE(document_id, version_number)
);

CREATE TABLE IF NOT EXISTS source_health (
    adapter_name TEXT PRIMARY KEY,
    rfmo TEXT NOT NULL,
    last_success_at TIMESTAMP,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    last_error TEXT
);

CREATE TABLE IF NOT EXISTS ingestion_runs (
    run_id TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_rfmo ON documents(rfmo);
CREATE INDEX IF NOT EXISTS idx_document_versions_doc_version ON document_versions(document_id, version_number DESC);
`

// Store is a single-writer SQLite-backed metadata store. All reads and
// writes go through mu over a single database connection; the DSN also
// enables WAL mode.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if necessary) the SQLite database at path and
// initializes its schema idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "open", Cause: err}
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return &ingesterr.MetadataError{Op: "init_schema", Cause: err}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

func dateString(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format("2006-01-02"), Valid: true}
}

// UpsertDocumentDiscovered implements the idempotent discovery upsert: a
// new (rfmo, source_url) pair is inserted fresh; a re-discovery overwrites
// document_type and fills in title/publication_date only if they were not
// already set.
func (s *Store) UpsertDocumentDiscovered(ctx context.Context, rfmo, sourceURL string, documentType models.DocumentCategory, title string, publicationDate *time.Time) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	existing, err := s.getDocumentLocked(ctx, rfmo, sourceURL)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO documents (rfmo, source_url, document_type, title, publication_date, latest_version, latest_file_hash, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, 0, '', ?, ?, ?)`,
			rfmo, sourceURL, string(documentType), title, dateString(publicationDate), string(models.StatusDiscovered), now, now,
		)
		if err != nil {
			return nil, &ingesterr.MetadataError{Op: "upsert_document_discovered/insert", Cause: err}
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, &ingesterr.MetadataError{Op: "upsert_document_discovered/insert", Cause: err}
		}
		return s.getDocumentByIDLocked(ctx, id)
	}

	newTitle := existing.Title
	if newTitle == "" {
		newTitle = title
	}
	newPublicationDate := existing.PublicationDate
	if newPublicationDate == nil {
		newPublicationDate = publicationDate
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET document_type = ?, title = ?, publication_date = ?, updated_at = ? WHERE id = ?`,
		string(documentType), newTitle, dateString(newPublicationDate), now, existing.ID,
	)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "upsert_document_discovered/update", Cause: err}
	}
	return s.getDocumentByIDLocked(ctx, existing.ID)
}

// CreateVersion inserts a new document_versions row and atomically updates
// the parent document's latest_version/latest_file_hash/status/updated_at.
func (s *Store) CreateVersion(ctx context.Context, documentID int64, v models.DocumentVersionRecord, status models.ProcessingStatus) (*models.DocumentVersionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "create_version/begin", Cause: err}
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO document_versions (document_id, version_number, file_hash, etag, last_modified, metadata_hash, content_hash, status, stored_path, extracted_text_path, snapshot_html_path, metadata_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		documentID, v.VersionNumber, v.FileHash, v.ETag, v.LastModified, v.MetadataHash, v.ContentHash,
		string(v.Status), v.StoredPath, v.ExtractedTextPath, v.SnapshotHTMLPath, v.MetadataPath, now,
	)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "create_version/insert", Cause: err}
	}
	versionID, err := res.LastInsertId()
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "create_version/insert", Cause: err}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET latest_version = ?, latest_file_hash = ?, status = ?, updated_at = ? WHERE id = ?`,
		v.VersionNumber, v.FileHash, string(status), now, documentID,
	)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "create_version/update_document", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &ingesterr.MetadataError{Op: "create_version/commit", Cause: err}
	}

	v.ID = versionID
	v.DocumentID = documentID
	v.Status = status
	v.CreatedAt = now
	return &v, nil
}

// LatestVersion returns the most recent version_number row for a document,
// or nil if none exists.
func (s *Store) LatestVersion(ctx context.Context, documentID int64) (*models.DocumentVersionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestVersionLocked(ctx, documentID)
}

func (s *Store) latestVersionLocked(ctx context.Context, documentID int64) (*models.DocumentVersionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document_id, version_number, file_hash, etag, last_modified, metadata_hash, content_hash, status, stored_path, extracted_text_path, snapshot_html_path, metadata_path, created_at
		 FROM document_versions WHERE document_id = ? ORDER BY version_number DESC LIMIT 1`,
		documentID,
	)
	var v models.DocumentVersionRecord
	var status string
	var createdAt time.Time
	var etag, lastModified, storedPath, extractedPath, snapshotPath, metadataPath sql.NullString
	err := row.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.FileHash, &etag, &lastModified, &v.MetadataHash, &v.ContentHash, &status, &storedPath, &extractedPath, &snapshotPath, &metadataPath, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "latest_version", Cause: err}
	}
	v.ETag = etag.String
	v.LastModified = lastModified.String
	v.StoredPath = storedPath.String
	v.ExtractedTextPath = extractedPath.String
	v.SnapshotHTMLPath = snapshotPath.String
	v.MetadataPath = metadataPath.String
	v.Status = models.ProcessingStatus(status)
	v.CreatedAt = createdAt
	return &v, nil
}

// GetDocument looks up a document by (rfmo, source_url).
func (s *Store) GetDocument(ctx context.Context, rfmo, sourceURL string) (*models.DocumentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getDocumentLocked(ctx, rfmo, sourceURL)
}

func (s *Store) getDocumentLocked(ctx context.Context, rfmo, sourceURL string) (*models.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM documents WHERE rfmo = ? AND source_url = ?`, rfmo, sourceURL,
	)
	var id int64
	if err := row.Scan(&id); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, &ingesterr.MetadataError{Op: "get_document", Cause: err}
	}
	return s.getDocumentByIDLocked(ctx, id)
}

func (s *Store) getDocumentByIDLocked(ctx context.Context, id int64) (*models.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, rfmo, source_url, document_type, title, publication_date, latest_version, latest_file_hash, status, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	)
	var d models.DocumentRecord
	var documentType, status string
	var title, publicationDate, latestFileHash sql.NullString
	var createdAt, updatedAt time.Time
	err := row.Scan(&d.ID, &d.RFMO, &d.SourceURL, &documentType, &title, &publicationDate, &d.LatestVersion, &latestFileHash, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "get_document_by_id", Cause: err}
	}
	d.DocumentType = models.DocumentCategory(documentType)
	d.Title = title.String
	d.LatestFileHash = latestFileHash.String
	d.Status = models.ProcessingStatus(status)
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt
	if publicationDate.Valid && publicationDate.String != "" {
		if t, err := time.Parse("2006-01-02", publicationDate.String); err == nil {
			d.PublicationDate = &t
		}
	}
	return &d, nil
}

// SetDocumentStatus updates a document's status column directly, used when
// an ingest attempt fails or is skipped without creating a new version.
func (s *Store) SetDocumentStatus(ctx context.Context, documentID int64, status models.ProcessingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`, string(status), time.Now().UTC(), documentID)
	if err != nil {
		return &ingesterr.MetadataError{Op: "set_document_status", Cause: err}
	}
	return nil
}

// GetSourceHealth looks up the stored health snapshot for an adapter, or
// nil if none has been recorded yet.
func (s *Store) GetSourceHealth(ctx context.Context, adapterName string) (*models.SourceHealth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT adapter_name, rfmo, last_success_at, consecutive_failures, last_error FROM source_health WHERE adapter_name = ?`,
		adapterName,
	)
	var h models.SourceHealth
	var lastSuccessAt sql.NullTime
	var lastError sql.NullString
	err := row.Scan(&h.AdapterName, &h.RFMO, &lastSuccessAt, &h.ConsecutiveFailures, &lastError)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "get_source_health", Cause: err}
	}
	if lastSuccessAt.Valid {
		h.LastSuccessAt = &lastSuccessAt.Time
	}
	h.LastError = lastError.String
	return &h, nil
}

// PutSourceHealth inserts or replaces an adapter's health snapshot.
func (s *Store) PutSourceHealth(ctx context.Context, h models.SourceHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastSuccessAt sql.NullTime
	if h.LastSuccessAt != nil {
		lastSuccessAt = sql.NullTime{Time: *h.LastSuccessAt, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO source_health (adapter_name, rfmo, last_success_at, consecutive_failures, last_error)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(adapter_name) DO UPDATE SET rfmo = excluded.rfmo, last_success_at = excluded.last_success_at,
		   consecutive_failures = excluded.consecutive_failures, last_error = excluded.last_error`,
		h.AdapterName, h.RFMO, lastSuccessAt, h.ConsecutiveFailures, h.LastError,
	)
	if err != nil {
		return &ingesterr.MetadataError{Op: "put_source_health", Cause: err}
	}
	return nil
}

// PutRunResult persists one engine run as a JSON blob, keyed by run_id.
func (s *Store) PutRunResult(ctx context.Context, result models.IngestionRunResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(result)
	if err != nil {
		return &ingesterr.MetadataError{Op: "put_run_result/marshal", Cause: err}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO ingestion_runs (run_id, payload_json, created_at) VALUES (?, ?, ?)`,
		result.RunID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return &ingesterr.MetadataError{Op: "put_run_result/insert", Cause: err}
	}
	return nil
}

// AllStoredPaths returns every version's raw artifact path across the whole
// store, in insertion order. Used by the fetch CLI to emit a flat manifest
// of every artifact on disk alongside the run result.
func (s *Store) AllStoredPaths(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT stored_path FROM document_versions ORDER BY id`)
	if err != nil {
		return nil, &ingesterr.MetadataError{Op: "all_stored_paths", Cause: err}
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p sql.NullString
		if err := rows.Scan(&p); err != nil {
			return nil, &ingesterr.MetadataError{Op: "all_stored_paths/scan", Cause: err}
		}
		if p.Valid && p.String != "" {
			paths = append(paths, p.String)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &ingesterr.MetadataError{Op: "all_stored_paths/rows", Cause: err}
	}
	return paths, nil
}
