// Package models defines the data shapes that flow through the ingestion
// pipeline: discovery output, fetch output, parse output, and the records
// persisted by the metadata store.
package models

import "time"

// DocumentCategory is the closed enumeration of RFMO document kinds.
type DocumentCategory string

const (
	CategoryConservationManagementMeasures DocumentCategory = "conservation_management_measures"
	CategoryRecommendationsResolutions     DocumentCategory = "recommendations_resolutions"
	CategoryCircularLetters                DocumentCategory = "circular_letters"
	CategoryIUUVesselLists                 DocumentCategory = "iuu_vessel_lists"
	CategoryQuotaAllocationTables           DocumentCategory = "quota_allocation_tables"
	CategoryMeetingDecisions                DocumentCategory = "meeting_decisions"
	CategoryOther                           DocumentCategory = "other"
)

// ProcessingStatus tracks a document or version through the pipeline.
type ProcessingStatus string

const (
	StatusDiscovered ProcessingStatus = "discovered"
	StatusIngested   ProcessingStatus = "ingested"
	StatusFailed     ProcessingStatus = "failed"
	StatusSkipped    ProcessingStatus = "skipped"
)

// IngestReason explains why the change detector chose to ingest a version.
type IngestReason string

const (
	ReasonNewURL             IngestReason = "new_url"
	ReasonFileHashChanged    IngestReason = "file_hash_changed"
	ReasonPageContentChanged IngestReason = "page_content_changed"
	ReasonMetadataChanged    IngestReason = "metadata_changed"
)

// DocumentRef is the transient output of Adapter.ListDocuments: a candidate
// document pointer that has not yet been fetched.
type DocumentRef struct {
	RFMO             string
	SourceURL        string
	DocumentType     DocumentCategory
	IndexURL         string
	TitleHint        string
	PublishedDate    *time.Time
	DocumentNumber   string
	MeetingReference string
	RFMORegion       string
	DiscoveredAt     time.Time
	Metadata         map[string]string
}

// RawDocument is the transient output of Adapter.FetchDocument.
type RawDocument struct {
	SourceURL   string
	StatusCode  int
	Headers     map[string]string // first value per key; keys in net/http canonical form (e.g. "Etag"), not the server's original case
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// ParsedDocument is the transient output of the Parse Service.
type ParsedDocument struct {
	Title            string
	PublicationDate  *time.Time
	DocumentCategory DocumentCategory
	DocumentNumber   string
	MeetingReference string
	RFMORegion       string
	ExtractedText    string
	SnapshotHTML     *string
	ParserInfo       map[string]string
}

// DocumentRecord is the persisted identity of a tracked document: one row
// per (RFMO, SourceURL) pair.
type DocumentRecord struct {
	ID              int64
	RFMO            string
	SourceURL       string
	DocumentType    DocumentCategory
	Title           string
	PublicationDate *time.Time
	LatestVersion   int
	LatestFileHash  string
	Status          ProcessingStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocumentVersionRecord is one immutable, append-only version of a document.
type DocumentVersionRecord struct {
	ID                int64
	DocumentID        int64
	VersionNumber     int
	FileHash          string
	ETag              string
	LastModified      string
	MetadataHash      string
	ContentHash       string
	Status            ProcessingStatus
	StoredPath        string
	ExtractedTextPath string
	SnapshotHTMLPath  string
	MetadataPath      string
	CreatedAt         time.Time
}

// SourceHealth is the per-adapter health snapshot.
type SourceHealth struct {
	AdapterName        string
	RFMO               string
	LastSuccessAt      *time.Time
	ConsecutiveFailures int
	LastError          string
}

// RunMetrics are the counters accumulated over a single engine run.
type RunMetrics struct {
	StartedAt            time.Time
	FinishedAt           time.Time
	DurationSeconds      float64
	DocumentsDiscovered  int
	DocumentsFetched     int
	DocumentsIngested    int
	DocumentsSkipped     int
	Failures             int
	ParseFailures        int
	StorageBytesWritten  int64
}

// IngestionRunResult is the full record persisted for one engine run.
type IngestionRunResult struct {
	RunID   string
	Metrics RunMetrics
	Health  []SourceHealth
	Errors  []string
}

// Region returns the canonical ocean region for a well-known RFMO, or the
// RFMO name itself as a fallback.
func Region(rfmo string) string {
	switch rfmo {
	case "ICCAT":
		return "Atlantic Ocean"
	case "WCPFC":
		return "Western and Central Pacific Ocean"
	case "IOTC":
		return "Indian Ocean"
	default:
		return rfmo
	}
}
