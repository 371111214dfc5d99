// Package changedetect implements the pure version/ingest decision: given
// the current hashes of a fetched document and the previously stored
// version (if any), decide whether to ingest a new version and why.
package changedetect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// Signature is the fixed tuple hashed into metadata_hash. Field order is
// part of the contract: it must be stable across runs.
type Signature struct {
	SourceURL        string
	RFMO             string
	DocumentType     models.DocumentCategory
	PublicationDate  *time.Time
	Title            string
	DocumentNumber   string
	MeetingReference string
	RFMORegion       string
	ETag             string
	LastModified     string
	ContentType      string
}

// Hashes are the three content-addressed digests computed for one fetch.
type Hashes struct {
	FileHash     string
	ContentHash  string
	MetadataHash string
}

// FileHash returns the SHA-256 hex digest of raw document bytes.
func FileHash(body []byte) string {
	return hashBytes(body)
}

// ContentHash returns the SHA-256 hex digest of the extracted text.
func ContentHash(extractedText string) string {
	return hashBytes([]byte(extractedText))
}

// MetadataHash returns the SHA-256 hex digest of a deterministic
// serialization of sig. The serialization has a fixed field order and a
// fixed string representation for every field, so it is stable across runs.
func MetadataHash(sig Signature) string {
	publicationDate := ""
	if sig.PublicationDate != nil {
		publicationDate = sig.PublicationDate.UTC().Format("2006-01-02")
	}
	serialized := fmt.Sprintf(
		"source_url=%s\nrfmo=%s\ndocument_type=%s\npublication_date=%s\ntitle=%s\ndocument_number=%s\nmeeting_reference=%s\nrfmo_region=%s\netag=%s\nlast_modified=%s\ncontent_type=%s",
		sig.SourceURL, sig.RFMO, sig.DocumentType, publicationDate, sig.Title,
		sig.DocumentNumber, sig.MeetingReference, sig.RFMORegion, sig.ETag,
		sig.LastModified, sig.ContentType,
	)
	return hashBytes([]byte(serialized))
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Decision is the outcome of evaluating the change-detection rules.
type Decision struct {
	ShouldIngest      bool
	Reasons           []models.IngestReason
	NextVersionNumber int
}

// Evaluate applies the ordered change-detection rules. latest is nil when
// no version has been stored yet for this document.
func Evaluate(latest *models.DocumentVersionRecord, current Hashes, etag, lastModified string) Decision {
	if latest == nil {
		return Decision{ShouldIngest: true, Reasons: []models.IngestReason{models.ReasonNewURL}, NextVersionNumber: 1}
	}

	var reasons []models.IngestReason
	if current.FileHash != latest.FileHash {
		reasons = append(reasons, models.ReasonFileHashChanged)
	}
	if current.ContentHash != latest.ContentHash {
		reasons = append(reasons, models.ReasonPageContentChanged)
	}
	if current.MetadataHash != latest.MetadataHash {
		reasons = append(reasons, models.ReasonMetadataChanged)
	}

	if len(reasons) == 0 {
		changed := (etag != "" && etag != latest.ETag) || (lastModified != "" && lastModified != latest.LastModified)
		if changed {
			reasons = append(reasons, models.ReasonMetadataChanged)
		}
	}

	if len(reasons) == 0 {
		return Decision{ShouldIngest: false, Reasons: nil, NextVersionNumber: latest.VersionNumber}
	}
	return Decision{ShouldIngest: true, Reasons: reasons, NextVersionNumber: latest.VersionNumber + 1}
}
