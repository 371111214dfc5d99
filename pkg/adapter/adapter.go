// Package adapter implements the per-RFMO discovery/fetch/extract adapters:
// a shared HTML discovery engine parameterized by each site's category
// index URLs, plus the ICCAT/WCPFC/IOTC adapters built on top of it.
package adapter

import (
	"context"
	"net/url"
	"strings"

	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// Adapter is the contract every RFMO source implements.
type Adapter interface {
	Name() string
	RFMO() string
	ListDocuments(ctx context.Context) ([]models.DocumentRef, error)
	FetchDocument(ctx context.Context, ref models.DocumentRef) (*models.RawDocument, error)
	ExtractMetadata(raw *models.RawDocument, ref models.DocumentRef) (*models.ParsedDocument, error)

	// FetchWithRetry wraps FetchDocument in the adapter's own Fetch Service
	// retry/backoff policy, so the Engine never has to hold a second,
	// independently rate-limited Service for the same host.
	FetchWithRetry(ctx context.Context, ref models.DocumentRef) (*models.RawDocument, error)

	// LastScanStats returns the link counts observed during the most recent
	// ListDocuments call, for the discovered/filtered-out health telemetry.
	LastScanStats() ScanStats
}

// ScanStats reports the most recent ListDocuments call's link counts, used
// for the discovered/scanned/filtered-out health telemetry.
type ScanStats struct {
	LinksScanned int
	FilteredOut  int
}

// CategoryIndex pairs a document category with the index URLs that list it.
// A slice (rather than a map) keeps discovery order deterministic.
type CategoryIndex struct {
	Category models.DocumentCategory
	URLs     []string
}

// BaseHTMLAdapter implements the shared discovery algorithm: fetch each
// category index page, extract anchor tags with a ±240-character context
// window, resolve/dedupe/strip-fragment each href, and keep only links
// that pass the candidate filter.
type BaseHTMLAdapter struct {
	name            string
	rfmo            string
	categoryIndexes []CategoryIndex
	fetcher         *fetch.Service

	lastStats ScanStats
}

// NewBaseHTMLAdapter constructs the shared engine for one RFMO site.
func NewBaseHTMLAdapter(name, rfmo string, categoryIndexes []CategoryIndex, fetcher *fetch.Service) *BaseHTMLAdapter {
	return &BaseHTMLAdapter{name: name, rfmo: rfmo, categoryIndexes: categoryIndexes, fetcher: fetcher}
}

func (a *BaseHTMLAdapter) Name() string { return a.name }
func (a *BaseHTMLAdapter) RFMO() string { return a.rfmo }

// LastScanStats returns the link counts observed during the most recent
// ListDocuments call.
func (a *BaseHTMLAdapter) LastScanStats() ScanStats { return a.lastStats }

// ListDocuments walks every category's index URLs, in declaration order, returning
// one DocumentRef per distinct, candidate-filtered link.
func (a *BaseHTMLAdapter) ListDocuments(ctx context.Context) ([]models.DocumentRef, error) {
	var refs []models.DocumentRef
	seen := map[string]bool{}
	var scanned, filteredOut int

	for _, entry := range a.categoryIndexes {
		category := entry.Category
		for _, indexURL := range entry.URLs {
			raw, err := a.fetcher.Get(ctx, indexURL)
			if err != nil {
				continue
			}
			htmlText := string(raw.Body)

			for _, lk := range extractLinks(htmlText) {
				scanned++
				absolute, err := resolveAndStripFragment(indexURL, lk.href)
				if err != nil {
					filteredOut++
					continue
				}
				if seen[absolute] {
					continue
				}
				indexNoFrag, _ := resolveAndStripFragment(indexURL, "")
				if absolute == indexNoFrag {
					filteredOut++
					continue
				}
				if !isDocumentCandidate(absolute, lk.text, lk.context) {
					filteredOut++
					continue
				}

				seen[absolute] = true
				titleHint := truncate(lk.text, 240)
				if titleHint == "" {
					titleHint = filenameFromURL(absolute, a.rfmo)
				}
				combined := lk.text + " " + lk.context
				refs = append(refs, models.DocumentRef{
					RFMO:             a.rfmo,
					SourceURL:        absolute,
					DocumentType:     category,
					IndexURL:         indexURL,
					TitleHint:        titleHint,
					PublishedDate:    extractDate(lk.context),
					DocumentNumber:   extractDocumentNumber(combined),
					MeetingReference: extractMeetingReference(combined),
					RFMORegion:       models.Region(a.rfmo),
					Metadata:         map[string]string{"queue": "hot"},
				})
			}
		}
	}

	a.lastStats = ScanStats{LinksScanned: scanned, FilteredOut: filteredOut}
	return refs, nil
}

// FetchDocument performs the single rate-limited, robots-checked GET for a
// discovered document. Retry policy lives one layer up, in fetch.Service.FetchDocument.
func (a *BaseHTMLAdapter) FetchDocument(ctx context.Context, ref models.DocumentRef) (*models.RawDocument, error) {
	return a.fetcher.Get(ctx, ref.SourceURL)
}

// FetchWithRetry applies the attempt/backoff policy around FetchDocument,
// using this adapter's own Fetch Service instance so the rate-limit clock
// and robots cache stay shared with ListDocuments.
func (a *BaseHTMLAdapter) FetchWithRetry(ctx context.Context, ref models.DocumentRef) (*models.RawDocument, error) {
	return a.fetcher.FetchDocument(ctx, a, ref)
}

// ExtractMetadata builds a ParsedDocument from the raw bytes and the
// discovery-time hints, preferring the live HTML <title>/date over the
// link-text hints when the content type is HTML.
func (a *BaseHTMLAdapter) ExtractMetadata(raw *models.RawDocument, ref models.DocumentRef) (*models.ParsedDocument, error) {
	contentType := strings.ToLower(raw.ContentType)
	title := ref.TitleHint
	if title == "" {
		title = filenameFromURL(ref.SourceURL, a.rfmo)
	}
	publicationDate := ref.PublishedDate

	if strings.Contains(contentType, "html") {
		htmlText := string(raw.Body)
		if pageTitle := extractHTMLTitle(htmlText); pageTitle != "" {
			title = pageTitle
		}
		if publicationDate == nil {
			publicationDate = extractDate(htmlText)
		}
	}

	return &models.ParsedDocument{
		Title:            title,
		PublicationDate:  publicationDate,
		DocumentCategory: ref.DocumentType,
		DocumentNumber:   ref.DocumentNumber,
		MeetingReference: ref.MeetingReference,
		RFMORegion:       ref.RFMORegion,
	}, nil
}

func resolveAndStripFragment(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", &ingesterr.DiscoveryError{Adapter: base, Cause: err}
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return "", &ingesterr.DiscoveryError{Adapter: base, Cause: err}
	}
	resolved := baseURL.ResolveReference(relURL)
	resolved.Fragment = ""
	return resolved.String(), nil
}
