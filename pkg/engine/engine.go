// Package engine implements the orchestration loop: for each adapter,
// discover candidate documents, fetch/parse/hash each one, run it through
// the change detector, and persist a new version when warranted.
package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/ZahabTZ/ocean-watch/internal/metrics"
	"github.com/ZahabTZ/ocean-watch/pkg/adapter"
	"github.com/ZahabTZ/ocean-watch/pkg/changedetect"
	"github.com/ZahabTZ/ocean-watch/pkg/ingesterr"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
	"github.com/ZahabTZ/ocean-watch/internal/parse"
	"github.com/ZahabTZ/ocean-watch/pkg/store/artifact"
	"github.com/ZahabTZ/ocean-watch/pkg/store/metadata"
)

// AdapterSource is the subset of adapter.Registry the Engine needs, kept as
// an interface so tests can drive the Engine against fake adapters without
// a real Fetch Service or network.
type AdapterSource interface {
	All() []adapter.Adapter
	Get(name string) (adapter.Adapter, error)
}

// Engine wires the adapter registry to the parse/changedetect/store layers
// and drives one run_once invocation at a time.
type Engine struct {
	registry AdapterSource
	parser   *parse.Service
	artifact *artifact.Store
	meta     *metadata.Store
	metricsR *metrics.Registry
}

// New constructs an Engine from its already-configured collaborators.
func New(registry AdapterSource, parser *parse.Service, artifactStore *artifact.Store, metaStore *metadata.Store, metricsR *metrics.Registry) *Engine {
	return &Engine{registry: registry, parser: parser, artifact: artifactStore, meta: metaStore, metricsR: metricsR}
}

// RunOnce executes one ingestion pass over adapterNames (nil/empty means
// every registered adapter).
func (e *Engine) RunOnce(ctx context.Context, adapterNames []string) (*models.IngestionRunResult, error) {
	adapters, err := e.resolveAdapters(adapterNames)
	if err != nil {
		return nil, err
	}

	runMetrics := models.RunMetrics{StartedAt: time.Now().UTC()}
	var health []models.SourceHealth
	var runErrors *multierror.Error

	for _, a := range adapters {
		e.runAdapter(ctx, a, &runMetrics, &health, &runErrors)
	}

	runMetrics.FinishedAt = time.Now().UTC()
	runMetrics.DurationSeconds = runMetrics.FinishedAt.Sub(runMetrics.StartedAt).Seconds()
	e.metricsR.Add(metrics.ProcessingSeconds, runMetrics.DurationSeconds)

	result := &models.IngestionRunResult{
		RunID:   newRunID(),
		Metrics: runMetrics,
		Health:  health,
	}
	if runErrors != nil {
		for _, err := range runErrors.Errors {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	if err := e.meta.PutRunResult(ctx, *result); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) resolveAdapters(adapterNames []string) ([]adapter.Adapter, error) {
	if len(adapterNames) == 0 {
		return e.registry.All(), nil
	}
	adapters := make([]adapter.Adapter, 0, len(adapterNames))
	for _, name := range adapterNames {
		a, err := e.registry.Get(name)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	return adapters, nil
}

// runAdapter handles one adapter's listing, per-document processing, and
// SourceHealth bookkeeping.
func (e *Engine) runAdapter(ctx context.Context, a adapter.Adapter, runMetrics *models.RunMetrics, health *[]models.SourceHealth, runErrors **multierror.Error) {
	refs, err := a.ListDocuments(ctx)
	if err != nil {
		runMetrics.Failures++
		discErr := &ingesterr.DiscoveryError{Adapter: a.Name(), Cause: err}
		*runErrors = multierror.Append(*runErrors, discErr)
		slog.Error("adapter listing failed", "adapter", a.Name(), "error", discErr)

		prev, _ := e.meta.GetSourceHealth(ctx, a.Name())
		consecutive := 1
		if prev != nil {
			consecutive = prev.ConsecutiveFailures + 1
		}
		h := models.SourceHealth{AdapterName: a.Name(), RFMO: a.RFMO(), ConsecutiveFailures: consecutive, LastError: discErr.Error()}
		if prev != nil {
			h.LastSuccessAt = prev.LastSuccessAt
		}
		if err := e.meta.PutSourceHealth(ctx, h); err != nil {
			slog.Error("failed to record source health", "adapter", a.Name(), "error", err)
		}
		*health = append(*health, h)
		return
	}

	runMetrics.DocumentsDiscovered += len(refs)
	e.metricsR.Add(metrics.DocumentsDiscovered, float64(len(refs)))

	stats := a.LastScanStats()
	e.metricsR.Add(metrics.DocumentsFilteredOut, float64(stats.FilteredOut))

	seen := map[string]bool{}
	for _, ref := range refs {
		if seen[ref.SourceURL] {
			continue
		}
		seen[ref.SourceURL] = true
		e.processDocument(ctx, a, ref, runMetrics, runErrors)
	}

	now := time.Now().UTC()
	h := models.SourceHealth{AdapterName: a.Name(), RFMO: a.RFMO(), LastSuccessAt: &now, ConsecutiveFailures: 0}
	if err := e.meta.PutSourceHealth(ctx, h); err != nil {
		slog.Error("failed to record source health", "adapter", a.Name(), "error", err)
	}
	*health = append(*health, h)
}

// processDocument runs one ref through upsert -> fetch -> parse -> hash ->
// change detector -> persist-or-skip. Any failure in this block marks the
// document failed and records the error without aborting the rest of the
// adapter's documents.
func (e *Engine) processDocument(ctx context.Context, a adapter.Adapter, ref models.DocumentRef, runMetrics *models.RunMetrics, runErrors **multierror.Error) {
	doc, err := e.meta.UpsertDocumentDiscovered(ctx, ref.RFMO, ref.SourceURL, ref.DocumentType, ref.TitleHint, ref.PublishedDate)
	if err != nil {
		runMetrics.Failures++
		*runErrors = multierror.Append(*runErrors, err)
		slog.Error("upsert_document_discovered failed", "url", ref.SourceURL, "error", err)
		return
	}

	fail := func(err error) {
		runMetrics.Failures++
		*runErrors = multierror.Append(*runErrors, err)
		slog.Error("document processing failed", "url", ref.SourceURL, "error", err)
		if setErr := e.meta.SetDocumentStatus(ctx, doc.ID, models.StatusFailed); setErr != nil {
			slog.Error("failed to set document status to failed", "url", ref.SourceURL, "error", setErr)
		}
	}

	raw, err := a.FetchWithRetry(ctx, ref)
	if err != nil {
		fail(err)
		return
	}
	runMetrics.DocumentsFetched++
	e.metricsR.Add(metrics.DocumentsFetched, 1)

	parsedMeta, err := a.ExtractMetadata(raw, ref)
	if err != nil {
		parsedMeta = &models.ParsedDocument{Title: ref.TitleHint, DocumentCategory: ref.DocumentType}
	}

	parsed := e.parser.Parse(ctx, raw, ref)
	if parsed.ParserInfo != nil && parsed.ParserInfo["error"] != "" {
		runMetrics.ParseFailures++
		e.metricsR.Add(metrics.ParseFailures, 1)
	}

	title := parsedMeta.Title
	if title == "" {
		title = parsed.Title
	}
	publicationDate := parsedMeta.PublicationDate
	if publicationDate == nil {
		publicationDate = parsed.PublicationDate
	}

	fileHash := changedetect.FileHash(raw.Body)
	contentHash := changedetect.ContentHash(parsed.ExtractedText)
	sig := changedetect.Signature{
		SourceURL:        ref.SourceURL,
		RFMO:             ref.RFMO,
		DocumentType:     ref.DocumentType,
		PublicationDate:  publicationDate,
		Title:            title,
		DocumentNumber:   parsedMeta.DocumentNumber,
		MeetingReference: parsedMeta.MeetingReference,
		RFMORegion:       parsedMeta.RFMORegion,
		ETag:             raw.Headers["Etag"],
		LastModified:     raw.Headers["Last-Modified"],
		ContentType:      raw.ContentType,
	}
	metadataHash := changedetect.MetadataHash(sig)

	latest, err := e.meta.LatestVersion(ctx, doc.ID)
	if err != nil {
		fail(&ingesterr.MetadataError{Op: "latest_version", Cause: err})
		return
	}

	decision := changedetect.Evaluate(latest, changedetect.Hashes{FileHash: fileHash, ContentHash: contentHash, MetadataHash: metadataHash}, sig.ETag, sig.LastModified)

	if !decision.ShouldIngest {
		runMetrics.DocumentsSkipped++
		e.metricsR.Add(metrics.DocumentsSkipped, 1)
		if err := e.meta.SetDocumentStatus(ctx, doc.ID, models.StatusSkipped); err != nil {
			slog.Error("failed to set document status to skipped", "url", ref.SourceURL, "error", err)
		}
		return
	}

	ext := artifact.ExtForContentType(raw.ContentType, ref.SourceURL)
	var publicationYear *int
	if publicationDate != nil {
		y := publicationDate.UTC().Year()
		publicationYear = &y
	}

	meta := artifact.Metadata{
		SourceURL:        ref.SourceURL,
		RFMO:             ref.RFMO,
		DocumentType:     string(ref.DocumentType),
		Title:            title,
		DocumentNumber:   parsedMeta.DocumentNumber,
		MeetingReference: parsedMeta.MeetingReference,
		RFMORegion:       parsedMeta.RFMORegion,
		FileHash:         fileHash,
		ContentHash:      contentHash,
		MetadataHash:     metadataHash,
		ETag:             sig.ETag,
		LastModified:     sig.LastModified,
		ContentType:      raw.ContentType,
		Headers:          raw.Headers,
		ParserInfo:       parsed.ParserInfo,
		AdapterMetadata:  ref.Metadata,
	}
	if publicationDate != nil {
		meta.PublicationDate = publicationDate.UTC().Format("2006-01-02")
	}

	result, err := e.artifact.Persist(ref.RFMO, publicationYear, doc.ID, decision.NextVersionNumber, ext, raw.Body, parsed.ExtractedText, parsed.SnapshotHTML, meta)
	if err != nil {
		fail(err)
		return
	}
	runMetrics.StorageBytesWritten += result.BytesWritten
	e.metricsR.Add(metrics.StorageBytes, float64(result.BytesWritten))

	versionRecord := models.DocumentVersionRecord{
		VersionNumber:     decision.NextVersionNumber,
		FileHash:          fileHash,
		ETag:              sig.ETag,
		LastModified:      sig.LastModified,
		MetadataHash:      metadataHash,
		ContentHash:       contentHash,
		StoredPath:        result.RawPath,
		ExtractedTextPath: result.ExtractedPath,
		SnapshotHTMLPath:  result.SnapshotPath,
		MetadataPath:      result.MetadataPath,
	}
	if _, err := e.meta.CreateVersion(ctx, doc.ID, versionRecord, models.StatusIngested); err != nil {
		fail(err)
		return
	}

	runMetrics.DocumentsIngested++
	e.metricsR.Add(metrics.DocumentsIngested, 1)
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UTC().UnixNano())
	}
	return "run-" + hex.EncodeToString(buf)
}
