// Package parse implements the Parse Service: content-type dispatch to
// PDF/HTML/DOCX/XLSX/fallback text extraction, producing the ParsedDocument
// that flows into the Change Detector and Artifact Store.
package parse

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

var errNoDocumentXML = errors.New("word/document.xml not found in docx container")

const (
	pdfTextLimit   = 2_000_000
	fallbackLimit  = 200_000
)

var (
	wsCollapseRE   = regexp.MustCompile(`\s+`)
	tagRE          = regexp.MustCompile(`<[^>]+>`)
	scriptBlockRE  = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleBlockRE   = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	navBlockRE     = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	headerBlockRE  = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	footerBlockRE  = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	closingParaRE  = regexp.MustCompile(`</w:p>`)
)

// Service extracts text and light metadata from a fetched document body,
// dispatching on content type (falling back to URL suffix).
type Service struct{}

// NewService constructs the Parse Service. It holds no state: every native
// parser library it wraps (pdf/docx/excelize) is called fresh per document.
func NewService() *Service { return &Service{} }

// Parse extracts text from raw by dispatching on content kind, merging the
// result into ref's discovery-time hints (title, dates, category, etc.).
func (s *Service) Parse(ctx context.Context, raw *models.RawDocument, ref models.DocumentRef) *models.ParsedDocument {
	kind := classify(raw.ContentType, ref.SourceURL)

	parsed := &models.ParsedDocument{
		Title:            ref.TitleHint,
		PublicationDate:  ref.PublishedDate,
		DocumentCategory: ref.DocumentType,
		DocumentNumber:   ref.DocumentNumber,
		MeetingReference: ref.MeetingReference,
		RFMORegion:       ref.RFMORegion,
		ParserInfo:       map[string]string{"kind": kind},
	}

	switch kind {
	case "pdf":
		text, err := extractPDF(raw.Body)
		if err != nil {
			parsed.ParserInfo["error"] = err.Error()
			parsed.ExtractedText = ""
			return parsed
		}
		parsed.ExtractedText = truncateRunes(collapseWhitespace(text), pdfTextLimit)
	case "html":
		html := string(raw.Body)
		parsed.ExtractedText = collapseWhitespace(stripHTML(html))
		snapshot := html
		parsed.SnapshotHTML = &snapshot
	case "docx":
		text, err := extractDOCX(raw.Body)
		if err != nil {
			parsed.ParserInfo["error"] = err.Error()
			parsed.ExtractedText = ""
			return parsed
		}
		parsed.ExtractedText = collapseWhitespace(text)
	case "xlsx":
		text, err := extractXLSX(raw.Body)
		if err != nil {
			parsed.ParserInfo["error"] = err.Error()
			parsed.ExtractedText = ""
			return parsed
		}
		parsed.ExtractedText = truncateRunes(text, fallbackLimit)
	default:
		parsed.ExtractedText = truncateRunes(string(raw.Body), fallbackLimit)
	}

	return parsed
}

// classify maps a content type (falling back to URL suffix) to one of
// "pdf", "html", "docx", "xlsx", or "" (the UTF-8 fallback branch).
func classify(contentType, sourceURL string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "wordprocessingml"), strings.Contains(ct, "msword"):
		return "docx"
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "ms-excel"):
		return "xlsx"
	}

	lowerURL := strings.ToLower(sourceURL)
	switch {
	case strings.HasSuffix(lowerURL, ".pdf"):
		return "pdf"
	case strings.HasSuffix(lowerURL, ".htm"), strings.HasSuffix(lowerURL, ".html"):
		return "html"
	case strings.HasSuffix(lowerURL, ".docx"), strings.HasSuffix(lowerURL, ".doc"):
		return "docx"
	case strings.HasSuffix(lowerURL, ".xlsx"), strings.HasSuffix(lowerURL, ".xls"):
		return "xlsx"
	}
	return ""
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(wsCollapseRE.ReplaceAllString(s, " "))
}

func stripHTML(doc string) string {
	doc = scriptBlockRE.ReplaceAllString(doc, " ")
	doc = styleBlockRE.ReplaceAllString(doc, " ")
	doc = navBlockRE.ReplaceAllString(doc, " ")
	doc = headerBlockRE.ReplaceAllString(doc, " ")
	doc = footerBlockRE.ReplaceAllString(doc, " ")
	return tagRE.ReplaceAllString(doc, " ")
}

func truncateRunes(s string, limit int) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// extractPDF concatenates every page's text via the native PDF parser.
func extractPDF(body []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString(" ")
	}
	return sb.String(), nil
}

// extractDOCX uses the docx library's file-based reader (it has no in-memory
// entry point), spooling the fetched body to a scratch file first. If that
// library fails to open the container, it falls back to reading
// word/document.xml directly out of the zip, which is what the library
// does internally anyway.
func extractDOCX(body []byte) (string, error) {
	tmp, err := os.CreateTemp("", "ocean-watch-docx-*.docx")
	if err != nil {
		return extractDOCXFromZip(body)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(body); err != nil {
		return extractDOCXFromZip(body)
	}
	if err := tmp.Close(); err != nil {
		return extractDOCXFromZip(body)
	}

	doc, err := docx.ReadDocxFile(tmp.Name())
	if err != nil {
		return extractDOCXFromZip(body)
	}
	defer doc.Close()

	withNewlines := closingParaRE.ReplaceAllString(doc.Editable().GetContent(), "\n")
	return stripHTML(withNewlines), nil
}

// extractXLSX concatenates every sheet's non-empty cell text, one "---
// Sheet: name ---" header per sheet followed by its row values.
func extractXLSX(body []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}

		var sheetText strings.Builder
		for _, row := range rows {
			for _, cell := range row {
				if text := strings.TrimSpace(cell); text != "" {
					sheetText.WriteString(text)
					sheetText.WriteString(" ")
				}
			}
		}
		if text := strings.TrimSpace(sheetText.String()); text != "" {
			sb.WriteString(fmt.Sprintf("--- Sheet: %s ---\n", sheetName))
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func extractDOCXFromZip(body []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", err
	}
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return "", err
		}
		withNewlines := closingParaRE.ReplaceAllString(string(raw), "\n")
		return stripHTML(withNewlines), nil
	}
	return "", errNoDocumentXML
}
