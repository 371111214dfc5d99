package parse

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, "pdf", classify("application/pdf", "https://x.org/a"))
	assert.Equal(t, "html", classify("text/html; charset=utf-8", "https://x.org/a"))
	assert.Equal(t, "docx", classify("application/vnd.openxmlformats-officedocument.wordprocessingml.document", ""))
	assert.Equal(t, "pdf", classify("", "https://x.org/doc.PDF"))
	assert.Equal(t, "html", classify("", "https://x.org/doc.html"))
	assert.Equal(t, "", classify("application/octet-stream", "https://x.org/doc.bin"))
	assert.Equal(t, "xlsx", classify("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ""))
	assert.Equal(t, "xlsx", classify("", "https://x.org/quota.xlsx"))
}

func TestParse_HTML(t *testing.T) {
	svc := NewService()
	body := `<html><head><style>.a{color:red}</style></head><body>
<nav>menu</nav>
<header>site header</header>
<script>alert(1)</script>
<p>Real   content   here</p>
<footer>site footer</footer>
</body></html>`

	raw := &models.RawDocument{ContentType: "text/html", Body: []byte(body)}
	ref := models.DocumentRef{TitleHint: "hint"}

	parsed := svc.Parse(context.Background(), raw, ref)
	assert.Contains(t, parsed.ExtractedText, "Real content here")
	assert.NotContains(t, parsed.ExtractedText, "menu")
	assert.NotContains(t, parsed.ExtractedText, "alert")
	require.NotNil(t, parsed.SnapshotHTML)
	assert.Equal(t, body, *parsed.SnapshotHTML)
}

func TestParse_FallbackTruncates(t *testing.T) {
	svc := NewService()
	long := strings.Repeat("a", fallbackLimit+500)
	raw := &models.RawDocument{ContentType: "application/octet-stream", Body: []byte(long)}

	parsed := svc.Parse(context.Background(), raw, models.DocumentRef{SourceURL: "https://x.org/doc.bin"})
	assert.Len(t, []rune(parsed.ExtractedText), fallbackLimit)
}

func TestParse_PDF_BadBodyRecordsParserError(t *testing.T) {
	svc := NewService()
	raw := &models.RawDocument{ContentType: "application/pdf", Body: []byte("not a real pdf")}

	parsed := svc.Parse(context.Background(), raw, models.DocumentRef{SourceURL: "https://x.org/doc.pdf"})
	assert.Equal(t, "", parsed.ExtractedText)
	assert.NotEmpty(t, parsed.ParserInfo["error"])
}

func TestParse_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Quotas"))
	require.NoError(t, f.SetCellValue("Quotas", "A1", "Species"))
	require.NoError(t, f.SetCellValue("Quotas", "B1", "Allocation"))
	require.NoError(t, f.SetCellValue("Quotas", "A2", "Bluefin Tuna"))
	require.NoError(t, f.SetCellValue("Quotas", "B2", 1200))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	svc := NewService()
	raw := &models.RawDocument{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        buf.Bytes(),
	}
	parsed := svc.Parse(context.Background(), raw, models.DocumentRef{SourceURL: "https://x.org/quota.xlsx"})
	assert.Empty(t, parsed.ParserInfo["error"])
	assert.Contains(t, parsed.ExtractedText, "--- Sheet: Quotas ---")
	assert.Contains(t, parsed.ExtractedText, "Bluefin Tuna")
	assert.Contains(t, parsed.ExtractedText, "1200")
}

func TestParse_XLSX_BadBodyRecordsParserError(t *testing.T) {
	svc := NewService()
	raw := &models.RawDocument{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Body:        []byte("not a real xlsx"),
	}
	parsed := svc.Parse(context.Background(), raw, models.DocumentRef{SourceURL: "https://x.org/doc.xlsx"})
	assert.Equal(t, "", parsed.ExtractedText)
	assert.NotEmpty(t, parsed.ParserInfo["error"])
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\n\t b   c  "))
}
