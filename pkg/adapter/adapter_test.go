package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// indexPadding keeps each anchor's ±240-character context window from
// reaching its neighbours, so every link is judged on its own text.
var indexPadding = "\n<p>" + strings.Repeat("filler ", 40) + "</p>\n"

var indexPage = `
<html><head><title>Index</title></head><body>
<a href="/docs/rec-2021-01.pdf">Recommendation 2021-01 on conservation and management measure</a>` + indexPadding +
	`<a href="/news/update.html">Latest news update</a>` + indexPadding +
	`<a href="/about.asp">About the organization</a>` + indexPadding +
	`<a href="/docs/rec-2021-01.pdf">Recommendation 2021-01 on conservation and management measure</a>
</body></html>
`

func TestBaseHTMLAdapter_ListDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/index":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(indexPage))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cfg := fetch.DefaultConfig()
	cfg.MinIntervalSeconds = 0
	svc := fetch.NewService(cfg)

	a := NewBaseHTMLAdapter("test-rfmo", "TESTRFMO", []CategoryIndex{
		{Category: models.CategoryConservationManagementMeasures, URLs: []string{srv.URL + "/index"}},
	}, svc)

	refs, err := a.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1, "only the policy-identifier link should survive the candidate filter, deduped")
	assert.Equal(t, srv.URL+"/docs/rec-2021-01.pdf", refs[0].SourceURL)
	assert.Equal(t, models.CategoryConservationManagementMeasures, refs[0].DocumentType)
	assert.Equal(t, "TESTRFMO", refs[0].RFMO)
	assert.Equal(t, "Atlantic Ocean", models.Region("ICCAT"))

	stats := a.LastScanStats()
	assert.Equal(t, 4, stats.LinksScanned)
	assert.Equal(t, 2, stats.FilteredOut, "news link and about link fail the candidate filter; the duplicate occurrence is deduped before that check, matching the counter behavior")
}

func TestBaseHTMLAdapter_FetchAndExtractMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			w.WriteHeader(http.StatusNotFound)
		case "/docs/rec.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			_, _ = w.Write([]byte("%PDF-1.4 fake"))
		}
	}))
	defer srv.Close()

	cfg := fetch.DefaultConfig()
	cfg.MinIntervalSeconds = 0
	svc := fetch.NewService(cfg)
	a := NewBaseHTMLAdapter("test-rfmo", "TESTRFMO", nil, svc)

	ref := models.DocumentRef{
		RFMO:         "TESTRFMO",
		SourceURL:    srv.URL + "/docs/rec.pdf",
		DocumentType: models.CategoryRecommendationsResolutions,
		TitleHint:    "Recommendation 2021-01",
	}

	raw, err := a.FetchDocument(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 200, raw.StatusCode)

	parsed, err := a.ExtractMetadata(raw, ref)
	require.NoError(t, err)
	assert.Equal(t, "Recommendation 2021-01", parsed.Title)
	assert.Equal(t, models.CategoryRecommendationsResolutions, parsed.DocumentCategory)
}
