// Package alerts implements the Alert Generator: it walks the artifact
// root's metadata.json sidecars and classifies each document into an
// operational alert, or drops it if nothing actionable is detected.
package alerts

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// deadlineRE matches a reporting-obligation deadline phrase followed by a
// date in d/m/yyyy or yyyy-mm-dd form.
var deadlineRE = regexp.MustCompile(`(?i)\b(?:deadline|due(?:\s+date)?|submit(?:\s+\w+){0,4}\s+by)\D{0,16}([0-3]?\d/[0-1]?\d/20\d{2}|20\d{2}-\d{2}-\d{2})\b`)

// Alert is one actionable notice surfaced from a document's metadata.json.
type Alert struct {
	RFMO               string `json:"rfmo"`
	AlertType          string `json:"alert_type"`
	Severity           string `json:"severity"`
	DocumentType       string `json:"document_type"`
	Title              string `json:"title"`
	DocumentNumber     string `json:"document_number,omitempty"`
	PublishedDate      string `json:"published_date,omitempty"`
	DueDate            string `json:"due_date,omitempty"`
	WhatChanged        string `json:"what_changed"`
	ActionRequired     string `json:"action_required"`
	SourceURL          string `json:"source_url,omitempty"`
	StoredPath         string `json:"stored_path,omitempty"`
	ExtractedTextPath  string `json:"extracted_text_path,omitempty"`
}

// Generator walks metadata.json sidecars under a storage root and builds
// an alert from each one that classifies as actionable.
type Generator struct {
	storageRoot string
}

// NewGenerator constructs a Generator rooted at storageRoot.
func NewGenerator(storageRoot string) *Generator {
	return &Generator{storageRoot: storageRoot}
}

// Generate walks every metadata.json under the storage root, optionally
// filtered to documents published within the last days days (days<=0 means
// no filter), and returns alerts sorted by their published_date strings in
// descending order, so ISO dates run newest first and documents without a
// published_date come last.
func (g *Generator) Generate(days int) ([]Alert, error) {
	var metadataPaths []string
	err := filepath.WalkDir(g.storageRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries rather than aborting the walk
		}
		if !d.IsDir() && d.Name() == "metadata.json" {
			metadataPaths = append(metadataPaths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk storage root %s: %w", g.storageRoot, err)
	}
	sort.Strings(metadataPaths)

	var sinceDate *time.Time
	if days > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		sinceDate = &cutoff
	}

	var alerts []Alert
	for _, metaPath := range metadataPaths {
		meta, ok := safeLoadJSON(metaPath)
		if !ok {
			continue
		}

		published := safeDate(meta["published_date"])
		if sinceDate != nil && published != nil && published.Before(*sinceDate) {
			continue
		}

		extractedPath := filepath.Join(filepath.Dir(metaPath), "extracted.txt")
		extractedText := ""
		if body, err := os.ReadFile(extractedPath); err == nil {
			extractedText = string(body)
		}

		if alert, ok := buildAlert(meta, extractedText, extractedPath, filepath.Dir(metaPath)); ok {
			alerts = append(alerts, alert)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].PublishedDate > alerts[j].PublishedDate
	})
	return alerts, nil
}

func buildAlert(meta map[string]any, extractedText, extractedPath, artifactDir string) (Alert, bool) {
	title := strings.TrimSpace(stringField(meta, "title"))
	lowered := strings.ToLower(title + "\n" + extractedText)
	docType := stringField(meta, "document_type")
	if docType == "" {
		docType = string(models.CategoryOther)
	}

	alertType := "NEW_MEASURE_PUBLISHED"
	severity := "medium"
	dueDate := extractDueDate(title, extractedText)

	switch {
	case dueDate != "" || strings.Contains(lowered, "mandatory reporting") || (strings.Contains(lowered, "reporting") && strings.Contains(lowered, "deadline")):
		alertType = "REPORTING_DEADLINE"
		severity = "high"
	case containsAny(lowered, "quota", "allocated catch limits", "allocation", "catch limit", "tac"):
		alertType = "QUOTA_OR_ALLOCATION_NOTICE"
		severity = "high"
	case docType == string(models.CategoryMeetingDecisions) || containsAny(lowered, "meeting", "session", "intersessional", "review of cmm"):
		alertType = "MEETING_DECISION_OR_PROCESS_UPDATE"
		severity = "medium"
	case containsAny(lowered, "dfad register", "vms", "observer", "transshipment", "compliance monitoring", "labour standards"):
		alertType = "COMPLIANCE_SYSTEM_CHANGE"
		severity = "medium"
	case isMeasureCategory(docType):
		alertType = "NEW_MEASURE_PUBLISHED"
		severity = "medium"
	default:
		return Alert{}, false
	}

	documentNumber := stringField(meta, "document_number")

	return Alert{
		RFMO:              stringField(meta, "rfmo"),
		AlertType:         alertType,
		Severity:          severity,
		DocumentType:      docType,
		Title:             title,
		DocumentNumber:    documentNumber,
		PublishedDate:     stringField(meta, "published_date"),
		DueDate:           dueDate,
		WhatChanged:       whatChanged(alertType, title, documentNumber, dueDate),
		ActionRequired:    actionRequired(alertType, dueDate),
		SourceURL:         stringField(meta, "source_url"),
		StoredPath:        rawPathForArtifactDir(artifactDir),
		ExtractedTextPath: extractedPath,
	}, true
}

func isMeasureCategory(docType string) bool {
	switch models.DocumentCategory(docType) {
	case models.CategoryConservationManagementMeasures,
		models.CategoryRecommendationsResolutions,
		models.CategoryCircularLetters,
		models.CategoryIUUVesselLists,
		models.CategoryQuotaAllocationTables:
		return true
	}
	return false
}

func whatChanged(alertType, title, documentNumber, dueDate string) string {
	switch alertType {
	case "REPORTING_DEADLINE":
		deadlineText := ""
		if dueDate != "" {
			deadlineText = fmt.Sprintf(" Deadline: %s.", dueDate)
		}
		return strings.TrimSpace(fmt.Sprintf("Reporting obligation update detected in '%s'.%s", title, deadlineText))
	case "QUOTA_OR_ALLOCATION_NOTICE":
		return fmt.Sprintf("Quota/allocation update detected in '%s'.", title)
	case "COMPLIANCE_SYSTEM_CHANGE":
		return fmt.Sprintf("Compliance process/system update detected in '%s'.", title)
	case "MEETING_DECISION_OR_PROCESS_UPDATE":
		return fmt.Sprintf("Meeting decision/process update detected in '%s'.", title)
	}
	num := ""
	if documentNumber != "" {
		num = fmt.Sprintf(" (%s)", documentNumber)
	}
	return fmt.Sprintf("New or revised RFMO measure detected%s: '%s'.", num, title)
}

func actionRequired(alertType, dueDate string) string {
	switch alertType {
	case "REPORTING_DEADLINE":
		if dueDate != "" {
			return fmt.Sprintf("Assign owner and submit required reporting package before %s.", dueDate)
		}
		return "Assign owner, confirm reporting scope, and submit required reporting package by deadline."
	case "QUOTA_OR_ALLOCATION_NOTICE":
		return "Update national allocation tables and notify fleet operators of updated catch limits."
	case "COMPLIANCE_SYSTEM_CHANGE":
		return "Update compliance SOPs and onboard operations/monitoring teams to the new requirement."
	case "MEETING_DECISION_OR_PROCESS_UPDATE":
		return "Prepare policy brief and track follow-on amendments or implementation decisions."
	}
	return "Review legal text, map impacted fleets/species/areas, and issue implementation guidance."
}

// extractDueDate finds the first deadline-phrase match in title+body and
// normalizes it to ISO-8601, or "" if none is found.
func extractDueDate(title, body string) string {
	combined := title + "\n" + body
	match := deadlineRE.FindStringSubmatch(combined)
	if match == nil {
		return ""
	}
	raw := match[1]
	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		if len(parts) != 3 {
			return ""
		}
		d, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		y, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return ""
		}
		t, err := time.Parse("2006-1-2", fmt.Sprintf("%d-%d-%d", y, m, d))
		if err != nil {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return raw
}

func safeDate(value any) *time.Time {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func safeLoadJSON(path string) (map[string]any, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, false
	}
	return meta, true
}

func rawPathForArtifactDir(artifactDir string) string {
	for _, ext := range []string{".pdf", ".html", ".docx", ".bin"} {
		candidate := filepath.Join(artifactDir, "raw"+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func stringField(meta map[string]any, key string) string {
	v, ok := meta[key].(string)
	if !ok {
		return ""
	}
	return v
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
