package adapter

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// linkRE matches an HTML anchor tag and captures its href and inner text.
// (?s) makes "." match newlines, so multi-line anchors are matched whole.
var linkRE = regexp.MustCompile(`(?is)<a[^>]+href=["']([^"']+)["'][^>]*>(.*?)</a>`)

var tagRE = regexp.MustCompile(`<[^>]+>`)
var whitespaceRE = regexp.MustCompile(`\s+`)
var titleRE = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

var isoDateRE = regexp.MustCompile(`20\d{2}-\d{2}-\d{2}`)
var slashDateRE = regexp.MustCompile(`[0-3]?\d/[0-1]?\d/20\d{2}`)
var longDateRE = regexp.MustCompile(`(?i)[0-3]?\d\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+20\d{2}`)

var docNumberRE = regexp.MustCompile(`(?i)\b(?:CMM|REC|RES|Recommendation|Resolution)\s*[-:]?\s*([0-9]{4}[-/][0-9]{1,3})\b`)
var meetingRefRE = regexp.MustCompile(`(?i)\b(?:COM|WCPFC|IOTC)[-_ ]?(?:\d{1,2}|20\d{2})\b`)
var policyIDRE = regexp.MustCompile(`(?i)\b(?:CMM|REC|RES|Recommendation|Resolution|Circular)\s*[-:]?\s*(?:\d{4}[-/]\d{1,3}|[A-Z]{1,4}-\d{2,4})\b`)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// link is one <a href=...> occurrence plus a ±240-character context window
// around it.
type link struct {
	href    string
	text    string
	context string
}

func extractLinks(doc string) []link {
	var out []link
	for _, m := range linkRE.FindAllStringSubmatchIndex(doc, -1) {
		hrefStart, hrefEnd := m[2], m[3]
		textStart, textEnd := m[4], m[5]
		matchStart, matchEnd := m[0], m[1]

		href := strings.TrimSpace(doc[hrefStart:hrefEnd])
		text := cleanText(doc[textStart:textEnd])

		start := matchStart - 240
		if start < 0 {
			start = 0
		}
		end := matchEnd + 240
		if end > len(doc) {
			end = len(doc)
		}
		context := cleanText(doc[start:end])

		out = append(out, link{href: href, text: text, context: context})
	}
	return out
}

// cleanText strips HTML tags, collapses whitespace, and unescapes entities.
func cleanText(value string) string {
	stripped := tagRE.ReplaceAllString(value, " ")
	collapsed := strings.TrimSpace(whitespaceRE.ReplaceAllString(stripped, " "))
	return html.UnescapeString(collapsed)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func extractHTMLTitle(doc string) string {
	m := titleRE.FindStringSubmatch(doc)
	if m == nil {
		return ""
	}
	return truncate(cleanText(m[1]), 240)
}

// extractDate tries, in order, ISO (YYYY-MM-DD), DD/MM/YYYY, and
// "DD Month YYYY" forms, returning the first that parses.
func extractDate(text string) *time.Time {
	if m := isoDateRE.FindString(text); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return &t
		}
	}
	if m := slashDateRE.FindString(text); m != "" {
		parts := strings.Split(m, "/")
		if len(parts) == 3 {
			d, errD := strconv.Atoi(parts[0])
			mo, errM := strconv.Atoi(parts[1])
			y, errY := strconv.Atoi(parts[2])
			if errD == nil && errM == nil && errY == nil && mo >= 1 && mo <= 12 {
				t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
				return &t
			}
		}
	}
	if m := longDateRE.FindString(text); m != "" {
		fields := strings.Fields(m)
		if len(fields) == 3 {
			d, errD := strconv.Atoi(fields[0])
			month, ok := monthNames[strings.ToLower(fields[1])]
			y, errY := strconv.Atoi(fields[2])
			if errD == nil && errY == nil && ok {
				t := time.Date(y, month, d, 0, 0, 0, 0, time.UTC)
				return &t
			}
		}
	}
	return nil
}

func extractDocumentNumber(text string) string {
	m := docNumberRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractMeetingReference(text string) string {
	return meetingRefRE.FindString(text)
}

func hasPolicyIdentifier(text string) bool {
	return policyIDRE.MatchString(text)
}

func filenameFromURL(rawURL string, fallback string) string {
	path := rawURL
	if idx := strings.Index(path, "://"); idx >= 0 {
		path = path[idx+3:]
	}
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	if strings.Contains(rawURL, "://") {
		// Drop the host so a bare domain never counts as a file name.
		if slash := strings.Index(path, "/"); slash >= 0 {
			path = path[slash:]
		} else {
			path = ""
		}
	}
	path = strings.TrimRight(path, "/")
	segments := strings.Split(path, "/")
	tail := segments[len(segments)-1]
	if tail == "" {
		return fallback
	}
	return tail
}
