package adapter

import "strings"

// excludeTerms drop obvious non-actionable pages before any expensive parsing.
var excludeTerms = []string{
	"news", "press", "newsletter", "manual", "guide", "brochure", "training",
	"faq", "photo", "gallery", "video", "event", "workshop", "vacancy",
	"procurement", "tender", "media", "twitter", "facebook",
}

var policyTerms = []string{
	"conservation and management measure", "management measure", "recommendation",
	"resolution", "circular", "iuu", "quota", "allocation", "catch limit",
	"closure", "closed area", "prohibited", "ban", "meeting", "decision",
}

var complianceTerms = []string{
	"shall", "must", "required", "deadline", "reporting", "obligation",
	"compliance", "entry into force", "effective", "implementation",
}

var actionableExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".htm", ".html"}

func containsAny(haystack string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			return true
		}
	}
	return false
}

// isDocumentCandidate is the §4.1.1 candidate filter: a link survives only
// if it carries an explicit policy identifier, or both a policy signal and a
// compliance signal, and (in the non-identifier case) an actionable file
// extension or a measure/document path segment.
func isDocumentCandidate(url, linkText, context string) bool {
	if strings.HasPrefix(url, "mailto:") || strings.HasPrefix(url, "javascript:") {
		return false
	}

	lowered := strings.ToLower(url + " " + linkText + " " + context)
	if containsAny(lowered, excludeTerms) {
		return false
	}

	hasPolicySignal := containsAny(lowered, policyTerms)
	hasComplianceSignal := containsAny(lowered, complianceTerms)
	identifierPresent := hasPolicyIdentifier(linkText + " " + context)
	hasActionableExtension := containsAny(lowered, actionableExtensions)

	if identifierPresent {
		return hasActionableExtension || hasPolicySignal
	}
	if hasPolicySignal && hasComplianceSignal {
		return hasActionableExtension || strings.Contains(lowered, "measure/") || strings.Contains(lowered, "document/")
	}
	return false
}
