package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsDocumentCandidate(t *testing.T) {
	cases := []struct {
		name     string
		url      string
		text     string
		context  string
		expected bool
	}{
		{
			name:     "policy identifier with actionable extension",
			url:      "https://www.iccat.int/en/docs/rec-2021-01.pdf",
			text:     "Recommendation 2021-01",
			context:  "Recommendation 2021-01 on conservation measures",
			expected: true,
		},
		{
			name:     "policy and compliance signal without identifier or extension but measure path",
			url:      "https://www.wcpfc.int/measure/cmm-2020",
			text:     "Conservation and management measure",
			context:  "shall be implemented by all members, reporting required",
			expected: true,
		},
		{
			name:     "policy signal alone is not enough",
			url:      "https://www.iccat.int/en/about.asp",
			text:     "Meeting",
			context:  "general meeting information page",
			expected: false,
		},
		{
			name:     "excluded by news term",
			url:      "https://www.iccat.int/en/news/rec-2021-01.pdf",
			text:     "Recommendation 2021-01",
			context:  "press release on Recommendation 2021-01",
			expected: false,
		},
		{
			name:     "mailto is never a candidate",
			url:      "mailto:info@iccat.int",
			text:     "Recommendation 2021-01",
			context:  "contact us about Recommendation 2021-01",
			expected: false,
		},
		{
			name:     "no policy signal at all",
			url:      "https://www.iccat.int/en/about.asp",
			text:     "About us",
			context:  "learn more about our organization",
			expected: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isDocumentCandidate(tc.url, tc.text, tc.context))
		})
	}
}
