package adapter

import (
	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// NewICCATAdapter builds the International Commission for the Conservation
// of Atlantic Tunas adapter, with its category index pages as of the
// connector this was ported from.
func NewICCATAdapter(fetcher *fetch.Service) *BaseHTMLAdapter {
	return NewBaseHTMLAdapter("iccat", "ICCAT", []CategoryIndex{
		{
			Category: models.CategoryConservationManagementMeasures,
			URLs: []string{
				"https://www.iccat.int/en/RecRes.asp",
				"https://www.iccat.int/en/decisions.asp",
			},
		},
		{
			Category: models.CategoryRecommendationsResolutions,
			URLs:     []string{"https://www.iccat.int/en/RecRes.asp"},
		},
		{
			Category: models.CategoryMeetingDecisions,
			URLs:     []string{"https://www.iccat.int/en/meetings.asp"},
		},
		{
			Category: models.CategoryIUUVesselLists,
			URLs:     []string{"https://www.iccat.int/en/IUU.asp"},
		},
	}, fetcher)
}
