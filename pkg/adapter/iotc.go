package adapter

import (
	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// NewIOTCAdapter builds the Indian Ocean Tuna Commission adapter.
func NewIOTCAdapter(fetcher *fetch.Service) *BaseHTMLAdapter {
	return NewBaseHTMLAdapter("iotc", "IOTC", []CategoryIndex{
		{
			Category: models.CategoryConservationManagementMeasures,
			URLs:     []string{"https://iotc.org/cmm"},
		},
		{
			Category: models.CategoryRecommendationsResolutions,
			URLs: []string{
				"https://iotc.org/recommendations",
				"https://iotc.org/resolutions",
			},
		},
		{
			Category: models.CategoryCircularLetters,
			URLs:     []string{"https://iotc.org/documents/circulars"},
		},
		{
			Category: models.CategoryMeetingDecisions,
			URLs:     []string{"https://iotc.org/meetings"},
		},
		{
			Category: models.CategoryIUUVesselLists,
			URLs:     []string{"https://iotc.org/iuu-list"},
		},
		{
			Category: models.CategoryQuotaAllocationTables,
			URLs:     []string{"https://iotc.org/quota-allocation"},
		},
	}, fetcher)
}
