package adapter

import (
	"github.com/ZahabTZ/ocean-watch/pkg/fetch"
	"github.com/ZahabTZ/ocean-watch/pkg/models"
)

// NewWCPFCAdapter builds the Western and Central Pacific Fisheries
// Commission adapter.
func NewWCPFCAdapter(fetcher *fetch.Service) *BaseHTMLAdapter {
	return NewBaseHTMLAdapter("wcpfc", "WCPFC", []CategoryIndex{
		{
			Category: models.CategoryConservationManagementMeasures,
			URLs: []string{
				"https://www.wcpfc.int/conservation-and-management-measures",
				"https://cmm.wcpfc.int",
			},
		},
		{
			Category: models.CategoryCircularLetters,
			URLs:     []string{"https://circs.wcpfc.int"},
		},
		{
			Category: models.CategoryMeetingDecisions,
			URLs:     []string{"https://meetings.wcpfc.int"},
		},
		{
			Category: models.CategoryIUUVesselLists,
			URLs:     []string{"https://www.wcpfc.int/iuu-vessel-list"},
		},
		{
			Category: models.CategoryQuotaAllocationTables,
			URLs:     []string{"https://www.wcpfc.int/annual-catch-limits"},
		},
	}, fetcher)
}
