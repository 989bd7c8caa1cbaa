package report

import (
	"sort"

	"floatflow/models"
)

// Build reduces enrichment records to the final report rows: keep records
// with a known float at or under the cutoff, then, when an eligibility map
// is supplied, keep only symbols the map explicitly marks supported, then
// sort ascending by float. The sort is stable so ties keep input order.
func Build(records []models.FloatRecord, cutoff int64, eligibility map[string]bool) []models.FloatRecord {
	rows := make([]models.FloatRecord, 0, len(records))
	for _, r := range records {
		if !r.HasFloat() || r.FloatValue() > cutoff {
			continue
		}
		if eligibility != nil && !eligibility[r.Symbol] {
			continue
		}
		rows = append(rows, r)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].FloatValue() < rows[j].FloatValue()
	})

	return rows
}
