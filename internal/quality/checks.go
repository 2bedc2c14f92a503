// Package quality computes the standing data-quality report over the
// integrated fabrication table.
package quality

import (
	"math"
	"sort"

	"github.com/carveworks/fabline/internal/model"
)

// Config is the immutable lookup data the checks run against. Injecting it
// keeps the allow-list and group membership out of the check logic and lets
// tests substitute their own.
type Config struct {
	SourceGroups    map[string][]string
	CriticalColumns []string
	ToolCatalog     []string
	OutlierSigma    float64
	MinCompleteness float64
}

// DefaultConfig returns the production lookup tables: the five source
// groups, the three business-critical columns, and the approved tool
// catalog.
func DefaultConfig() Config {
	return Config{
		SourceGroups: map[string][]string{
			model.GroupToolpaths: {
				model.ColMaterial, model.ColToolID, model.ColFeedRate,
				model.ColStepover, model.ColPathLength, model.ColVolumeRemoved,
			},
			model.GroupTelemetry: {
				model.ColSpindleCurrent, model.ColTorqueMean,
				model.ColDuration, model.ColEnergy,
			},
			model.GroupInspection: {model.ColSurfaceScore, model.ColDefectCount},
			model.GroupCosts:      {model.ColToolWearCost, model.ColLaborHours, model.ColRevenue},
			model.GroupOperator:   {model.ColStoneType, model.ColOperatorNotes},
		},
		CriticalColumns: []string{model.ColDuration, model.ColSurfaceScore, model.ColRevenue},
		ToolCatalog: []string{
			"TOOL-ROUGH-20MM",
			"TOOL-ROUGH-16MM",
			"TOOL-FINISH-6MM",
			"TOOL-DETAIL-3MM",
			"TOOL-POLISH-8MM",
		},
		OutlierSigma:    3,
		MinCompleteness: 95,
	}
}

// completenessByGroup scores each source group as 100 × (1 − mean per-column
// null fraction) over the group's columns that are present in the table,
// rounded to two decimals. A group with none of its columns present scores
// exactly 0 rather than being skipped.
func completenessByGroup(t *model.IntegratedTable, groups map[string][]string) map[string]float64 {
	out := make(map[string]float64, len(groups))
	for group, columns := range groups {
		var available []model.Column
		for _, name := range columns {
			if !t.HasColumn(name) {
				continue
			}
			if col, ok := model.ColumnByName(name); ok {
				available = append(available, col)
			}
		}
		if len(available) == 0 {
			out[group] = 0.0
			continue
		}

		sumFrac := 0.0
		for _, col := range available {
			nulls := 0
			for i := range t.Records {
				if col.IsNull(&t.Records[i]) {
					nulls++
				}
			}
			if len(t.Records) > 0 {
				sumFrac += float64(nulls) / float64(len(t.Records))
			}
		}
		out[group] = round2((1 - sumFrac/float64(len(available))) * 100)
	}
	return out
}

// criticalNullCounts counts nulls per critical column. Columns absent from
// the table are omitted, not reported as zero.
func criticalNullCounts(t *model.IntegratedTable, critical []string) map[string]int {
	out := make(map[string]int, len(critical))
	for _, name := range critical {
		if !t.HasColumn(name) {
			continue
		}
		col, ok := model.ColumnByName(name)
		if !ok {
			continue
		}
		nulls := 0
		for i := range t.Records {
			if col.IsNull(&t.Records[i]) {
				nulls++
			}
		}
		out[name] = nulls
	}
	return out
}

// OutlierSummary reports rows whose carve duration exceeded the sigma
// threshold. JobIDs keeps original row order and is not deduplicated.
type OutlierSummary struct {
	Count  int      `json:"count"`
	JobIDs []string `json:"job_ids"`
}

// carveTimeOutliers flags rows with duration_s above mean + sigma × the
// population standard deviation (denominator N) of the non-null durations.
// Null durations never flag; zero observed durations means zero outliers.
func carveTimeOutliers(t *model.IntegratedTable, sigma float64) OutlierSummary {
	var vals []float64
	for i := range t.Records {
		if d := t.Records[i].Duration; d != nil {
			vals = append(vals, *d)
		}
	}
	summary := OutlierSummary{JobIDs: []string{}}
	if len(vals) == 0 {
		return summary
	}

	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	variance := 0.0
	for _, v := range vals {
		variance += (v - mean) * (v - mean)
	}
	stddev := math.Sqrt(variance / float64(len(vals)))

	threshold := mean + sigma*stddev
	for i := range t.Records {
		if d := t.Records[i].Duration; d != nil && *d > threshold {
			summary.Count++
			summary.JobIDs = append(summary.JobIDs, t.Records[i].JobID)
		}
	}
	return summary
}

// CatalogSummary reports tool IDs outside the approved catalog. UnknownIDs
// is deduplicated and sorted, unlike the outlier list.
type CatalogSummary struct {
	InvalidCount int      `json:"invalid_count"`
	UnknownIDs   []string `json:"unknown_ids"`
}

// validateToolCatalog checks every row's tool_id against the allow-list.
// A null tool_id counts as invalid but contributes nothing to UnknownIDs.
// An absent tool_id column reports zero invalid rows.
func validateToolCatalog(t *model.IntegratedTable, catalog []string) CatalogSummary {
	summary := CatalogSummary{UnknownIDs: []string{}}
	if !t.HasColumn(model.ColToolID) {
		return summary
	}

	allowed := make(map[string]bool, len(catalog))
	for _, id := range catalog {
		allowed[id] = true
	}

	unknown := make(map[string]bool)
	for i := range t.Records {
		id := t.Records[i].ToolID
		if id == nil {
			summary.InvalidCount++
			continue
		}
		if !allowed[*id] {
			summary.InvalidCount++
			unknown[*id] = true
		}
	}
	for id := range unknown {
		summary.UnknownIDs = append(summary.UnknownIDs, id)
	}
	sort.Strings(summary.UnknownIDs)
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
