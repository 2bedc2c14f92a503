package pipeline

import (
	"math"

	"github.com/carveworks/fabline/internal/model"
)

// ETLSummary is the diagnostic artifact written next to the integrated
// table after each ETL run.
type ETLSummary struct {
	RunID            string             `json:"run_id"`
	RowCount         int                `json:"row_count"`
	SourceCounts     map[string]int     `json:"source_counts"`
	MergeSuccessRate float64            `json:"merge_success_rate"`
	MissingPercent   map[string]float64 `json:"missing_percent"`
}

// FeatureSummary is the diagnostic artifact written next to the feature
// table.
type FeatureSummary struct {
	RunID          string   `json:"run_id"`
	RecordCount    int      `json:"record_count"`
	FeatureColumns []string `json:"feature_columns"`
}

// Summarize computes the post-clean diagnostics: merge success is the share
// of anchor rows that ended up with a duration, and missing fractions are
// reported per observed column.
func Summarize(runID string, t *model.IntegratedTable, sourceCounts map[string]int) ETLSummary {
	missing := make(map[string]float64, len(t.Columns))
	for _, name := range t.Columns {
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
		frac := 0.0
		if len(t.Records) > 0 {
			frac = float64(nulls) / float64(len(t.Records))
		}
		missing[name] = round4(frac)
	}

	withDuration := 0
	for i := range t.Records {
		if t.Records[i].Duration != nil {
			withDuration++
		}
	}
	rate := 0.0
	if anchor := sourceCounts[model.GroupToolpaths]; anchor > 0 {
		rate = round4(float64(withDuration) / float64(anchor))
	}

	return ETLSummary{
		RunID:            runID,
		RowCount:         len(t.Records),
		SourceCounts:     sourceCounts,
		MergeSuccessRate: rate,
		MissingPercent:   missing,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
