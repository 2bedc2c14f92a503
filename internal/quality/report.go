package quality

import (
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
)

// Report is the full quality-report artifact for one pipeline run. It is
// derived solely from the integrated table and replaced wholesale each run.
type Report struct {
	RecordCount         int                `json:"record_count"`
	CompletenessPercent map[string]float64 `json:"completeness_percent"`
	CriticalNulls       map[string]int     `json:"critical_nulls"`
	CarveTimeOutliers   OutlierSummary     `json:"carve_time_outliers"`
	ToolCatalog         CatalogSummary     `json:"tool_catalog_validation"`
}

// Assemble runs all four checks over the integrated table and bundles them
// with the record count.
func Assemble(t *model.IntegratedTable, cfg Config) Report {
	report := Report{
		RecordCount:         len(t.Records),
		CompletenessPercent: completenessByGroup(t, cfg.SourceGroups),
		CriticalNulls:       criticalNullCounts(t, cfg.CriticalColumns),
		CarveTimeOutliers:   carveTimeOutliers(t, cfg.OutlierSigma),
		ToolCatalog:         validateToolCatalog(t, cfg.ToolCatalog),
	}

	zap.L().Info("quality: report assembled",
		zap.Int("records", report.RecordCount),
		zap.Int("outliers", report.CarveTimeOutliers.Count),
		zap.Int("invalid_tools", report.ToolCatalog.InvalidCount),
	)
	return report
}

const (
	ansiGreen = "\033[92m"
	ansiRed   = "\033[91m"
	ansiReset = "\033[0m"
)

// PrintSummary writes a colored pass/fail line per check. Observational
// only: it neither gates the pipeline nor alters the persisted report.
func PrintSummary(w io.Writer, r Report, cfg Config) {
	emit := func(passed bool, message string) {
		symbol, color := "✓", ansiGreen
		if !passed {
			symbol, color = "✗", ansiRed
		}
		fmt.Fprintf(w, "%s%s %s%s\n", color, symbol, message, ansiReset)
	}

	completenessOK := true
	for _, pct := range r.CompletenessPercent {
		if pct < cfg.MinCompleteness {
			completenessOK = false
		}
	}
	noCriticalNulls := true
	for _, n := range r.CriticalNulls {
		if n != 0 {
			noCriticalNulls = false
		}
	}

	emit(completenessOK, fmt.Sprintf("Source completeness ≥ %.0f%%", cfg.MinCompleteness))
	emit(noCriticalNulls, "No nulls in critical metrics")
	emit(r.CarveTimeOutliers.Count == 0, fmt.Sprintf("Duration outliers within %.0fσ threshold", cfg.OutlierSigma))
	emit(r.ToolCatalog.InvalidCount == 0, "Tool IDs match approved catalog")
}
