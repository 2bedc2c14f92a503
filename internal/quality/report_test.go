package quality

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestAssemble_ReportShape(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: fullColumns(),
		Records: []model.JobRecord{
			{JobID: "J001", ToolID: sptr("TOOL-ROUGH-20MM"), Duration: fptr(3600), SurfaceScore: fptr(90), Revenue: fptr(1000)},
			{JobID: "J002", ToolID: sptr("TOOL-UNKNOWN-9MM")},
		},
	}

	report := Assemble(table, DefaultConfig())
	assert.Equal(t, 2, report.RecordCount)
	assert.Len(t, report.CompletenessPercent, 5)
	assert.Equal(t, 1, report.CriticalNulls[model.ColDuration])
	assert.Equal(t, 1, report.ToolCatalog.InvalidCount)
	assert.Equal(t, []string{"TOOL-UNKNOWN-9MM"}, report.ToolCatalog.UnknownIDs)

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	for _, key := range []string{
		"record_count",
		"completeness_percent",
		"critical_nulls",
		"carve_time_outliers",
		"tool_catalog_validation",
	} {
		assert.Contains(t, decoded, key)
	}

	var outliers map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["carve_time_outliers"], &outliers))
	assert.Contains(t, outliers, "count")
	assert.Contains(t, outliers, "job_ids")

	var catalog map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(decoded["tool_catalog_validation"], &catalog))
	assert.Contains(t, catalog, "invalid_count")
	assert.Contains(t, catalog, "unknown_ids")

	// Empty lists serialize as [], never null.
	empty := Assemble(&model.IntegratedTable{Columns: fullColumns()}, DefaultConfig())
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"job_ids":[]`)
	assert.Contains(t, string(data), `"unknown_ids":[]`)
}

func TestPrintSummary(t *testing.T) {
	cfg := DefaultConfig()

	passing := Report{
		RecordCount:         10,
		CompletenessPercent: map[string]float64{"powermill": 100, "kuka": 98.5},
		CriticalNulls:       map[string]int{model.ColDuration: 0},
		CarveTimeOutliers:   OutlierSummary{JobIDs: []string{}},
		ToolCatalog:         CatalogSummary{UnknownIDs: []string{}},
	}

	var buf bytes.Buffer
	PrintSummary(&buf, passing, cfg)
	out := buf.String()
	assert.Equal(t, 4, strings.Count(out, "✓"))
	assert.NotContains(t, out, "✗")

	failing := Report{
		RecordCount:         10,
		CompletenessPercent: map[string]float64{"kuka": 80},
		CriticalNulls:       map[string]int{model.ColDuration: 3},
		CarveTimeOutliers:   OutlierSummary{Count: 1, JobIDs: []string{"J001"}},
		ToolCatalog:         CatalogSummary{InvalidCount: 2, UnknownIDs: []string{"TOOL-X"}},
	}

	buf.Reset()
	PrintSummary(&buf, failing, cfg)
	out = buf.String()
	assert.Equal(t, 4, strings.Count(out, "✗"))
	assert.NotContains(t, out, "✓")
}
