package quality

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carveworks/fabline/internal/model"
)

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

func fullColumns() []string {
	names := make([]string, len(model.IntegratedColumns))
	for i, c := range model.IntegratedColumns {
		names[i] = c.Name
	}
	return names
}

func TestCompletenessByGroup(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: fullColumns(),
		Records: []model.JobRecord{
			{JobID: "J001", SurfaceScore: fptr(90), DefectCount: fptr(1)},
			{JobID: "J002", SurfaceScore: fptr(85)},
			{JobID: "J003"},
			{JobID: "J004"},
		},
	}
	groups := map[string][]string{
		model.GroupInspection: {model.ColSurfaceScore, model.ColDefectCount},
	}

	got := completenessByGroup(table, groups)

	// surface_score is half null, defect_count three-quarters null:
	// 100 * (1 - (0.5 + 0.75)/2) = 37.5.
	assert.Equal(t, 37.5, got[model.GroupInspection])
}

func TestCompletenessByGroup_AbsentGroupScoresZero(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: []string{model.ColJobID},
		Records: []model.JobRecord{{JobID: "J001"}},
	}
	groups := map[string][]string{
		model.GroupTelemetry: {model.ColSpindleCurrent, model.ColDuration},
	}

	got := completenessByGroup(table, groups)
	score, ok := got[model.GroupTelemetry]
	require.True(t, ok)
	assert.Equal(t, 0.0, score)
}

func TestCompletenessByGroup_FullyPopulated(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: fullColumns(),
		Records: []model.JobRecord{
			{JobID: "J001", ToolWearCost: fptr(10), LaborHours: fptr(4), Revenue: fptr(1000)},
		},
	}
	groups := map[string][]string{
		model.GroupCosts: {model.ColToolWearCost, model.ColLaborHours, model.ColRevenue},
	}

	got := completenessByGroup(table, groups)
	assert.Equal(t, 100.0, got[model.GroupCosts])
}

func TestCriticalNullCounts(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: []string{model.ColJobID, model.ColDuration, model.ColRevenue},
		Records: []model.JobRecord{
			{JobID: "J001", Duration: fptr(3600), Revenue: fptr(1000)},
			{JobID: "J002"},
			{JobID: "J003", Duration: fptr(1800)},
		},
	}

	got := criticalNullCounts(table, []string{model.ColDuration, model.ColSurfaceScore, model.ColRevenue})

	assert.Equal(t, 1, got[model.ColDuration])
	assert.Equal(t, 2, got[model.ColRevenue])
	// surface_score was never observed: omitted, not zero.
	_, present := got[model.ColSurfaceScore]
	assert.False(t, present)
}

func TestCarveTimeOutliers_SingleExtremeRaisesItsOwnThreshold(t *testing.T) {
	// One extreme value inflates the population stddev enough to stay
	// inside mean + 3σ, so nothing flags.
	records := make([]model.JobRecord, 0, 5)
	for i, d := range []float64{100, 100, 100, 100, 10000} {
		records = append(records, model.JobRecord{JobID: jobID(i), Duration: fptr(d)})
	}
	table := &model.IntegratedTable{Columns: fullColumns(), Records: records}

	got := carveTimeOutliers(table, 3)
	assert.Equal(t, 0, got.Count)
	assert.Empty(t, got.JobIDs)
}

func TestCarveTimeOutliers_FlagsAboveThreshold(t *testing.T) {
	records := make([]model.JobRecord, 0, 21)
	for i := 0; i < 20; i++ {
		records = append(records, model.JobRecord{JobID: jobID(i), Duration: fptr(100)})
	}
	records = append(records, model.JobRecord{JobID: "J-HIGH", Duration: fptr(10000)})
	table := &model.IntegratedTable{Columns: fullColumns(), Records: records}

	got := carveTimeOutliers(table, 3)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, []string{"J-HIGH"}, got.JobIDs)
}

func TestCarveTimeOutliers_NullsNeverFlag(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: fullColumns(),
		Records: []model.JobRecord{
			{JobID: "J001"},
			{JobID: "J002"},
		},
	}

	got := carveTimeOutliers(table, 3)
	assert.Equal(t, 0, got.Count)
	assert.NotNil(t, got.JobIDs)
	assert.Empty(t, got.JobIDs)
}

func TestValidateToolCatalog(t *testing.T) {
	catalog := DefaultConfig().ToolCatalog
	table := &model.IntegratedTable{
		Columns: fullColumns(),
		Records: []model.JobRecord{
			{JobID: "J001", ToolID: sptr("TOOL-ROUGH-20MM")},
			{JobID: "J002", ToolID: sptr("TOOL-FAKE-1")},
			{JobID: "J003", ToolID: sptr("TOOL-FAKE-1")},
			{JobID: "J004", ToolID: sptr("TOOL-AAA")},
			{JobID: "J005"}, // null tool_id
		},
	}

	got := validateToolCatalog(table, catalog)

	// Three unknown rows plus the null: four invalid, two distinct unknown
	// IDs, sorted, null excluded.
	assert.Equal(t, 4, got.InvalidCount)
	assert.Equal(t, []string{"TOOL-AAA", "TOOL-FAKE-1"}, got.UnknownIDs)
}

func TestValidateToolCatalog_AbsentColumn(t *testing.T) {
	table := &model.IntegratedTable{
		Columns: []string{model.ColJobID},
		Records: []model.JobRecord{{JobID: "J001"}},
	}

	got := validateToolCatalog(table, DefaultConfig().ToolCatalog)
	assert.Equal(t, 0, got.InvalidCount)
	assert.NotNil(t, got.UnknownIDs)
	assert.Empty(t, got.UnknownIDs)
}

func jobID(i int) string {
	return fmt.Sprintf("J%03d", i+1)
}
