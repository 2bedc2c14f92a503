package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carveworks/fabline/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// writeDataDir lays down a minimal but complete set of source files.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, model.FileToolpaths,
		"job_id,material,tool_id,feed_rate_mm_min,stepover_mm,path_length_mm,volume_removed_cm3,simulation_time_min\n"+
			"J001,Granite,TOOL-ROUGH-20MM,880,2.2,28000,15200,92\n"+
			"J002,Marble,,1180,,24500,,78\n")
	writeFile(t, dir, model.FileTelemetry,
		"job_id,spindle_current_a,torque_mean_nm,duration_s,energy_kwh\n"+
			"J001,27.5,148,5800,6.8\n")
	writeFile(t, dir, model.FileInspection,
		"job_id,surface_score,defect_count\nJ001,85.2,2\nJ002,,\n")
	writeFile(t, dir, model.FileCosts,
		"job_id,tool_wear_cost_usd,labor_hours,revenue_usd\nJ001,44.1,8.5,2600\n")
	writeFile(t, dir, model.FileOperator,
		"job_id,stone_type,operator_notes\nJ001,Granite,smooth pass\nJ002,Marble,\n")
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeDataDir(t)

	got, err := Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, got.Toolpaths, 2)
	assert.Equal(t, "J001", got.Toolpaths[0].JobID)
	require.NotNil(t, got.Toolpaths[0].FeedRate)
	assert.Equal(t, 880.0, *got.Toolpaths[0].FeedRate)

	// Empty cells decode as missing, not zero.
	assert.Nil(t, got.Toolpaths[1].ToolID)
	assert.Nil(t, got.Toolpaths[1].Stepover)
	assert.Nil(t, got.Toolpaths[1].VolumeRemoved)
	assert.Nil(t, got.Inspection[1].SurfaceScore)
	assert.Nil(t, got.Operator[1].Notes)

	require.Len(t, got.Telemetry, 1)
	require.Len(t, got.Costs, 1)

	// All declared headers become observed columns, in canonical order.
	cols := got.Columns()
	assert.Contains(t, cols, model.ColSimulationTime)
	assert.Contains(t, cols, model.ColOperatorNotes)
	assert.Equal(t, model.ColJobID, cols[0])
}

func TestLoad_HeaderNormalization(t *testing.T) {
	dir := writeDataDir(t)
	// BOM, mixed case, surrounding spaces, spaces instead of underscores.
	writeFile(t, dir, model.FileInspection,
		"\ufeffJob ID, Surface Score ,DEFECT_COUNT\nJ001,85.2,2\n")

	got, err := Load(context.Background(), dir)
	require.NoError(t, err)

	require.Len(t, got.Inspection, 1)
	require.NotNil(t, got.Inspection[0].SurfaceScore)
	assert.Equal(t, 85.2, *got.Inspection[0].SurfaceScore)
	assert.Contains(t, got.Columns(), model.ColSurfaceScore)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := writeDataDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, model.FileCosts)))

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), model.FileCosts)
}

func TestLoad_MissingJobIDColumn(t *testing.T) {
	dir := writeDataDir(t)
	writeFile(t, dir, model.FileTelemetry, "spindle_current_a,duration_s\n27.5,5800\n")

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), model.ColJobID)
}

func TestLoad_BadNumber(t *testing.T) {
	dir := writeDataDir(t)
	writeFile(t, dir, model.FileCosts,
		"job_id,tool_wear_cost_usd,labor_hours,revenue_usd\nJ001,not-a-number,8.5,2600\n")

	_, err := Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), model.FileCosts)
	assert.Contains(t, err.Error(), "row 2")
}

func TestLoad_UndeclaredColumnStaysUnobserved(t *testing.T) {
	dir := writeDataDir(t)
	writeFile(t, dir, model.FileOperator, "job_id,stone_type\nJ001,Granite\n")

	got, err := Load(context.Background(), dir)
	require.NoError(t, err)

	assert.NotContains(t, got.Columns(), model.ColOperatorNotes)
	assert.Nil(t, got.Operator[0].Notes)
}
