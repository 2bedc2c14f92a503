package gen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carveworks/fabline/internal/config"
	"github.com/carveworks/fabline/internal/model"
	"github.com/carveworks/fabline/internal/source"
)

func testGenConfig() config.GenConfig {
	return config.GenConfig{
		Jobs:            40,
		Seed:            42,
		MissingRate:     0.25,
		UnknownToolRate: 0.05,
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	first := Generate(testGenConfig())
	second := Generate(testGenConfig())
	assert.Equal(t, first, second)

	other := testGenConfig()
	other.Seed = 43
	assert.NotEqual(t, first, Generate(other))
}

func TestGenerate_Shape(t *testing.T) {
	ds := Generate(testGenConfig())

	require.Len(t, ds.Toolpaths, 40)
	require.Len(t, ds.Inspection, 40)
	require.Len(t, ds.Costs, 40)
	require.Len(t, ds.Operator, 40)
	// Some telemetry rows are withheld.
	assert.Less(t, len(ds.Telemetry), 40)
	assert.NotEmpty(t, ds.Telemetry)

	seen := make(map[string]bool)
	for _, tp := range ds.Toolpaths {
		assert.False(t, seen[tp.JobID], "duplicate job id %s", tp.JobID)
		seen[tp.JobID] = true
		require.NotNil(t, tp.FeedRate)
		assert.Greater(t, *tp.FeedRate, 0.0)
		require.NotNil(t, tp.SimulationTime)
		assert.GreaterOrEqual(t, *tp.SimulationTime, 12.0)
	}
}

func TestGenerate_UnknownTools(t *testing.T) {
	cfg := testGenConfig()
	cfg.Jobs = 200
	cfg.UnknownToolRate = 0.2
	ds := Generate(cfg)

	catalog := make(map[string]bool, len(toolIDs))
	for _, id := range toolIDs {
		catalog[id] = true
	}
	unknown := 0
	for _, tp := range ds.Toolpaths {
		if !catalog[*tp.ToolID] {
			unknown++
		}
	}
	assert.Greater(t, unknown, 0)
	assert.Less(t, unknown, 200)
}

func TestWriteCSV_LoadsBack(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	ds := Generate(testGenConfig())
	require.NoError(t, ds.WriteCSV(dir))

	for _, name := range []string{
		model.FileToolpaths, model.FileTelemetry, model.FileInspection,
		model.FileCosts, model.FileOperator,
	} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err)
	}

	loaded, err := source.Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, ds.Toolpaths, loaded.Toolpaths)
	assert.Equal(t, ds.Telemetry, loaded.Telemetry)
	assert.Equal(t, ds.Inspection, loaded.Inspection)
	assert.Equal(t, ds.Costs, loaded.Costs)
	assert.Equal(t, ds.Operator, loaded.Operator)
}
