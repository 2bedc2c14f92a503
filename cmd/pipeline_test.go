package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/config"
	"github.com/carveworks/fabline/internal/gen"
	"github.com/carveworks/fabline/internal/pipeline"
	"github.com/carveworks/fabline/internal/quality"
	"github.com/carveworks/fabline/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// testConfig points every stage at throwaway directories.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{Dir: filepath.Join(base, "data")},
		Warehouse: config.WarehouseConfig{
			Driver: "sqlite",
			Dir:    filepath.Join(base, "warehouse"),
			Path:   filepath.Join(base, "warehouse", "fabline.db"),
		},
		Gen: config.GenConfig{Jobs: 30, Seed: 7, MissingRate: 0.2, UnknownToolRate: 0.3},
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	cfg = testConfig(t)
	ctx := context.Background()

	require.NoError(t, gen.Generate(cfg.Gen).WriteCSV(cfg.Data.Dir))
	require.NoError(t, runETL(ctx))
	require.NoError(t, runFeatures(ctx))
	require.NoError(t, runQuality(ctx))

	var etl pipeline.ETLSummary
	require.NoError(t, store.ReadJSONArtifact(cfg.Warehouse.Dir, store.FileETLSummary, &etl))
	assert.Equal(t, 30, etl.RowCount)
	assert.Equal(t, 30, etl.SourceCounts["powermill"])
	assert.Greater(t, etl.MergeSuccessRate, 0.0)

	var features pipeline.FeatureSummary
	require.NoError(t, store.ReadJSONArtifact(cfg.Warehouse.Dir, store.FileFeatureSummary, &features))
	assert.Equal(t, 30, features.RecordCount)
	assert.Contains(t, features.FeatureColumns, "profit_margin")

	var report quality.Report
	require.NoError(t, store.ReadJSONArtifact(cfg.Warehouse.Dir, store.FileQualityReport, &report))
	assert.Equal(t, 30, report.RecordCount)
	assert.Len(t, report.CompletenessPercent, 5)
	// The generator plants out-of-catalog tool IDs.
	assert.Greater(t, report.ToolCatalog.InvalidCount, 0)

	wh, err := openWarehouse(ctx)
	require.NoError(t, err)
	defer wh.Close()

	integrated, err := wh.ReadIntegrated(ctx)
	require.NoError(t, err)
	require.Len(t, integrated.Records, 30)
	for _, r := range integrated.Records {
		// The cleaner leaves no missing operator notes behind.
		require.NotNil(t, r.OperatorNotes)
	}

	feats, err := wh.ReadFeatures(ctx, store.FeatureFilter{})
	require.NoError(t, err)
	assert.Len(t, feats.Records, 30)
}

func TestRunFeatures_RequiresIntegratedTable(t *testing.T) {
	cfg = testConfig(t)

	err := runFeatures(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `fabline etl` first")
}

func TestRunQuality_RequiresIntegratedTable(t *testing.T) {
	cfg = testConfig(t)

	err := runQuality(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run `fabline etl` first")
}

func TestQualityConfigOverrides(t *testing.T) {
	cfg = testConfig(t)
	cfg.Quality = config.QualityConfig{
		ToolCatalog:  []string{"TOOL-CUSTOM-1MM"},
		OutlierSigma: 2,
	}

	qcfg := qualityConfig()
	assert.Equal(t, []string{"TOOL-CUSTOM-1MM"}, qcfg.ToolCatalog)
	assert.Equal(t, 2.0, qcfg.OutlierSigma)
	// Unset values keep the built-in defaults.
	assert.Equal(t, 95.0, qcfg.MinCompleteness)
	assert.Equal(t, quality.DefaultConfig().CriticalColumns, qcfg.CriticalColumns)
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"gen", "etl", "features", "quality", "run", "serve", "export", "config"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
