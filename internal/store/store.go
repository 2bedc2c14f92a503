// Package store persists pipeline artifacts: the integrated and feature
// tables live in a warehouse database (SQLite by default, Postgres
// optionally), and the JSON diagnostics live as plain files next to it.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/carveworks/fabline/internal/model"
)

// Artifact table names inside the warehouse database.
const (
	TableIntegrated = "jobs_integrated"
	TableFeatures   = "ml_features"
)

// JSON artifact file names inside the warehouse directory.
const (
	FileETLSummary     = "etl_summary.json"
	FileFeatureSummary = "feature_summary.json"
	FileQualityReport  = "data_quality_report.json"
)

// ErrNoArtifact signals that a required artifact has not been produced yet.
// Stages that consume it refuse to run.
var ErrNoArtifact = eris.New("store: artifact not present")

// FeatureFilter narrows a feature-table read. Material matches the material
// or stone_type column case-insensitively. Limit of zero means no limit.
type FeatureFilter struct {
	JobID    string
	Material string
	Limit    int
}

// Warehouse is the persistence interface shared by both database backends.
// Writes fully replace the artifact inside one transaction, so a failed run
// never leaves a partial table behind.
type Warehouse interface {
	Migrate(ctx context.Context) error
	WriteIntegrated(ctx context.Context, runID string, t *model.IntegratedTable) error
	ReadIntegrated(ctx context.Context) (*model.IntegratedTable, error)
	WriteFeatures(ctx context.Context, runID string, t *model.FeatureTable) error
	ReadFeatures(ctx context.Context, filter FeatureFilter) (*model.FeatureTable, error)
	Close() error
}

// integratedColumns is the database column order for jobs_integrated,
// row_ix first to preserve original row order on read.
var integratedColumns = append([]string{"row_ix"}, integratedNames()...)

func integratedNames() []string {
	names := make([]string, len(model.IntegratedColumns))
	for i, c := range model.IntegratedColumns {
		names[i] = c.Name
	}
	return names
}

func integratedRow(ix int, r *model.JobRecord) []any {
	row := make([]any, 0, len(integratedColumns))
	row = append(row, ix)
	for _, c := range model.IntegratedColumns {
		row = append(row, c.Value(r))
	}
	return row
}

// featureColumns is the database column order for ml_features.
var featureColumns = []string{
	"row_ix",
	model.ColJobID, model.ColMaterial, model.ColStoneType,
	model.ColFeedRate, model.ColStepover, model.ColPathLength,
	model.ColVolumeRemoved, model.ColSpindleCurrent, model.ColDuration,
	model.ColSurfaceScore, model.ColToolWearCost, model.ColLaborHours,
	model.ColRevenue,
	"complexity_per_cm3", "load_per_mm", "energy_per_cm3",
	"tool_efficiency", "profit_margin", "quality_vs_speed",
}

func featureRow(ix int, r *model.FeatureRecord) []any {
	return []any{
		ix,
		r.JobID, strVal(r.Material), strVal(r.StoneType),
		floatVal(r.FeedRate), floatVal(r.Stepover), floatVal(r.PathLength),
		floatVal(r.VolumeRemoved), floatVal(r.SpindleCurrent), floatVal(r.Duration),
		floatVal(r.SurfaceScore), floatVal(r.ToolWearCost), floatVal(r.LaborHours),
		floatVal(r.Revenue),
		floatVal(r.ComplexityPerCm3), floatVal(r.LoadPerMM), floatVal(r.EnergyPerCm3),
		floatVal(r.ToolEfficiency), floatVal(r.ProfitMargin), floatVal(r.QualityVsSpeed),
	}
}

func strVal(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatVal(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
