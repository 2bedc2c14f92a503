package pipeline

import (
	"math"

	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
)

// SafeDiv divides two nullable values, yielding nil instead of a degenerate
// result: nil when either operand is missing, when the denominator is zero,
// or when the quotient is not finite.
func SafeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	q := *num / *den
	if math.IsInf(q, 0) || math.IsNaN(q) {
		return nil
	}
	return &q
}

// SafeDivScalar divides a nullable numerator by a constant. A zero constant
// makes the result undefined for every row.
func SafeDivScalar(num *float64, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return SafeDiv(num, &den)
}

// EngineerFeatures derives the six ratio metrics from the cleaned
// integrated table and projects the fixed output column set. Base columns
// absent from the input are omitted from the output columns rather than
// failing the stage.
func EngineerFeatures(t *model.IntegratedTable) *model.FeatureTable {
	records := make([]model.FeatureRecord, 0, len(t.Records))
	for i := range t.Records {
		r := &t.Records[i]

		netRevenue := sub(r.Revenue, r.ToolWearCost)
		minutes := SafeDivScalar(r.Duration, 60)

		records = append(records, model.FeatureRecord{
			JobID:          r.JobID,
			Material:       r.Material,
			StoneType:      r.StoneType,
			FeedRate:       r.FeedRate,
			Stepover:       r.Stepover,
			PathLength:     r.PathLength,
			VolumeRemoved:  r.VolumeRemoved,
			SpindleCurrent: r.SpindleCurrent,
			Duration:       r.Duration,
			SurfaceScore:   r.SurfaceScore,
			ToolWearCost:   r.ToolWearCost,
			LaborHours:     r.LaborHours,
			Revenue:        r.Revenue,

			ComplexityPerCm3: SafeDiv(r.PathLength, r.VolumeRemoved),
			LoadPerMM:        SafeDiv(r.SpindleCurrent, r.PathLength),
			EnergyPerCm3:     SafeDiv(r.Energy, r.VolumeRemoved),
			ToolEfficiency:   SafeDiv(r.VolumeRemoved, r.ToolWearCost),
			ProfitMargin:     SafeDiv(netRevenue, r.Revenue),
			QualityVsSpeed:   SafeDiv(r.SurfaceScore, minutes),
		})
	}

	columns := make([]string, 0, len(model.FeatureBaseColumns)+len(model.FeatureDerivedColumns))
	for _, name := range model.FeatureBaseColumns {
		if t.HasColumn(name) {
			columns = append(columns, name)
		}
	}
	columns = append(columns, model.FeatureDerivedColumns...)

	zap.L().Info("pipeline: features engineered",
		zap.Int("rows", len(records)),
		zap.Int("columns", len(columns)),
	)

	return &model.FeatureTable{Records: records, Columns: columns}
}

func sub(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	d := *a - *b
	return &d
}
