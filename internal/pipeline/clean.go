package pipeline

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
)

// PlaceholderNotes fills operator_notes when the shift log had nothing.
const PlaceholderNotes = "No operator notes recorded."

// cleanRequiredColumns must be present after integration. The feature and
// quality stages assume this column set, so the schema is validated once
// here rather than re-checked downstream.
var cleanRequiredColumns = []string{
	model.ColFeedRate,
	model.ColStepover,
	model.ColSimulationTime,
	model.ColDuration,
	model.ColSurfaceScore,
	model.ColDefectCount,
	model.ColToolWearCost,
	model.ColLaborHours,
	model.ColRevenue,
	model.ColOperatorNotes,
	model.ColVolumeRemoved,
	model.ColPathLength,
}

// Clean applies the fixed per-column missing-value policy and neutralizes
// values that would produce degenerate ratios downstream.
//
// Ordering is load-bearing: duration_s is imputed from the simulation
// estimate before the zero-guard pass, so a legitimate positive estimate
// survives while a genuine zero duration is still nulled.
func Clean(t *model.IntegratedTable) error {
	if missing := missingColumns(t); len(missing) > 0 {
		return eris.Errorf("pipeline: clean: integrated table is missing columns: %s",
			strings.Join(missing, ", "))
	}

	surfaceMedian := median(collect(t.Records, func(r *model.JobRecord) *float64 { return r.SurfaceScore }))
	wearMedian := median(collect(t.Records, func(r *model.JobRecord) *float64 { return r.ToolWearCost }))
	laborMedian := median(collect(t.Records, func(r *model.JobRecord) *float64 { return r.LaborHours }))
	revenueMedian := median(collect(t.Records, func(r *model.JobRecord) *float64 { return r.Revenue }))

	for i := range t.Records {
		r := &t.Records[i]

		if r.Duration == nil && r.SimulationTime != nil {
			r.Duration = ptr(*r.SimulationTime * 60)
		}
		if r.SurfaceScore == nil {
			r.SurfaceScore = surfaceMedian
		}
		if r.DefectCount == nil {
			r.DefectCount = ptr(0.0)
		} else {
			r.DefectCount = ptr(math.Trunc(*r.DefectCount))
		}
		if r.ToolWearCost == nil {
			r.ToolWearCost = wearMedian
		}
		if r.LaborHours == nil {
			r.LaborHours = laborMedian
		}
		if r.Revenue == nil {
			r.Revenue = revenueMedian
		}
		if r.OperatorNotes == nil {
			r.OperatorNotes = ptr(PlaceholderNotes)
		}

		// Zero denominators become missing, not zero, so later division
		// yields undefined rather than Inf.
		r.VolumeRemoved = zeroGuard(r.VolumeRemoved)
		r.PathLength = zeroGuard(r.PathLength)
		r.Duration = zeroGuard(r.Duration)
	}

	zap.L().Info("pipeline: cleaned integrated table", zap.Int("rows", len(t.Records)))
	return nil
}

func missingColumns(t *model.IntegratedTable) []string {
	var missing []string
	for _, name := range cleanRequiredColumns {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func zeroGuard(v *float64) *float64 {
	if v != nil && *v == 0 {
		return nil
	}
	return v
}

func collect(recs []model.JobRecord, get func(*model.JobRecord) *float64) []float64 {
	out := make([]float64, 0, len(recs))
	for i := range recs {
		if v := get(&recs[i]); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

// median interpolates between the two middle values for even-length input,
// matching the convention every imputation in this pipeline was tuned on.
// Returns nil when there are no observed values to take a median of.
func median(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return ptr(sorted[mid])
	}
	return ptr((sorted[mid-1] + sorted[mid]) / 2)
}

func ptr[T any](v T) *T { return &v }
