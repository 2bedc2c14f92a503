// Package pipeline implements the batch stages of the fabrication
// warehouse: integration, cleaning, and feature engineering.
package pipeline

import (
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
	"github.com/carveworks/fabline/internal/source"
)

// Integrate left-joins the four non-anchor source tables onto the toolpath
// anchor, keyed by job_id. The anchor's row set fully determines the result:
// unmatched sources contribute nils and never drop a row. A job_id appearing
// multiple times in a non-anchor table fans the row out; duplicates are
// accepted, not collapsed.
//
// The returned counts map holds distinct job_id counts per source group,
// computed before merging.
func Integrate(src *source.Tables) (*model.IntegratedTable, map[string]int) {
	counts := sourceCounts(src)

	rows := make([]model.JobRecord, 0, len(src.Toolpaths))
	for _, tp := range src.Toolpaths {
		rows = append(rows, model.JobRecord{
			JobID:          tp.JobID,
			Material:       tp.Material,
			ToolID:         tp.ToolID,
			FeedRate:       tp.FeedRate,
			Stepover:       tp.Stepover,
			PathLength:     tp.PathLength,
			VolumeRemoved:  tp.VolumeRemoved,
			SimulationTime: tp.SimulationTime,
		})
	}

	rows = joinRows(rows, indexBy(src.Telemetry, func(r model.TelemetryRecord) string { return r.JobID }),
		func(dst *model.JobRecord, m model.TelemetryRecord) {
			dst.SpindleCurrent = m.SpindleCurrent
			dst.TorqueMean = m.TorqueMean
			dst.Duration = m.Duration
			dst.Energy = m.Energy
		})
	rows = joinRows(rows, indexBy(src.Inspection, func(r model.InspectionRecord) string { return r.JobID }),
		func(dst *model.JobRecord, m model.InspectionRecord) {
			dst.SurfaceScore = m.SurfaceScore
			dst.DefectCount = m.DefectCount
		})
	rows = joinRows(rows, indexBy(src.Costs, func(r model.CostRecord) string { return r.JobID }),
		func(dst *model.JobRecord, m model.CostRecord) {
			dst.ToolWearCost = m.ToolWearCost
			dst.LaborHours = m.LaborHours
			dst.Revenue = m.Revenue
		})
	rows = joinRows(rows, indexBy(src.Operator, func(r model.OperatorRecord) string { return r.JobID }),
		func(dst *model.JobRecord, m model.OperatorRecord) {
			dst.StoneType = m.StoneType
			dst.OperatorNotes = m.Notes
		})

	zap.L().Info("pipeline: sources integrated",
		zap.Int("rows", len(rows)),
		zap.Any("source_counts", counts),
	)

	return &model.IntegratedTable{Records: rows, Columns: src.Columns()}, counts
}

// joinRows performs one left join. Each current row is expanded by every
// match for its job_id, or kept as-is when the source has none.
func joinRows[T any](rows []model.JobRecord, idx map[string][]T, apply func(*model.JobRecord, T)) []model.JobRecord {
	out := make([]model.JobRecord, 0, len(rows))
	for _, row := range rows {
		matches := idx[row.JobID]
		if len(matches) == 0 {
			out = append(out, row)
			continue
		}
		for _, m := range matches {
			merged := row
			apply(&merged, m)
			out = append(out, merged)
		}
	}
	return out
}

func indexBy[T any](recs []T, key func(T) string) map[string][]T {
	idx := make(map[string][]T, len(recs))
	for _, r := range recs {
		idx[key(r)] = append(idx[key(r)], r)
	}
	return idx
}

func sourceCounts(src *source.Tables) map[string]int {
	distinct := func(ids []string) int {
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			seen[id] = true
		}
		return len(seen)
	}

	ids := func(n int, at func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = at(i)
		}
		return out
	}

	return map[string]int{
		model.GroupToolpaths:  distinct(ids(len(src.Toolpaths), func(i int) string { return src.Toolpaths[i].JobID })),
		model.GroupTelemetry:  distinct(ids(len(src.Telemetry), func(i int) string { return src.Telemetry[i].JobID })),
		model.GroupInspection: distinct(ids(len(src.Inspection), func(i int) string { return src.Inspection[i].JobID })),
		model.GroupCosts:      distinct(ids(len(src.Costs), func(i int) string { return src.Costs[i].JobID })),
		model.GroupOperator:   distinct(ids(len(src.Operator), func(i int) string { return src.Operator[i].JobID })),
	}
}
