package model

// Canonical integrated column names. These are the normalized CSV headers
// and the warehouse table columns; every stage references columns by these
// names only.
const (
	ColJobID          = "job_id"
	ColMaterial       = "material"
	ColToolID         = "tool_id"
	ColFeedRate       = "feed_rate_mm_min"
	ColStepover       = "stepover_mm"
	ColPathLength     = "path_length_mm"
	ColVolumeRemoved  = "volume_removed_cm3"
	ColSimulationTime = "simulation_time_min"
	ColSpindleCurrent = "spindle_current_a"
	ColTorqueMean     = "torque_mean_nm"
	ColDuration       = "duration_s"
	ColEnergy         = "energy_kwh"
	ColSurfaceScore   = "surface_score"
	ColDefectCount    = "defect_count"
	ColToolWearCost   = "tool_wear_cost_usd"
	ColLaborHours     = "labor_hours"
	ColRevenue        = "revenue_usd"
	ColStoneType      = "stone_type"
	ColOperatorNotes  = "operator_notes"
)

// Column is a named accessor into a JobRecord. The registry gives the
// quality and storage layers uniform by-name access without reflection.
type Column struct {
	Name   string
	IsNull func(*JobRecord) bool
	Value  func(*JobRecord) any
}

func floatCol(name string, get func(*JobRecord) *float64) Column {
	return Column{
		Name:   name,
		IsNull: func(r *JobRecord) bool { return get(r) == nil },
		Value: func(r *JobRecord) any {
			if v := get(r); v != nil {
				return *v
			}
			return nil
		},
	}
}

func stringCol(name string, get func(*JobRecord) *string) Column {
	return Column{
		Name:   name,
		IsNull: func(r *JobRecord) bool { return get(r) == nil },
		Value: func(r *JobRecord) any {
			if v := get(r); v != nil {
				return *v
			}
			return nil
		},
	}
}

// IntegratedColumns lists every integrated column in canonical order.
var IntegratedColumns = []Column{
	{
		Name:   ColJobID,
		IsNull: func(r *JobRecord) bool { return r.JobID == "" },
		Value:  func(r *JobRecord) any { return r.JobID },
	},
	stringCol(ColMaterial, func(r *JobRecord) *string { return r.Material }),
	stringCol(ColToolID, func(r *JobRecord) *string { return r.ToolID }),
	floatCol(ColFeedRate, func(r *JobRecord) *float64 { return r.FeedRate }),
	floatCol(ColStepover, func(r *JobRecord) *float64 { return r.Stepover }),
	floatCol(ColPathLength, func(r *JobRecord) *float64 { return r.PathLength }),
	floatCol(ColVolumeRemoved, func(r *JobRecord) *float64 { return r.VolumeRemoved }),
	floatCol(ColSimulationTime, func(r *JobRecord) *float64 { return r.SimulationTime }),
	floatCol(ColSpindleCurrent, func(r *JobRecord) *float64 { return r.SpindleCurrent }),
	floatCol(ColTorqueMean, func(r *JobRecord) *float64 { return r.TorqueMean }),
	floatCol(ColDuration, func(r *JobRecord) *float64 { return r.Duration }),
	floatCol(ColEnergy, func(r *JobRecord) *float64 { return r.Energy }),
	floatCol(ColSurfaceScore, func(r *JobRecord) *float64 { return r.SurfaceScore }),
	floatCol(ColDefectCount, func(r *JobRecord) *float64 { return r.DefectCount }),
	floatCol(ColToolWearCost, func(r *JobRecord) *float64 { return r.ToolWearCost }),
	floatCol(ColLaborHours, func(r *JobRecord) *float64 { return r.LaborHours }),
	floatCol(ColRevenue, func(r *JobRecord) *float64 { return r.Revenue }),
	stringCol(ColStoneType, func(r *JobRecord) *string { return r.StoneType }),
	stringCol(ColOperatorNotes, func(r *JobRecord) *string { return r.OperatorNotes }),
}

// ColumnByName resolves a canonical column name to its accessor.
func ColumnByName(name string) (Column, bool) {
	for _, c := range IntegratedColumns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// FeatureBaseColumns is the fixed base projection of the feature table.
var FeatureBaseColumns = []string{
	ColJobID,
	ColMaterial,
	ColStoneType,
	ColFeedRate,
	ColStepover,
	ColPathLength,
	ColVolumeRemoved,
	ColSpindleCurrent,
	ColDuration,
	ColSurfaceScore,
	ColToolWearCost,
	ColLaborHours,
	ColRevenue,
}

// FeatureDerivedColumns lists the six engineered ratio metrics.
var FeatureDerivedColumns = []string{
	"complexity_per_cm3",
	"load_per_mm",
	"energy_per_cm3",
	"tool_efficiency",
	"profit_margin",
	"quality_vs_speed",
}
