// Package model defines the typed records flowing through the fabrication
// warehouse pipeline: the five source tables, the integrated per-job table,
// and the engineered feature table.
package model

// Source file names inside the data directory, one per upstream system.
const (
	FileToolpaths  = "powermill_toolpaths.csv"
	FileTelemetry  = "kuka_telemetry.csv"
	FileInspection = "quality_inspection.csv"
	FileCosts      = "erp_costs.csv"
	FileOperator   = "operator_log.csv"
)

// Source group names used for provenance and completeness scoring.
const (
	GroupToolpaths  = "powermill"
	GroupTelemetry  = "kuka"
	GroupInspection = "quality"
	GroupCosts      = "erp"
	GroupOperator   = "operator"
)

// ToolpathRecord is one row of CAM toolpath metrics. This table anchors the
// join: its row set defines the integrated table's row set.
type ToolpathRecord struct {
	JobID          string
	Material       *string
	ToolID         *string
	FeedRate       *float64 // feed_rate_mm_min
	Stepover       *float64 // stepover_mm
	PathLength     *float64 // path_length_mm
	VolumeRemoved  *float64 // volume_removed_cm3
	SimulationTime *float64 // simulation_time_min
}

// TelemetryRecord is one row of summarized robot telemetry.
type TelemetryRecord struct {
	JobID          string
	SpindleCurrent *float64 // spindle_current_a
	TorqueMean     *float64 // torque_mean_nm
	Duration       *float64 // duration_s
	Energy         *float64 // energy_kwh
}

// InspectionRecord is one row of post-carve inspection results.
type InspectionRecord struct {
	JobID        string
	SurfaceScore *float64
	DefectCount  *float64
}

// CostRecord is one row of ERP cost and revenue data.
type CostRecord struct {
	JobID        string
	ToolWearCost *float64 // tool_wear_cost_usd
	LaborHours   *float64
	Revenue      *float64 // revenue_usd
}

// OperatorRecord is one row of the operator shift log.
type OperatorRecord struct {
	JobID     string
	StoneType *string
	Notes     *string // operator_notes
}

// JobRecord is one row of the integrated table: the toolpath anchor row with
// all other source groups' columns attached via left join. Any non-anchor
// field is nil when the owning source had no matching job.
type JobRecord struct {
	JobID          string
	Material       *string
	ToolID         *string
	FeedRate       *float64
	Stepover       *float64
	PathLength     *float64
	VolumeRemoved  *float64
	SimulationTime *float64
	SpindleCurrent *float64
	TorqueMean     *float64
	Duration       *float64
	Energy         *float64
	SurfaceScore   *float64
	DefectCount    *float64
	ToolWearCost   *float64
	LaborHours     *float64
	Revenue        *float64
	StoneType      *string
	OperatorNotes  *string
}

// IntegratedTable is the merged per-job table plus the set of columns that
// were actually observed in the source headers. Downstream stages consult
// Columns instead of re-probing files: a column absent here was absent at
// the source.
type IntegratedTable struct {
	Records []JobRecord
	Columns []string
}

// HasColumn reports whether the named column was observed at integration.
func (t *IntegratedTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FeatureRecord is one row of the engineered feature table: the fixed base
// projection plus the six derived ratio metrics.
type FeatureRecord struct {
	JobID          string
	Material       *string
	StoneType      *string
	FeedRate       *float64
	Stepover       *float64
	PathLength     *float64
	VolumeRemoved  *float64
	SpindleCurrent *float64
	Duration       *float64
	SurfaceScore   *float64
	ToolWearCost   *float64
	LaborHours     *float64
	Revenue        *float64

	ComplexityPerCm3 *float64
	LoadPerMM        *float64
	EnergyPerCm3     *float64
	ToolEfficiency   *float64
	ProfitMargin     *float64
	QualityVsSpeed   *float64
}

// FeatureTable is the projected feature table plus its column list, in
// output order. Base columns missing from the integrated input are omitted
// from the list rather than failing the stage.
type FeatureTable struct {
	Records []FeatureRecord
	Columns []string
}
