package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carveworks/fabline/internal/model"
	"github.com/carveworks/fabline/internal/source"
)

func TestIntegrate_AnchorDefinesRowSet(t *testing.T) {
	src := &source.Tables{
		Toolpaths: []model.ToolpathRecord{
			{JobID: "J001", Material: sptr("Granite"), PathLength: fptr(28000)},
			{JobID: "J002", Material: sptr("Marble")},
			{JobID: "J003"},
		},
		Telemetry: []model.TelemetryRecord{
			{JobID: "J001", Duration: fptr(5400)},
			// J999 is not in the anchor and must not create a row.
			{JobID: "J999", Duration: fptr(1)},
		},
		Inspection: []model.InspectionRecord{
			{JobID: "J002", SurfaceScore: fptr(88.5)},
		},
	}

	got, counts := Integrate(src)

	require.Len(t, got.Records, 3)
	assert.Equal(t, "J001", got.Records[0].JobID)
	assert.Equal(t, fptr(5400), got.Records[0].Duration)
	assert.Nil(t, got.Records[0].SurfaceScore)

	assert.Equal(t, "J002", got.Records[1].JobID)
	assert.Nil(t, got.Records[1].Duration)
	assert.Equal(t, fptr(88.5), got.Records[1].SurfaceScore)

	// J003 matched nothing: anchor fields only, everything else nil.
	assert.Equal(t, "J003", got.Records[2].JobID)
	assert.Nil(t, got.Records[2].Duration)
	assert.Nil(t, got.Records[2].StoneType)

	assert.Equal(t, 3, counts[model.GroupToolpaths])
	assert.Equal(t, 2, counts[model.GroupTelemetry])
	assert.Equal(t, 1, counts[model.GroupInspection])
	assert.Equal(t, 0, counts[model.GroupCosts])
}

func TestIntegrate_DuplicateJobIDFansOut(t *testing.T) {
	src := &source.Tables{
		Toolpaths: []model.ToolpathRecord{
			{JobID: "J001", Material: sptr("Granite")},
			{JobID: "J002"},
		},
		Telemetry: []model.TelemetryRecord{
			{JobID: "J001", Duration: fptr(100)},
			{JobID: "J001", Duration: fptr(200)},
		},
	}

	got, counts := Integrate(src)

	require.Len(t, got.Records, 3)
	assert.Equal(t, fptr(100), got.Records[0].Duration)
	assert.Equal(t, fptr(200), got.Records[1].Duration)
	assert.Equal(t, sptr("Granite"), got.Records[1].Material)
	assert.Equal(t, "J002", got.Records[2].JobID)

	// Counts are distinct job_ids, computed before fan-out.
	assert.Equal(t, 1, counts[model.GroupTelemetry])
}

func TestIntegrate_EmptyAnchor(t *testing.T) {
	src := &source.Tables{
		Telemetry: []model.TelemetryRecord{{JobID: "J001", Duration: fptr(100)}},
	}

	got, _ := Integrate(src)
	assert.Empty(t, got.Records)
}

func TestIntegrate_Deterministic(t *testing.T) {
	src := &source.Tables{
		Toolpaths: []model.ToolpathRecord{
			{JobID: "J003"}, {JobID: "J001"}, {JobID: "J002"},
		},
		Costs: []model.CostRecord{
			{JobID: "J002", Revenue: fptr(1200)},
		},
	}

	first, _ := Integrate(src)
	second, _ := Integrate(src)
	assert.Equal(t, first.Records, second.Records)
}
