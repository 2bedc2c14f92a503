// Package export writes the feature table to spreadsheet files for
// hand-off outside the warehouse.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/carveworks/fabline/internal/model"
)

// FeaturesXLSX writes the feature table to an XLSX workbook with one
// "features" sheet. Column order follows the table's column list, so
// columns absent from the integrated input stay absent here too.
func FeaturesXLSX(t *model.FeatureTable, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("features")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, name := range t.Columns {
		header.AddCell().SetString(name)
	}

	for i := range t.Records {
		row := sheet.AddRow()
		values := featureValues(&t.Records[i])
		for _, name := range t.Columns {
			cell := row.AddCell()
			switch v := values[name].(type) {
			case nil:
				// empty cell stands in for null
			case string:
				cell.SetString(v)
			case float64:
				cell.SetFloat(v)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func featureValues(r *model.FeatureRecord) map[string]any {
	return map[string]any{
		model.ColJobID:          r.JobID,
		model.ColMaterial:       strVal(r.Material),
		model.ColStoneType:      strVal(r.StoneType),
		model.ColFeedRate:       floatVal(r.FeedRate),
		model.ColStepover:       floatVal(r.Stepover),
		model.ColPathLength:     floatVal(r.PathLength),
		model.ColVolumeRemoved:  floatVal(r.VolumeRemoved),
		model.ColSpindleCurrent: floatVal(r.SpindleCurrent),
		model.ColDuration:       floatVal(r.Duration),
		model.ColSurfaceScore:   floatVal(r.SurfaceScore),
		model.ColToolWearCost:   floatVal(r.ToolWearCost),
		model.ColLaborHours:     floatVal(r.LaborHours),
		model.ColRevenue:        floatVal(r.Revenue),
		"complexity_per_cm3":    floatVal(r.ComplexityPerCm3),
		"load_per_mm":           floatVal(r.LoadPerMM),
		"energy_per_cm3":        floatVal(r.EnergyPerCm3),
		"tool_efficiency":       floatVal(r.ToolEfficiency),
		"profit_margin":         floatVal(r.ProfitMargin),
		"quality_vs_speed":      floatVal(r.QualityVsSpeed),
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
