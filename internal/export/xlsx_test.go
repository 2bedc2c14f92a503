package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/carveworks/fabline/internal/model"
)

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

func TestFeaturesXLSX(t *testing.T) {
	table := &model.FeatureTable{
		Columns: []string{"job_id", "material", "revenue_usd", "profit_margin"},
		Records: []model.FeatureRecord{
			{JobID: "J001", Material: sptr("Granite"), Revenue: fptr(2600), ProfitMargin: fptr(0.91)},
			{JobID: "J002"},
		},
	}
	path := filepath.Join(t.TempDir(), "features.xlsx")

	require.NoError(t, FeaturesXLSX(table, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)
	sheet := f.Sheets[0]
	assert.Equal(t, "features", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	header := sheet.Rows[0]
	require.Len(t, header.Cells, 4)
	assert.Equal(t, "job_id", header.Cells[0].String())
	assert.Equal(t, "profit_margin", header.Cells[3].String())

	first := sheet.Rows[1]
	assert.Equal(t, "J001", first.Cells[0].String())
	assert.Equal(t, "Granite", first.Cells[1].String())
	margin, err := first.Cells[3].Float()
	require.NoError(t, err)
	assert.Equal(t, 0.91, margin)

	// Null values export as empty cells.
	second := sheet.Rows[2]
	assert.Equal(t, "J002", second.Cells[0].String())
	assert.Equal(t, "", second.Cells[1].String())
}

func TestFeaturesXLSX_EmptyTable(t *testing.T) {
	table := &model.FeatureTable{Columns: []string{"job_id"}}
	path := filepath.Join(t.TempDir(), "empty.xlsx")

	require.NoError(t, FeaturesXLSX(table, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets[0].Rows, 1)
}
