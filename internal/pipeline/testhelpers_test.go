package pipeline

import (
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func fptr(v float64) *float64 { return &v }

func sptr(v string) *string { return &v }

// allColumns returns every canonical integrated column name.
func allColumns() []string {
	names := make([]string, len(model.IntegratedColumns))
	for i, c := range model.IntegratedColumns {
		names[i] = c.Name
	}
	return names
}
