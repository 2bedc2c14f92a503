// Package source reads the five fabrication source tables from a data
// directory into typed records.
package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/carveworks/fabline/internal/model"
)

// Tables holds the decoded source tables plus the set of canonical columns
// observed across all source headers. A column a file never declared stays
// out of this set even though the typed records carry a field for it.
type Tables struct {
	Toolpaths  []model.ToolpathRecord
	Telemetry  []model.TelemetryRecord
	Inspection []model.InspectionRecord
	Costs      []model.CostRecord
	Operator   []model.OperatorRecord

	mu      sync.Mutex
	columns map[string]bool
}

// Columns returns the observed canonical columns in registry order.
func (t *Tables) Columns() []string {
	out := make([]string, 0, len(t.columns))
	for _, c := range model.IntegratedColumns {
		if t.columns[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

func (t *Tables) markColumns(tb *table, names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, n := range names {
		if tb.has(n) {
			t.columns[n] = true
		}
	}
}

// Load reads all five source CSVs from dataDir. The files are independent,
// so they are decoded concurrently; each must exist and carry a job_id
// column or the load fails.
func Load(ctx context.Context, dataDir string) (*Tables, error) {
	t := &Tables{columns: make(map[string]bool)}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error { return t.loadToolpaths(dataDir) })
	g.Go(func() error { return t.loadTelemetry(dataDir) })
	g.Go(func() error { return t.loadInspection(dataDir) })
	g.Go(func() error { return t.loadCosts(dataDir) })
	g.Go(func() error { return t.loadOperator(dataDir) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tables) loadToolpaths(dir string) error {
	tb, err := readTable(filepath.Join(dir, model.FileToolpaths))
	if err != nil {
		return err
	}
	t.markColumns(tb,
		model.ColJobID, model.ColMaterial, model.ColToolID, model.ColFeedRate,
		model.ColStepover, model.ColPathLength, model.ColVolumeRemoved,
		model.ColSimulationTime,
	)
	for i, row := range tb.rows {
		rec := model.ToolpathRecord{
			JobID:    tb.str(row, model.ColJobID),
			Material: tb.strPtr(row, model.ColMaterial),
			ToolID:   tb.strPtr(row, model.ColToolID),
		}
		if rec.FeedRate, err = tb.floatPtr(row, model.ColFeedRate); err == nil {
			if rec.Stepover, err = tb.floatPtr(row, model.ColStepover); err == nil {
				if rec.PathLength, err = tb.floatPtr(row, model.ColPathLength); err == nil {
					if rec.VolumeRemoved, err = tb.floatPtr(row, model.ColVolumeRemoved); err == nil {
						rec.SimulationTime, err = tb.floatPtr(row, model.ColSimulationTime)
					}
				}
			}
		}
		if err != nil {
			return eris.Wrapf(err, "source: %s row %d", model.FileToolpaths, i+2)
		}
		t.Toolpaths = append(t.Toolpaths, rec)
	}
	return nil
}

func (t *Tables) loadTelemetry(dir string) error {
	tb, err := readTable(filepath.Join(dir, model.FileTelemetry))
	if err != nil {
		return err
	}
	t.markColumns(tb,
		model.ColJobID, model.ColSpindleCurrent, model.ColTorqueMean,
		model.ColDuration, model.ColEnergy,
	)
	for i, row := range tb.rows {
		rec := model.TelemetryRecord{JobID: tb.str(row, model.ColJobID)}
		if rec.SpindleCurrent, err = tb.floatPtr(row, model.ColSpindleCurrent); err == nil {
			if rec.TorqueMean, err = tb.floatPtr(row, model.ColTorqueMean); err == nil {
				if rec.Duration, err = tb.floatPtr(row, model.ColDuration); err == nil {
					rec.Energy, err = tb.floatPtr(row, model.ColEnergy)
				}
			}
		}
		if err != nil {
			return eris.Wrapf(err, "source: %s row %d", model.FileTelemetry, i+2)
		}
		t.Telemetry = append(t.Telemetry, rec)
	}
	return nil
}

func (t *Tables) loadInspection(dir string) error {
	tb, err := readTable(filepath.Join(dir, model.FileInspection))
	if err != nil {
		return err
	}
	t.markColumns(tb, model.ColJobID, model.ColSurfaceScore, model.ColDefectCount)
	for i, row := range tb.rows {
		rec := model.InspectionRecord{JobID: tb.str(row, model.ColJobID)}
		if rec.SurfaceScore, err = tb.floatPtr(row, model.ColSurfaceScore); err == nil {
			rec.DefectCount, err = tb.floatPtr(row, model.ColDefectCount)
		}
		if err != nil {
			return eris.Wrapf(err, "source: %s row %d", model.FileInspection, i+2)
		}
		t.Inspection = append(t.Inspection, rec)
	}
	return nil
}

func (t *Tables) loadCosts(dir string) error {
	tb, err := readTable(filepath.Join(dir, model.FileCosts))
	if err != nil {
		return err
	}
	t.markColumns(tb, model.ColJobID, model.ColToolWearCost, model.ColLaborHours, model.ColRevenue)
	for i, row := range tb.rows {
		rec := model.CostRecord{JobID: tb.str(row, model.ColJobID)}
		if rec.ToolWearCost, err = tb.floatPtr(row, model.ColToolWearCost); err == nil {
			if rec.LaborHours, err = tb.floatPtr(row, model.ColLaborHours); err == nil {
				rec.Revenue, err = tb.floatPtr(row, model.ColRevenue)
			}
		}
		if err != nil {
			return eris.Wrapf(err, "source: %s row %d", model.FileCosts, i+2)
		}
		t.Costs = append(t.Costs, rec)
	}
	return nil
}

func (t *Tables) loadOperator(dir string) error {
	tb, err := readTable(filepath.Join(dir, model.FileOperator))
	if err != nil {
		return err
	}
	t.markColumns(tb, model.ColJobID, model.ColStoneType, model.ColOperatorNotes)
	for _, row := range tb.rows {
		t.Operator = append(t.Operator, model.OperatorRecord{
			JobID:     tb.str(row, model.ColJobID),
			StoneType: tb.strPtr(row, model.ColStoneType),
			Notes:     tb.strPtr(row, model.ColOperatorNotes),
		})
	}
	return nil
}

// table is a decoded CSV with normalized header names indexed by position.
type table struct {
	index map[string]int
	rows  [][]string
}

// readTable decodes a whole CSV file. Headers are normalized the way the
// warehouse names columns: trimmed, BOM stripped, lowercased, spaces to
// underscores. Empty cells decode as missing.
func readTable(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "source: %s not found", filepath.Base(path))
		}
		return nil, eris.Wrapf(err, "source: open %s", filepath.Base(path))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	hdr, err := r.Read()
	if err != nil {
		return nil, eris.Wrapf(err, "source: read header of %s", filepath.Base(path))
	}

	tb := &table{index: make(map[string]int, len(hdr))}
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		h = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		tb.index[h] = i
	}
	if _, ok := tb.index[model.ColJobID]; !ok {
		return nil, eris.Errorf("source: %s has no %s column", filepath.Base(path), model.ColJobID)
	}

	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "source: %s line %d", filepath.Base(path), line)
		}
		tb.rows = append(tb.rows, rec)
	}
	return tb, nil
}

func (t *table) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

func (t *table) cell(row []string, col string) (string, bool) {
	ix, ok := t.index[col]
	if !ok || ix >= len(row) {
		return "", false
	}
	v := strings.TrimSpace(row[ix])
	if v == "" {
		return "", false
	}
	return v, true
}

func (t *table) str(row []string, col string) string {
	v, _ := t.cell(row, col)
	return v
}

func (t *table) strPtr(row []string, col string) *string {
	if v, ok := t.cell(row, col); ok {
		return &v
	}
	return nil
}

func (t *table) floatPtr(row []string, col string) (*float64, error) {
	v, ok := t.cell(row, col)
	if !ok {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("column %s: %w", col, err)
	}
	return &f, nil
}
