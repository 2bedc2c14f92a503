// Package gen produces synthetic fabrication source data: five CSV tables
// with correlated toolpath, telemetry, inspection, cost, and operator rows
// per job, plus deliberate gaps for the quality checks to find.
package gen

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/carveworks/fabline/internal/config"
	"github.com/carveworks/fabline/internal/model"
)

// stoneProfile holds the sampling parameters for one stone type.
type stoneProfile struct {
	feedRateMean, feedRateSD, feedRateLow, feedRateHigh float64
	stepoverMean, stepoverSD                            float64
	pathLengthMean, pathLengthSD                        float64
	volumeMean, volumeSD                                float64
	durationBias                                        float64
	currentMean, currentSD                              float64
	torqueMean, torqueSD                                float64
	powerFactor                                         float64
	qualityMean                                         float64
	defectLambda                                        float64
	costPerCm3                                          float64
	laborBase                                           float64
}

var stoneProfiles = map[string]stoneProfile{
	"granite": {
		feedRateMean: 880, feedRateSD: 90, feedRateLow: 520, feedRateHigh: 1350,
		stepoverMean: 2.2, stepoverSD: 0.6,
		pathLengthMean: 28000, pathLengthSD: 6200,
		volumeMean: 15200, volumeSD: 3100,
		durationBias: 1.25,
		currentMean:  27.5, currentSD: 3.4,
		torqueMean: 148, torqueSD: 18,
		powerFactor: 0.42, qualityMean: 85, defectLambda: 1.8,
		costPerCm3: 0.29, laborBase: 8.0,
	},
	"marble": {
		feedRateMean: 1180, feedRateSD: 120, feedRateLow: 720, feedRateHigh: 1650,
		stepoverMean: 3.1, stepoverSD: 0.7,
		pathLengthMean: 24500, pathLengthSD: 5400,
		volumeMean: 13800, volumeSD: 2800,
		durationBias: 1.12,
		currentMean:  22.5, currentSD: 2.6,
		torqueMean: 122, torqueSD: 16,
		powerFactor: 0.36, qualityMean: 88, defectLambda: 1.2,
		costPerCm3: 0.24, laborBase: 7.0,
	},
	"limestone": {
		feedRateMean: 1350, feedRateSD: 130, feedRateLow: 820, feedRateHigh: 1850,
		stepoverMean: 3.6, stepoverSD: 0.8,
		pathLengthMean: 21600, pathLengthSD: 4800,
		volumeMean: 12400, volumeSD: 2500,
		durationBias: 1.05,
		currentMean:  18.8, currentSD: 2.2,
		torqueMean: 94, torqueSD: 14,
		powerFactor: 0.31, qualityMean: 91, defectLambda: 0.8,
		costPerCm3: 0.19, laborBase: 6.5,
	},
}

var stoneTypes = []string{"granite", "marble", "limestone"}

var toolIDs = []string{
	"TOOL-ROUGH-20MM",
	"TOOL-ROUGH-16MM",
	"TOOL-FINISH-6MM",
	"TOOL-DETAIL-3MM",
	"TOOL-POLISH-8MM",
}

var noteQualifiers = []string{
	"smooth pass",
	"minor chatter",
	"tool swap required",
	"rework requested",
	"on schedule",
}

var noteAnecdotes = []string{
	"dust extraction ran hot through the afternoon shift",
	"fixture re-clamped twice before the finishing pass",
	"coolant flow steady, no visible micro-fractures",
	"operator paused the run to clear swarf from the gantry",
	"edge quality checked against the template, within spec",
	"vibration sensor flagged briefly during the roughing pass",
}

// job is an internal index row the tables are derived from.
type job struct {
	id         string
	stoneType  string
	complexity float64
}

// Dataset holds the generated tables before they are written out.
type Dataset struct {
	Toolpaths  []model.ToolpathRecord
	Telemetry  []model.TelemetryRecord
	Inspection []model.InspectionRecord
	Costs      []model.CostRecord
	Operator   []model.OperatorRecord
}

// Generate builds a deterministic synthetic dataset from the config seed.
// A slice of telemetry rows is withheld and a few tool IDs fall outside the
// approved catalog so the downstream quality checks have findings.
func Generate(cfg config.GenConfig) *Dataset {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	titler := cases.Title(language.English)

	jobs := make([]job, cfg.Jobs)
	for i := range jobs {
		jobs[i] = job{
			id:         fmt.Sprintf("J%03d", i+1),
			stoneType:  stoneTypes[rng.IntN(len(stoneTypes))],
			complexity: 0.6 + rng.Float64()*0.8,
		}
	}

	ds := &Dataset{}
	for _, j := range jobs {
		p := stoneProfiles[j.stoneType]

		feedRate := clamp(rng.NormFloat64()*p.feedRateSD+p.feedRateMean, p.feedRateLow, p.feedRateHigh)
		stepover := clamp(rng.NormFloat64()*p.stepoverSD+p.stepoverMean, 0.8, 6.5)
		pathLength := clamp(rng.NormFloat64()*p.pathLengthSD+p.pathLengthMean*j.complexity, 4800, 62000)
		volume := clamp(rng.NormFloat64()*p.volumeSD+p.volumeMean*j.complexity, 3200, 26000)
		simMinutes := math.Max(pathLength/feedRate*uniform(rng, 0.95, 1.35), 12.0)

		toolID := toolIDs[rng.IntN(len(toolIDs))]
		if rng.Float64() < cfg.UnknownToolRate {
			toolID = fmt.Sprintf("TOOL-LEGACY-%dMM", 10+rng.IntN(4)*2)
		}

		material := titler.String(j.stoneType)
		ds.Toolpaths = append(ds.Toolpaths, model.ToolpathRecord{
			JobID:          j.id,
			Material:       &material,
			ToolID:         &toolID,
			FeedRate:       round(feedRate, 1),
			Stepover:       round(stepover, 2),
			PathLength:     round(pathLength, 1),
			VolumeRemoved:  round(volume, 1),
			SimulationTime: round(simMinutes, 2),
		})

		// Withheld telemetry rows exercise the duration imputation path.
		if rng.Float64() >= cfg.MissingRate {
			scale := 1 + (j.complexity-1)*0.65
			duration := clamp(
				pathLength/feedRate*60*p.durationBias*uniform(rng, 0.92, 1.15)+uniform(rng, 120, 420),
				600, 7200,
			)
			current := clamp((rng.NormFloat64()*p.currentSD+p.currentMean)*scale, 9.0, 36.0)
			torque := clamp((rng.NormFloat64()*p.torqueSD+p.torqueMean)*scale, 28.0, 220.0)
			energy := duration / 3600 * current * p.powerFactor * uniform(rng, 0.82, 1.18)

			ds.Telemetry = append(ds.Telemetry, model.TelemetryRecord{
				JobID:          j.id,
				SpindleCurrent: round(current, 2),
				TorqueMean:     round(torque, 1),
				Duration:       round(duration, 1),
				Energy:         round(energy, 3),
			})
		}

		score := clamp(rng.NormFloat64()*6.0+p.qualityMean-j.complexity*uniform(rng, 5.0, 10.0), 62.0, 98.5)
		inspection := model.InspectionRecord{
			JobID:       j.id,
			DefectCount: round(poisson(rng, math.Max(p.defectLambda*j.complexity, 0.2)), 0),
		}
		if rng.Float64() >= cfg.MissingRate {
			inspection.SurfaceScore = round(score, 1)
		}
		ds.Inspection = append(ds.Inspection, inspection)

		wear := clamp(volume*p.costPerCm3*uniform(rng, 0.85, 1.25), 65.0, 525.0)
		labor := clamp(p.laborBase*j.complexity*uniform(rng, 0.9, 1.25)+uniform(rng, 0.5, 1.5), 3.5, 16.0)
		revenue := volume*uniform(rng, 0.38, 0.6) + labor*uniform(rng, 65, 120)
		ds.Costs = append(ds.Costs, model.CostRecord{
			JobID:        j.id,
			ToolWearCost: round(wear, 2),
			LaborHours:   round(labor, 2),
			Revenue:      round(revenue, 2),
		})

		st := j.stoneType
		op := model.OperatorRecord{JobID: j.id, StoneType: &st}
		if rng.Float64() >= cfg.MissingRate {
			note := noteQualifiers[rng.IntN(len(noteQualifiers))] + "; " +
				noteAnecdotes[rng.IntN(len(noteAnecdotes))] + "."
			op.Notes = &note
		}
		ds.Operator = append(ds.Operator, op)
	}

	return ds
}

// WriteCSV persists the dataset as the five source files under dir.
func (d *Dataset) WriteCSV(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "gen: create %s", dir)
	}

	if err := writeCSV(dir, model.FileToolpaths,
		[]string{model.ColJobID, model.ColMaterial, model.ColToolID, model.ColFeedRate,
			model.ColStepover, model.ColPathLength, model.ColVolumeRemoved, model.ColSimulationTime},
		len(d.Toolpaths), func(i int) []string {
			r := d.Toolpaths[i]
			return []string{r.JobID, fs(r.Material), fs(r.ToolID), ff(r.FeedRate),
				ff(r.Stepover), ff(r.PathLength), ff(r.VolumeRemoved), ff(r.SimulationTime)}
		}); err != nil {
		return err
	}
	if err := writeCSV(dir, model.FileTelemetry,
		[]string{model.ColJobID, model.ColSpindleCurrent, model.ColTorqueMean, model.ColDuration, model.ColEnergy},
		len(d.Telemetry), func(i int) []string {
			r := d.Telemetry[i]
			return []string{r.JobID, ff(r.SpindleCurrent), ff(r.TorqueMean), ff(r.Duration), ff(r.Energy)}
		}); err != nil {
		return err
	}
	if err := writeCSV(dir, model.FileInspection,
		[]string{model.ColJobID, model.ColSurfaceScore, model.ColDefectCount},
		len(d.Inspection), func(i int) []string {
			r := d.Inspection[i]
			return []string{r.JobID, ff(r.SurfaceScore), ff(r.DefectCount)}
		}); err != nil {
		return err
	}
	if err := writeCSV(dir, model.FileCosts,
		[]string{model.ColJobID, model.ColToolWearCost, model.ColLaborHours, model.ColRevenue},
		len(d.Costs), func(i int) []string {
			r := d.Costs[i]
			return []string{r.JobID, ff(r.ToolWearCost), ff(r.LaborHours), ff(r.Revenue)}
		}); err != nil {
		return err
	}
	if err := writeCSV(dir, model.FileOperator,
		[]string{model.ColJobID, model.ColStoneType, model.ColOperatorNotes},
		len(d.Operator), func(i int) []string {
			r := d.Operator[i]
			return []string{r.JobID, fs(r.StoneType), fs(r.Notes)}
		}); err != nil {
		return err
	}

	zap.L().Info("gen: source data written",
		zap.String("dir", dir),
		zap.Int("jobs", len(d.Toolpaths)),
	)
	return nil
}

func writeCSV(dir, name string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return eris.Wrapf(err, "gen: create %s", name)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return eris.Wrapf(err, "gen: write %s header", name)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return eris.Wrapf(err, "gen: write %s row %d", name, i)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "gen: flush %s", name)
	}
	return eris.Wrapf(f.Close(), "gen: close %s", name)
}

func fs(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func ff(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// poisson samples by inversion; lambdas here are tiny so this is fine.
func poisson(rng *rand.Rand, lambda float64) float64 {
	l := math.Exp(-lambda)
	k, p := 0, 1.0
	for {
		p *= rng.Float64()
		if p <= l {
			return float64(k)
		}
		k++
	}
}

func round(v float64, places int) *float64 {
	scale := math.Pow(10, float64(places))
	r := math.Round(v*scale) / scale
	return &r
}
