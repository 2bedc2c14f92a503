package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/carveworks/fabline/internal/model"
	"github.com/carveworks/fabline/internal/quality"
	"github.com/carveworks/fabline/internal/store"
)

// defaultLimit and maxLimit bound the feature query page size.
const (
	defaultLimit = 100
	maxLimit     = 100
)

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getFeatures returns rows from the persisted feature table, optionally
// filtered by job_id and material. A job_id filter with no match is a 404;
// an empty material match is just an empty result set.
func (s *Server) getFeatures(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	filter := store.FeatureFilter{
		JobID:    q.Get("job_id"),
		Material: q.Get("material"),
		Limit:    limit,
	}

	table, err := s.warehouse.ReadFeatures(r.Context(), filter)
	if err != nil {
		if eris.Is(err, store.ErrNoArtifact) {
			writeError(w, http.StatusNotFound, "feature table not built yet, run `fabline features` first")
			return
		}
		zap.L().Error("server: read features", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read feature table")
		return
	}

	if filter.JobID != "" && len(table.Records) == 0 {
		writeError(w, http.StatusNotFound, "job_id not found")
		return
	}

	records := make([]map[string]any, len(table.Records))
	for i := range table.Records {
		records[i] = featureJSON(&table.Records[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// getQuality returns the persisted quality report verbatim.
func (s *Server) getQuality(w http.ResponseWriter, _ *http.Request) {
	var report quality.Report
	if err := store.ReadJSONArtifact(s.warehouseDir, store.FileQualityReport, &report); err != nil {
		if eris.Is(err, store.ErrNoArtifact) {
			writeError(w, http.StatusNotFound, "quality report not built yet, run `fabline quality` first")
			return
		}
		zap.L().Error("server: read quality report", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read quality report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// featureJSON maps a feature record onto column-named JSON fields, nulls
// preserved.
func featureJSON(r *model.FeatureRecord) map[string]any {
	return map[string]any{
		model.ColJobID:          r.JobID,
		model.ColMaterial:       strPtr(r.Material),
		model.ColStoneType:      strPtr(r.StoneType),
		model.ColFeedRate:       floatPtr(r.FeedRate),
		model.ColStepover:       floatPtr(r.Stepover),
		model.ColPathLength:     floatPtr(r.PathLength),
		model.ColVolumeRemoved:  floatPtr(r.VolumeRemoved),
		model.ColSpindleCurrent: floatPtr(r.SpindleCurrent),
		model.ColDuration:       floatPtr(r.Duration),
		model.ColSurfaceScore:   floatPtr(r.SurfaceScore),
		model.ColToolWearCost:   floatPtr(r.ToolWearCost),
		model.ColLaborHours:     floatPtr(r.LaborHours),
		model.ColRevenue:        floatPtr(r.Revenue),
		"complexity_per_cm3":    floatPtr(r.ComplexityPerCm3),
		"load_per_mm":           floatPtr(r.LoadPerMM),
		"energy_per_cm3":        floatPtr(r.EnergyPerCm3),
		"tool_efficiency":       floatPtr(r.ToolEfficiency),
		"profit_margin":         floatPtr(r.ProfitMargin),
		"quality_vs_speed":      floatPtr(r.QualityVsSpeed),
	}
}

func strPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
