package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/carveworks/fabline/internal/model"
)

// SQLiteWarehouse implements Warehouse using modernc.org/sqlite. This is
// the default backend: one database file inside the warehouse directory.
type SQLiteWarehouse struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the warehouse database at path and
// configures WAL mode.
func NewSQLite(path string) (*SQLiteWarehouse, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteWarehouse{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS artifact_meta (
	name       TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	columns    TEXT NOT NULL,
	written_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs_integrated (
	row_ix              INTEGER NOT NULL,
	job_id              TEXT,
	material            TEXT,
	tool_id             TEXT,
	feed_rate_mm_min    REAL,
	stepover_mm         REAL,
	path_length_mm      REAL,
	volume_removed_cm3  REAL,
	simulation_time_min REAL,
	spindle_current_a   REAL,
	torque_mean_nm      REAL,
	duration_s          REAL,
	energy_kwh          REAL,
	surface_score       REAL,
	defect_count        REAL,
	tool_wear_cost_usd  REAL,
	labor_hours         REAL,
	revenue_usd         REAL,
	stone_type          TEXT,
	operator_notes      TEXT
);

CREATE TABLE IF NOT EXISTS ml_features (
	row_ix             INTEGER NOT NULL,
	job_id             TEXT,
	material           TEXT,
	stone_type         TEXT,
	feed_rate_mm_min   REAL,
	stepover_mm        REAL,
	path_length_mm     REAL,
	volume_removed_cm3 REAL,
	spindle_current_a  REAL,
	duration_s         REAL,
	surface_score      REAL,
	tool_wear_cost_usd REAL,
	labor_hours        REAL,
	revenue_usd        REAL,
	complexity_per_cm3 REAL,
	load_per_mm        REAL,
	energy_per_cm3     REAL,
	tool_efficiency    REAL,
	profit_margin      REAL,
	quality_vs_speed   REAL
);

CREATE INDEX IF NOT EXISTS idx_jobs_integrated_job_id ON jobs_integrated(job_id);
CREATE INDEX IF NOT EXISTS idx_ml_features_job_id ON ml_features(job_id);
`

func (s *SQLiteWarehouse) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteWarehouse) Close() error {
	return s.db.Close()
}

func (s *SQLiteWarehouse) WriteIntegrated(ctx context.Context, runID string, t *model.IntegratedTable) error {
	rows := make([][]any, len(t.Records))
	for i := range t.Records {
		rows[i] = integratedRow(i, &t.Records[i])
	}
	return s.replaceTable(ctx, TableIntegrated, runID, integratedColumns, t.Columns, rows)
}

func (s *SQLiteWarehouse) WriteFeatures(ctx context.Context, runID string, t *model.FeatureTable) error {
	rows := make([][]any, len(t.Records))
	for i := range t.Records {
		rows[i] = featureRow(i, &t.Records[i])
	}
	return s.replaceTable(ctx, TableFeatures, runID, featureColumns, t.Columns, rows)
}

// replaceTable swaps in a fresh artifact within one transaction: delete,
// bulk insert, record metadata, commit.
func (s *SQLiteWarehouse) replaceTable(ctx context.Context, table, runID string, dbColumns, observed []string, rows [][]any) error {
	columnsJSON, err := json.Marshal(observed)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal %s columns", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin %s write", table)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "sqlite: clear %s", table)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(dbColumns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(dbColumns)), ", "),
	)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return eris.Wrapf(err, "sqlite: prepare %s insert", table)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", table)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO artifact_meta (name, run_id, columns, written_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET run_id = excluded.run_id, columns = excluded.columns, written_at = excluded.written_at`,
		table, runID, string(columnsJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: record %s metadata", table)
	}

	return eris.Wrapf(tx.Commit(), "sqlite: commit %s write", table)
}

func (s *SQLiteWarehouse) artifactColumns(ctx context.Context, table string) ([]string, error) {
	var columnsJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT columns FROM artifact_meta WHERE name = ?`, table,
	).Scan(&columnsJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNoArtifact, "%s", table)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read %s metadata", table)
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, eris.Wrapf(err, "sqlite: decode %s columns", table)
	}
	return columns, nil
}

func (s *SQLiteWarehouse) ReadIntegrated(ctx context.Context) (*model.IntegratedTable, error) {
	columns, err := s.artifactColumns(ctx, TableIntegrated)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, material, tool_id, feed_rate_mm_min, stepover_mm,
		       path_length_mm, volume_removed_cm3, simulation_time_min,
		       spindle_current_a, torque_mean_nm, duration_s, energy_kwh,
		       surface_score, defect_count, tool_wear_cost_usd, labor_hours,
		       revenue_usd, stone_type, operator_notes
		FROM jobs_integrated ORDER BY row_ix`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query jobs_integrated")
	}
	defer rows.Close()

	t := &model.IntegratedTable{Columns: columns}
	for rows.Next() {
		var (
			jobID                                      string
			material, toolID, stoneType, notes         sql.NullString
			feedRate, stepover, pathLength, volume     sql.NullFloat64
			simTime, spindle, torque, duration, energy sql.NullFloat64
			surface, defects, wear, labor, revenue     sql.NullFloat64
		)
		if err := rows.Scan(&jobID, &material, &toolID, &feedRate, &stepover,
			&pathLength, &volume, &simTime, &spindle, &torque, &duration,
			&energy, &surface, &defects, &wear, &labor, &revenue,
			&stoneType, &notes); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan jobs_integrated")
		}
		t.Records = append(t.Records, model.JobRecord{
			JobID:          jobID,
			Material:       nullStr(material),
			ToolID:         nullStr(toolID),
			FeedRate:       nullFloat(feedRate),
			Stepover:       nullFloat(stepover),
			PathLength:     nullFloat(pathLength),
			VolumeRemoved:  nullFloat(volume),
			SimulationTime: nullFloat(simTime),
			SpindleCurrent: nullFloat(spindle),
			TorqueMean:     nullFloat(torque),
			Duration:       nullFloat(duration),
			Energy:         nullFloat(energy),
			SurfaceScore:   nullFloat(surface),
			DefectCount:    nullFloat(defects),
			ToolWearCost:   nullFloat(wear),
			LaborHours:     nullFloat(labor),
			Revenue:        nullFloat(revenue),
			StoneType:      nullStr(stoneType),
			OperatorNotes:  nullStr(notes),
		})
	}
	return t, eris.Wrap(rows.Err(), "sqlite: iterate jobs_integrated")
}

func (s *SQLiteWarehouse) ReadFeatures(ctx context.Context, filter FeatureFilter) (*model.FeatureTable, error) {
	columns, err := s.artifactColumns(ctx, TableFeatures)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT job_id, material, stone_type, feed_rate_mm_min, stepover_mm,
		       path_length_mm, volume_removed_cm3, spindle_current_a,
		       duration_s, surface_score, tool_wear_cost_usd, labor_hours,
		       revenue_usd, complexity_per_cm3, load_per_mm, energy_per_cm3,
		       tool_efficiency, profit_margin, quality_vs_speed
		FROM ml_features`
	var (
		where []string
		args  []any
	)
	if filter.JobID != "" {
		where = append(where, "job_id = ?")
		args = append(args, filter.JobID)
	}
	if filter.Material != "" {
		where = append(where, "(LOWER(material) = LOWER(?) OR LOWER(stone_type) = LOWER(?))")
		args = append(args, filter.Material, filter.Material)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY row_ix"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query ml_features")
	}
	defer rows.Close()

	t := &model.FeatureTable{Columns: columns}
	for rows.Next() {
		var (
			jobID                                         string
			material, stoneType                           sql.NullString
			feedRate, stepover, pathLength, volume        sql.NullFloat64
			spindle, duration, surface, wear              sql.NullFloat64
			labor, revenue                                sql.NullFloat64
			complexity, load, energy, efficiency          sql.NullFloat64
			margin, qualitySpeed                          sql.NullFloat64
		)
		if err := rows.Scan(&jobID, &material, &stoneType, &feedRate,
			&stepover, &pathLength, &volume, &spindle, &duration, &surface,
			&wear, &labor, &revenue, &complexity, &load, &energy,
			&efficiency, &margin, &qualitySpeed); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan ml_features")
		}
		t.Records = append(t.Records, model.FeatureRecord{
			JobID:            jobID,
			Material:         nullStr(material),
			StoneType:        nullStr(stoneType),
			FeedRate:         nullFloat(feedRate),
			Stepover:         nullFloat(stepover),
			PathLength:       nullFloat(pathLength),
			VolumeRemoved:    nullFloat(volume),
			SpindleCurrent:   nullFloat(spindle),
			Duration:         nullFloat(duration),
			SurfaceScore:     nullFloat(surface),
			ToolWearCost:     nullFloat(wear),
			LaborHours:       nullFloat(labor),
			Revenue:          nullFloat(revenue),
			ComplexityPerCm3: nullFloat(complexity),
			LoadPerMM:        nullFloat(load),
			EnergyPerCm3:     nullFloat(energy),
			ToolEfficiency:   nullFloat(efficiency),
			ProfitMargin:     nullFloat(margin),
			QualityVsSpeed:   nullFloat(qualitySpeed),
		})
	}
	return t, eris.Wrap(rows.Err(), "sqlite: iterate ml_features")
}

func nullStr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
