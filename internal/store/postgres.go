package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/carveworks/fabline/internal/db"
	"github.com/carveworks/fabline/internal/model"
)

// PostgresWarehouse implements Warehouse using a pgx connection pool.
type PostgresWarehouse struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresWarehouse from a connection string.
func NewPostgres(ctx context.Context, connString string) (*PostgresWarehouse, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresWarehouse{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS artifact_meta (
	name       TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	columns    TEXT NOT NULL,
	written_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS jobs_integrated (
	row_ix              INTEGER NOT NULL,
	job_id              TEXT,
	material            TEXT,
	tool_id             TEXT,
	feed_rate_mm_min    DOUBLE PRECISION,
	stepover_mm         DOUBLE PRECISION,
	path_length_mm      DOUBLE PRECISION,
	volume_removed_cm3  DOUBLE PRECISION,
	simulation_time_min DOUBLE PRECISION,
	spindle_current_a   DOUBLE PRECISION,
	torque_mean_nm      DOUBLE PRECISION,
	duration_s          DOUBLE PRECISION,
	energy_kwh          DOUBLE PRECISION,
	surface_score       DOUBLE PRECISION,
	defect_count        DOUBLE PRECISION,
	tool_wear_cost_usd  DOUBLE PRECISION,
	labor_hours         DOUBLE PRECISION,
	revenue_usd         DOUBLE PRECISION,
	stone_type          TEXT,
	operator_notes      TEXT
);

CREATE TABLE IF NOT EXISTS ml_features (
	row_ix             INTEGER NOT NULL,
	job_id             TEXT,
	material           TEXT,
	stone_type         TEXT,
	feed_rate_mm_min   DOUBLE PRECISION,
	stepover_mm        DOUBLE PRECISION,
	path_length_mm     DOUBLE PRECISION,
	volume_removed_cm3 DOUBLE PRECISION,
	spindle_current_a  DOUBLE PRECISION,
	duration_s         DOUBLE PRECISION,
	surface_score      DOUBLE PRECISION,
	tool_wear_cost_usd DOUBLE PRECISION,
	labor_hours        DOUBLE PRECISION,
	revenue_usd        DOUBLE PRECISION,
	complexity_per_cm3 DOUBLE PRECISION,
	load_per_mm        DOUBLE PRECISION,
	energy_per_cm3     DOUBLE PRECISION,
	tool_efficiency    DOUBLE PRECISION,
	profit_margin      DOUBLE PRECISION,
	quality_vs_speed   DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_jobs_integrated_job_id ON jobs_integrated(job_id);
CREATE INDEX IF NOT EXISTS idx_ml_features_job_id ON ml_features(job_id);
`

func (s *PostgresWarehouse) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresWarehouse) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresWarehouse) WriteIntegrated(ctx context.Context, runID string, t *model.IntegratedTable) error {
	rows := make([][]any, len(t.Records))
	for i := range t.Records {
		rows[i] = integratedRow(i, &t.Records[i])
	}
	return s.replaceTable(ctx, TableIntegrated, runID, integratedColumns, t.Columns, rows)
}

func (s *PostgresWarehouse) WriteFeatures(ctx context.Context, runID string, t *model.FeatureTable) error {
	rows := make([][]any, len(t.Records))
	for i := range t.Records {
		rows[i] = featureRow(i, &t.Records[i])
	}
	return s.replaceTable(ctx, TableFeatures, runID, featureColumns, t.Columns, rows)
}

func (s *PostgresWarehouse) replaceTable(ctx context.Context, table, runID string, dbColumns, observed []string, rows [][]any) error {
	columnsJSON, err := json.Marshal(observed)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal %s columns", table)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin %s write", table)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return eris.Wrapf(err, "postgres: clear %s", table)
	}
	if _, err := db.CopyFrom(ctx, tx, table, dbColumns, rows); err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO artifact_meta (name, run_id, columns, written_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET run_id = EXCLUDED.run_id, columns = EXCLUDED.columns, written_at = EXCLUDED.written_at`,
		table, runID, string(columnsJSON), time.Now().UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: record %s metadata", table)
	}

	return eris.Wrapf(tx.Commit(ctx), "postgres: commit %s write", table)
}

func (s *PostgresWarehouse) artifactColumns(ctx context.Context, table string) ([]string, error) {
	var columnsJSON string
	err := s.pool.QueryRow(ctx,
		`SELECT columns FROM artifact_meta WHERE name = $1`, table,
	).Scan(&columnsJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNoArtifact, "%s", table)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read %s metadata", table)
	}

	var columns []string
	if err := json.Unmarshal([]byte(columnsJSON), &columns); err != nil {
		return nil, eris.Wrapf(err, "postgres: decode %s columns", table)
	}
	return columns, nil
}

func (s *PostgresWarehouse) ReadIntegrated(ctx context.Context) (*model.IntegratedTable, error) {
	columns, err := s.artifactColumns(ctx, TableIntegrated)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT job_id, material, tool_id, feed_rate_mm_min, stepover_mm,
		       path_length_mm, volume_removed_cm3, simulation_time_min,
		       spindle_current_a, torque_mean_nm, duration_s, energy_kwh,
		       surface_score, defect_count, tool_wear_cost_usd, labor_hours,
		       revenue_usd, stone_type, operator_notes
		FROM jobs_integrated ORDER BY row_ix`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query jobs_integrated")
	}
	defer rows.Close()

	t := &model.IntegratedTable{Columns: columns}
	for rows.Next() {
		var r model.JobRecord
		if err := rows.Scan(&r.JobID, &r.Material, &r.ToolID, &r.FeedRate,
			&r.Stepover, &r.PathLength, &r.VolumeRemoved, &r.SimulationTime,
			&r.SpindleCurrent, &r.TorqueMean, &r.Duration, &r.Energy,
			&r.SurfaceScore, &r.DefectCount, &r.ToolWearCost, &r.LaborHours,
			&r.Revenue, &r.StoneType, &r.OperatorNotes); err != nil {
			return nil, eris.Wrap(err, "postgres: scan jobs_integrated")
		}
		t.Records = append(t.Records, r)
	}
	return t, eris.Wrap(rows.Err(), "postgres: iterate jobs_integrated")
}

func (s *PostgresWarehouse) ReadFeatures(ctx context.Context, filter FeatureFilter) (*model.FeatureTable, error) {
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
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if filter.JobID != "" {
		where = append(where, "job_id = "+arg(filter.JobID))
	}
	if filter.Material != "" {
		p := arg(filter.Material)
		where = append(where, "(LOWER(material) = LOWER("+p+") OR LOWER(stone_type) = LOWER("+p+"))")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY row_ix"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: query ml_features")
	}
	defer rows.Close()

	t := &model.FeatureTable{Columns: columns}
	for rows.Next() {
		var r model.FeatureRecord
		if err := rows.Scan(&r.JobID, &r.Material, &r.StoneType, &r.FeedRate,
			&r.Stepover, &r.PathLength, &r.VolumeRemoved, &r.SpindleCurrent,
			&r.Duration, &r.SurfaceScore, &r.ToolWearCost, &r.LaborHours,
			&r.Revenue, &r.ComplexityPerCm3, &r.LoadPerMM, &r.EnergyPerCm3,
			&r.ToolEfficiency, &r.ProfitMargin, &r.QualityVsSpeed); err != nil {
			return nil, eris.Wrap(err, "postgres: scan ml_features")
		}
		t.Records = append(t.Records, r)
	}
	return t, eris.Wrap(rows.Err(), "postgres: iterate ml_features")
}
