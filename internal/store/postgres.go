// Package store persists observation records with insert-or-update
// semantics on the (site_id, source, observation_time) uniqueness key.
package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/weather-etl/internal/weather"
)

// Config holds PostgreSQL connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// querier is the slice of pgxpool.Pool the store needs; tests substitute it.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Postgres is the relational observation store. Each operation acquires and
// releases its own pooled connection, so a failed write cannot leak one. In
// dry-run mode every write is a no-op reporting full success and no
// connection is ever opened.
type Postgres struct {
	db     querier
	pool   *pgxpool.Pool
	dryRun bool
}

// Open opens a connection pool and verifies it with a ping. With dryRun set
// it returns immediately without touching the database.
func Open(ctx context.Context, cfg Config, dryRun bool) (*Postgres, error) {
	if dryRun {
		return &Postgres{dryRun: true}, nil
	}

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	connStr := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, sslMode)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Postgres{db: pool, pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// CreateSchema creates the observations table and its indexes.
func (s *Postgres) CreateSchema(ctx context.Context) error {
	if s.dryRun {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS weather_observations (
		id                  BIGSERIAL PRIMARY KEY,
		site_id             INTEGER NOT NULL,
		source              TEXT NOT NULL,
		data_type           TEXT NOT NULL DEFAULT 'hourly',
		observation_time    TIMESTAMPTZ NOT NULL,
		fetch_time          TIMESTAMPTZ NOT NULL,
		temp_c              DOUBLE PRECISION,
		humidity_pct        DOUBLE PRECISION,
		pressure_hpa        DOUBLE PRECISION,
		precipitation_mm    DOUBLE PRECISION,
		wind_speed_10m      DOUBLE PRECISION,
		raw_payload         TEXT,
		ingestion_run_id    TEXT NOT NULL,
		audit_updated_by    TEXT NOT NULL DEFAULT 'weather-etl',
		audit_updated_dttm  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (site_id, source, observation_time)
	);

	CREATE INDEX IF NOT EXISTS idx_weather_obs_run ON weather_observations(ingestion_run_id);
	CREATE INDEX IF NOT EXISTS idx_weather_obs_site_time ON weather_observations(site_id, observation_time);
	`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const upsertSQL = `
	INSERT INTO weather_observations
		(site_id, source, data_type, observation_time, fetch_time,
		 temp_c, humidity_pct, pressure_hpa, precipitation_mm, wind_speed_10m,
		 raw_payload, ingestion_run_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (site_id, source, observation_time) DO UPDATE SET
		data_type = EXCLUDED.data_type,
		fetch_time = EXCLUDED.fetch_time,
		temp_c = EXCLUDED.temp_c,
		humidity_pct = EXCLUDED.humidity_pct,
		pressure_hpa = EXCLUDED.pressure_hpa,
		precipitation_mm = EXCLUDED.precipitation_mm,
		wind_speed_10m = EXCLUDED.wind_speed_10m,
		raw_payload = EXCLUDED.raw_payload,
		ingestion_run_id = EXCLUDED.ingestion_run_id,
		audit_updated_by = 'weather-etl',
		audit_updated_dttm = NOW()
`

func upsertArgs(rec weather.ObservationRecord) []any {
	var raw *string
	if len(rec.RawPayload) > 0 {
		s := string(rec.RawPayload)
		raw = &s
	}
	return []any{
		rec.SiteID, rec.Source, string(rec.DataType), rec.ObservationTime, rec.FetchTime,
		rec.TempC, rec.HumidityPct, rec.PressureHpa, rec.PrecipitationMM, rec.WindSpeed10M,
		raw, rec.IngestionRunID,
	}
}

// UpsertOne inserts the record, or updates the existing row sharing its
// uniqueness key. The key columns are never changed on conflict.
func (s *Postgres) UpsertOne(ctx context.Context, rec weather.ObservationRecord) error {
	if s.dryRun {
		log.Printf("[DRY-RUN] saving record for site %d at %s", rec.SiteID, rec.ObservationTime.Format(time.RFC3339))
		return nil
	}

	if _, err := s.db.Exec(ctx, upsertSQL, upsertArgs(rec)...); err != nil {
		return fmt.Errorf("upsert observation: %w", err)
	}
	return nil
}

// UpsertBatch upserts all records in a single round trip. If the batched
// write fails it falls back to per-record writes so a single bad round trip
// cannot lose the whole batch; records already applied are re-issued, which
// the upsert makes harmless. Returns (succeeded, total).
func (s *Postgres) UpsertBatch(ctx context.Context, recs []weather.ObservationRecord) (int, int) {
	if s.dryRun {
		return len(recs), len(recs)
	}
	if len(recs) == 0 {
		return 0, 0
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(upsertSQL, upsertArgs(rec)...)
	}

	br := s.db.SendBatch(ctx, batch)
	for range recs {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			log.Printf("ERROR: batch upsert failed, falling back to per-record writes: %v", err)
			return s.upsertFallback(ctx, recs), len(recs)
		}
	}
	if err := br.Close(); err != nil {
		log.Printf("ERROR: batch upsert close failed, falling back to per-record writes: %v", err)
		return s.upsertFallback(ctx, recs), len(recs)
	}

	return len(recs), len(recs)
}

func (s *Postgres) upsertFallback(ctx context.Context, recs []weather.ObservationRecord) int {
	successful := 0
	for _, rec := range recs {
		if err := s.UpsertOne(ctx, rec); err != nil {
			log.Printf("WARNING: fallback upsert failed for site %d at %s: %v",
				rec.SiteID, rec.ObservationTime.Format(time.RFC3339), err)
			continue
		}
		successful++
	}
	return successful
}

// DuplicateGroup is a uniqueness-key group holding more than one row;
// a correctly behaving store never produces any.
type DuplicateGroup struct {
	SiteID          int
	Source          string
	ObservationTime time.Time
	Count           int
}

// FindDuplicates reports every uniqueness-key group with more than one row,
// largest groups first.
func (s *Postgres) FindDuplicates(ctx context.Context) ([]DuplicateGroup, error) {
	if s.dryRun {
		return nil, fmt.Errorf("duplicate check unavailable in dry-run mode")
	}

	rows, err := s.db.Query(ctx, `
		SELECT site_id, source, observation_time, COUNT(*) AS cnt
		FROM weather_observations
		GROUP BY site_id, source, observation_time
		HAVING COUNT(*) > 1
		ORDER BY cnt DESC, site_id, observation_time
	`)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}
	defer rows.Close()

	var groups []DuplicateGroup
	for rows.Next() {
		var g DuplicateGroup
		if err := rows.Scan(&g.SiteID, &g.Source, &g.ObservationTime, &g.Count); err != nil {
			return nil, fmt.Errorf("scan duplicate group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetRange returns the stored observations for a site between from and to
// (inclusive), ordered by observation time.
func (s *Postgres) GetRange(ctx context.Context, siteID int, from, to time.Time) ([]weather.ObservationRecord, error) {
	if s.dryRun {
		return nil, fmt.Errorf("range query unavailable in dry-run mode")
	}

	rows, err := s.db.Query(ctx, `
		SELECT site_id, source, data_type, observation_time, fetch_time,
		       temp_c, humidity_pct, pressure_hpa, precipitation_mm, wind_speed_10m,
		       raw_payload, ingestion_run_id
		FROM weather_observations
		WHERE site_id = $1 AND observation_time BETWEEN $2 AND $3
		ORDER BY observation_time
	`, siteID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var recs []weather.ObservationRecord
	for rows.Next() {
		var rec weather.ObservationRecord
		var dataType string
		var raw *string
		if err := rows.Scan(&rec.SiteID, &rec.Source, &dataType, &rec.ObservationTime, &rec.FetchTime,
			&rec.TempC, &rec.HumidityPct, &rec.PressureHpa, &rec.PrecipitationMM, &rec.WindSpeed10M,
			&raw, &rec.IngestionRunID); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		rec.DataType = weather.DataType(dataType)
		if raw != nil {
			rec.RawPayload = []byte(*raw)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
