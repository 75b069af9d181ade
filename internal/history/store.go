// Package history keeps a DuckDB-backed record of finished simulation runs.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb"

	"github.com/radioastro101/backend/internal/interferometry"
	"github.com/radioastro101/backend/internal/logging"
	"github.com/radioastro101/backend/internal/models"
)

// DefaultLimit is the page size used when List is called without one.
const DefaultLimit = 50

const runColumns = `id, created_at, array_name, sky_model, synthesis_time, integration_time,
	wavelength, declination, zenith, antennas, baselines, samples, cell_size, kernel,
	image_rows, image_cols, beam_peak, image_peak, elapsed_ms`

// RunStore persists RunSummary rows. It is safe for concurrent use.
type RunStore struct {
	db     *sql.DB
	dbPath string
	log    logging.Logger

	// Limits concurrent queries against the single DuckDB file.
	querySem chan struct{}
}

// Config selects the database file and its resource limits.
type Config struct {
	// Path of the DuckDB file; empty keeps the history in memory.
	Path        string
	Threads     int
	MemoryLimit string
}

// Open opens (or creates) the run database described by cfg.
func Open(cfg Config, log logging.Logger) (*RunStore, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 2
	}
	if cfg.MemoryLimit == "" {
		cfg.MemoryLimit = "256MB"
	}
	dbPath := cfg.Path

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", strings.ReplaceAll(cfg.MemoryLimit, "'", "")),
			fmt.Sprintf("PRAGMA threads=%d", cfg.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id               VARCHAR PRIMARY KEY,
			created_at       BIGINT NOT NULL,
			array_name       VARCHAR NOT NULL,
			sky_model        VARCHAR NOT NULL,
			synthesis_time   DOUBLE,
			integration_time DOUBLE,
			wavelength       DOUBLE,
			declination      DOUBLE,
			zenith           BOOLEAN,
			antennas         INTEGER,
			baselines        INTEGER,
			samples          INTEGER,
			cell_size        DOUBLE,
			kernel           VARCHAR,
			image_rows       INTEGER,
			image_cols       INTEGER,
			beam_peak        DOUBLE,
			image_peak       DOUBLE,
			elapsed_ms       BIGINT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}

	log.Info(context.Background(), "run history opened", logging.String("path", displayPath(dbPath)))
	return &RunStore{
		db:       db,
		dbPath:   dbPath,
		log:      log,
		querySem: make(chan struct{}, 3),
	}, nil
}

func (s *RunStore) acquire(ctx context.Context) (func(), error) {
	select {
	case s.querySem <- struct{}{}:
		return func() { <-s.querySem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Record appends one run using the DuckDB Appender.
func (s *RunStore) Record(ctx context.Context, run models.RunSummary) error {
	release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		appender, err := duckdb.NewAppenderFromConn(dConn, "", "runs")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer appender.Close()

		err = appender.AppendRow(
			run.ID,
			run.CreatedAt.UnixMilli(),
			run.Array,
			run.SkyModel,
			run.SynthesisTime,
			run.IntegrationTime,
			run.Wavelength,
			run.Declination,
			run.Zenith,
			int32(run.Antennas),
			int32(run.Baselines),
			int32(run.Samples),
			run.CellSize,
			run.Kernel,
			int32(run.ImageRows),
			int32(run.ImageCols),
			run.BeamPeak,
			run.ImagePeak,
			run.ElapsedMs,
		)
		if err != nil {
			return fmt.Errorf("failed to append run %s: %w", run.ID, err)
		}
		return appender.Flush()
	})
	if err != nil {
		return fmt.Errorf("appender error: %w", err)
	}
	return nil
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY created_at DESC, id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]models.RunSummary, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a single run. Unknown IDs are resource errors.
func (s *RunStore) Get(ctx context.Context, id string) (*models.RunSummary, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, interferometry.Resourcef("get run", "run %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Count returns the number of stored runs.
func (s *RunStore) Count(ctx context.Context) (int, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Close closes the database. The file is kept.
func (s *RunStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (models.RunSummary, error) {
	var (
		run       models.RunSummary
		createdAt int64
		antennas  int32
		baselines int32
		samples   int32
		rows      int32
		cols      int32
	)
	err := row.Scan(
		&run.ID,
		&createdAt,
		&run.Array,
		&run.SkyModel,
		&run.SynthesisTime,
		&run.IntegrationTime,
		&run.Wavelength,
		&run.Declination,
		&run.Zenith,
		&antennas,
		&baselines,
		&samples,
		&run.CellSize,
		&run.Kernel,
		&rows,
		&cols,
		&run.BeamPeak,
		&run.ImagePeak,
		&run.ElapsedMs,
	)
	if err != nil {
		return run, err
	}
	run.CreatedAt = time.UnixMilli(createdAt).UTC()
	run.Antennas = int(antennas)
	run.Baselines = int(baselines)
	run.Samples = int(samples)
	run.ImageRows = int(rows)
	run.ImageCols = int(cols)
	return run, nil
}

func displayPath(p string) string {
	if p == "" {
		return ":memory:"
	}
	return p
}
