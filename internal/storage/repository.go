// Package storage persists imported series in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"quarra/internal/core"
	ports "quarra/internal/sheets"

	_ "modernc.org/sqlite"
)

const dayLayout = "2006-01-02"

// Import run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ImportRun is one execution of the workbook import.
type ImportRun struct {
	ID         string
	Source     string
	Status     string
	Records    int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ports.SeriesReader = (*SQLiteRepository)(nil)
	_ ports.SeriesWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadSeries implements sheets.SeriesReader. A series that was never
// imported is reported as sheets.ErrSeriesNotFound.
func (r *SQLiteRepository) ReadSeries(ctx context.Context, kind core.SeriesKind) (core.Series, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM series WHERE kind = ?`, string(kind)).Scan(&one)
	if err == sql.ErrNoRows {
		return core.Series{}, fmt.Errorf("%s: %w", kind, ports.ErrSeriesNotFound)
	}
	if err != nil {
		return core.Series{}, fmt.Errorf("lookup series: %w", err)
	}

	series := core.Series{Kind: kind, Fields: []string{}, Records: []core.Record{}}

	fieldRows, err := r.db.QueryContext(ctx,
		`SELECT name FROM series_fields WHERE series = ? ORDER BY position`, string(kind))
	if err != nil {
		return core.Series{}, fmt.Errorf("query fields: %w", err)
	}
	for fieldRows.Next() {
		var name string
		if err := fieldRows.Scan(&name); err != nil {
			fieldRows.Close()
			return core.Series{}, fmt.Errorf("scan field: %w", err)
		}
		series.Fields = append(series.Fields, name)
	}
	fieldRows.Close()
	if err := fieldRows.Err(); err != nil {
		return core.Series{}, fmt.Errorf("iterate fields: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.day, v.field, v.value
		FROM records r
		LEFT JOIN record_values v ON v.record_id = r.id
		WHERE r.series = ?
		ORDER BY r.row_num`, string(kind))
	if err != nil {
		return core.Series{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	// Values are keyed by record so every record carries the fields in header order.
	type pending struct {
		date   core.Date
		values map[string]decimal.NullDecimal
	}
	var order []int64
	byID := map[int64]*pending{}
	for rows.Next() {
		var (
			id    int64
			day   string
			field sql.NullString
			value decimal.NullDecimal
		)
		if err := rows.Scan(&id, &day, &field, &value); err != nil {
			return core.Series{}, fmt.Errorf("scan record: %w", err)
		}
		p, ok := byID[id]
		if !ok {
			t, err := time.Parse(dayLayout, day)
			if err != nil {
				return core.Series{}, fmt.Errorf("record %d: invalid day %q: %w", id, day, err)
			}
			p = &pending{date: core.DateOf(t), values: map[string]decimal.NullDecimal{}}
			byID[id] = p
			order = append(order, id)
		}
		if field.Valid {
			p.values[field.String] = value
		}
	}
	if err := rows.Err(); err != nil {
		return core.Series{}, fmt.Errorf("iterate records: %w", err)
	}

	for _, id := range order {
		p := byID[id]
		rec := core.Record{Date: p.date, Fields: make([]core.Field, 0, len(series.Fields))}
		for _, name := range series.Fields {
			rec.Fields = append(rec.Fields, core.Field{Name: name, Value: p.values[name]})
		}
		series.Records = append(series.Records, rec)
	}
	return series, nil
}

// ReplaceSeries implements sheets.SeriesWriter. The previous content of the
// series is dropped in the same transaction.
func (r *SQLiteRepository) ReplaceSeries(ctx context.Context, s core.Series) error {
	if !s.Kind.IsValid() {
		return core.ErrInvalidSeries
	}
	for i, rec := range s.Records {
		if err := rec.Date.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	kind := string(s.Kind)
	stmts := []string{
		`DELETE FROM record_values WHERE record_id IN (SELECT id FROM records WHERE series = ?)`,
		`DELETE FROM records WHERE series = ?`,
		`DELETE FROM series_fields WHERE series = ?`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, kind); err != nil {
			return fmt.Errorf("clear series: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO series (kind, imported_at) VALUES (?, ?)
		 ON CONFLICT(kind) DO UPDATE SET imported_at = excluded.imported_at`,
		kind, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert series: %w", err)
	}

	for i, name := range s.Fields {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO series_fields (series, position, name) VALUES (?, ?, ?)`, kind, i, name); err != nil {
			return fmt.Errorf("insert field %q: %w", name, err)
		}
	}

	insertRecord, err := tx.PrepareContext(ctx, `INSERT INTO records (series, row_num, day) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer insertRecord.Close()
	insertValue, err := tx.PrepareContext(ctx, `INSERT INTO record_values (record_id, field, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare value insert: %w", err)
	}
	defer insertValue.Close()

	for i, rec := range s.Records {
		res, err := insertRecord.ExecContext(ctx, kind, i, rec.Date.String())
		if err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		for _, f := range rec.Fields {
			if _, err := insertValue.ExecContext(ctx, id, f.Name, f.Value); err != nil {
				return fmt.Errorf("insert value %q of record %d: %w", f.Name, i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Series replaced in SQLite",
		"series", kind,
		"fields", len(s.Fields),
		"records", len(s.Records))
	return nil
}

// RecordImportRun stores the outcome of an import.
func (r *SQLiteRepository) RecordImportRun(ctx context.Context, run ImportRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO import_runs (id, source, status, records, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Status, run.Records, run.Error,
		run.StartedAt.UTC(), run.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert import run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent runs first.
func (r *SQLiteRepository) ListImportRuns(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source, status, records, error, started_at, finished_at
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query import runs: %w", err)
	}
	defer rows.Close()

	var runs []ImportRun
	for rows.Next() {
		var run ImportRun
		if err := rows.Scan(&run.ID, &run.Source, &run.Status, &run.Records, &run.Error, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan import run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
