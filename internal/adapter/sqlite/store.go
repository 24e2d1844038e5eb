// Package sqlite persists user profiles and AQI history in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/aqi-advisory-service/internal/domain"
	"github.com/couchcryptid/aqi-advisory-service/internal/observability"
	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit is used when History is called without a positive limit.
const DefaultHistoryLimit = 10

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
	user_id    TEXT PRIMARY KEY,
	username   TEXT NOT NULL DEFAULT '',
	age        INTEGER NOT NULL,
	has_asthma INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS aqi_history (
	reading_id         TEXT PRIMARY KEY,
	user_id            TEXT NOT NULL,
	location           TEXT NOT NULL DEFAULT '',
	lat                REAL NOT NULL DEFAULT 0,
	lon                REAL NOT NULL DEFAULT 0,
	aqi                INTEGER NOT NULL,
	category           TEXT NOT NULL,
	dominant_pollutant TEXT NOT NULL DEFAULT '',
	observed_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_aqi_history_user_time ON aqi_history(user_id, observed_at);
`

// Store is a SQLite-backed profile and history store.
// It implements pipeline.BatchLoader and pipeline.ProfileSource.
type Store struct {
	db      *sql.DB
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// The special path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, metrics *observability.Metrics, logger *slog.Logger) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows a single writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close() //nolint:errcheck // already returning the schema error
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, metrics: metrics, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness reports whether the database is reachable.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	return nil
}

// SaveProfile inserts or replaces a user's profile.
func (s *Store) SaveProfile(ctx context.Context, p domain.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = domain.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, username, age, has_asthma, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			age = excluded.age,
			has_asthma = excluded.has_asthma,
			updated_at = excluded.updated_at`,
		p.UserID, p.Username, p.Age, p.HasAsthma, formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save profile %q: %w", p.UserID, err)
	}
	return nil
}

// Profile returns the stored profile or domain.ErrProfileNotFound.
func (s *Store) Profile(ctx context.Context, userID string) (domain.Profile, error) {
	var (
		p         domain.Profile
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, username, age, has_asthma, updated_at FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Username, &p.Age, &p.HasAsthma, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Profile{}, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, userID)
	}
	if err != nil {
		return domain.Profile{}, fmt.Errorf("load profile %q: %w", userID, err)
	}
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// RecordAdvisories appends advisories to their users' history in one
// transaction. Re-recording a reading ID is a no-op, so redelivered batches
// do not duplicate history.
func (s *Store) RecordAdvisories(ctx context.Context, advisories []domain.Advisory) error {
	if len(advisories) == 0 {
		return nil
	}
	if err := s.recordAdvisories(ctx, advisories); err != nil {
		s.metrics.HistoryWrites.WithLabelValues("error").Add(float64(len(advisories)))
		return err
	}
	s.metrics.HistoryWrites.WithLabelValues("success").Add(float64(len(advisories)))
	s.logger.Debug("advisories recorded", "count", len(advisories))
	return nil
}

func (s *Store) recordAdvisories(ctx context.Context, advisories []domain.Advisory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO aqi_history
			(reading_id, user_id, location, lat, lon, aqi, category, dominant_pollutant, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, adv := range advisories {
		rec := domain.HistoryRecordFromAdvisory(adv)
		if rec.UserID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, rec.ReadingID, rec.UserID, rec.Location, rec.Geo.Lat, rec.Geo.Lon,
			rec.AQI, string(rec.Category), rec.DominantPollutant, formatTime(rec.ObservedAt)); err != nil {
			return fmt.Errorf("insert history %q: %w", rec.ReadingID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history tx: %w", err)
	}
	return nil
}

// LoadBatch implements pipeline.BatchLoader.
func (s *Store) LoadBatch(ctx context.Context, advisories []domain.Advisory) error {
	return s.RecordAdvisories(ctx, advisories)
}

// History returns up to limit of the user's records, newest first.
func (s *Store) History(ctx context.Context, userID string, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT reading_id, user_id, location, lat, lon, aqi, category, dominant_pollutant, observed_at
		FROM aqi_history
		WHERE user_id = ?
		ORDER BY observed_at DESC, reading_id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.HistoryRecord
	for rows.Next() {
		var (
			rec        domain.HistoryRecord
			category   string
			observedAt string
		)
		if err := rows.Scan(&rec.ReadingID, &rec.UserID, &rec.Location, &rec.Geo.Lat, &rec.Geo.Lon,
			&rec.AQI, &category, &rec.DominantPollutant, &observedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		rec.Category = domain.Category(category)
		rec.ObservedAt = parseTime(observedAt)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

// Timestamps are stored as fixed-width UTC text so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
