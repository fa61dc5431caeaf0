// Package feed provides the bar-feed adapters that sit in front of the
// session engine. Both adapters filter bars to trading hours and
// annotate day boundaries before the engine ever sees them; the engine
// trusts SessionEnd blindly.
package feed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/barsim/market"
)

const barsSchema = `
CREATE TABLE IF NOT EXISTS bars (
	instrument TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL,
	PRIMARY KEY (instrument, timeframe, timestamp)
);
`

// SQLiteStore is a historical bar store backed by SQLite. It serves
// both sides: the data importer writes bars in, the session engine
// loads them back out through the market.Feed interface.
type SQLiteStore struct {
	db    *sql.DB
	hours *market.Hours
}

func NewSQLiteStore(path string, hours *market.Hours) (*SQLiteStore, error) {
	if hours == nil {
		return nil, fmt.Errorf("feed: trading hours are required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(barsSchema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, hours: hours}, nil
}

// Load returns the bar sequence for one instrument/range/timeframe,
// ordered by time, filtered to trading hours and annotated with
// SessionEnd. An empty result is returned as (nil, nil).
func (s *SQLiteStore) Load(ctx context.Context, instrument string, start, end time.Time, timeframe string) ([]market.Bar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, open, high, low, close, volume
		FROM bars
		WHERE instrument = ? AND timeframe = ?
		AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC`,
		instrument, timeframe, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("feed: query bars: %w", err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		b := market.Bar{Instrument: instrument}
		if err := rows.Scan(&b.Time, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("feed: scan bar: %w", err)
		}
		b.Time = b.Time.UTC()
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feed: read bars: %w", err)
	}

	bars = s.hours.Filter(bars)
	if len(bars) == 0 {
		return nil, nil
	}
	return s.hours.Annotate(bars), nil
}

// InsertBars writes a batch of bars in one transaction. Duplicate
// (instrument, timeframe, timestamp) rows are skipped, so re-importing
// an archive is idempotent. Returns the number of rows inserted.
func (s *SQLiteStore) InsertBars(instrument, timeframe string, bars []market.Bar) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO bars
		(instrument, timeframe, timestamp, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, b := range bars {
		if err := validateBar(b); err != nil {
			return inserted, fmt.Errorf("feed: bar at %s: %w", b.Time.Format(time.RFC3339), err)
		}
		res, err := stmt.Exec(instrument, timeframe, b.Time.UTC(), b.Open, b.High, b.Low, b.Close, b.Volume)
		if err != nil {
			return inserted, err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func validateBar(b market.Bar) error {
	if b.Time.IsZero() {
		return fmt.Errorf("missing timestamp")
	}
	if b.High < b.Low {
		return fmt.Errorf("high %f below low %f", b.High, b.Low)
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if b.Volume < 0 {
		return fmt.Errorf("negative volume %f", b.Volume)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
