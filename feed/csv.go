package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/barsim/market"
)

// CSVFeed reads one instrument's bars from a CSV file with the header
// time,open,high,low,close,volume (RFC3339 timestamps). Like the SQLite
// store it filters to trading hours and annotates day boundaries.
type CSVFeed struct {
	path       string
	instrument string
	hours      *market.Hours
}

func NewCSV(path, instrument string, hours *market.Hours) (*CSVFeed, error) {
	if hours == nil {
		return nil, fmt.Errorf("feed: trading hours are required")
	}
	return &CSVFeed{path: path, instrument: instrument, hours: hours}, nil
}

func (f *CSVFeed) Load(ctx context.Context, instrument string, start, end time.Time, timeframe string) ([]market.Bar, error) {
	if instrument != f.instrument {
		return nil, fmt.Errorf("feed: csv file holds %q, requested %q", f.instrument, instrument)
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("feed: open %s: %w", f.path, err)
	}
	defer file.Close()

	bars, err := ReadBars(file, instrument)
	if err != nil {
		return nil, fmt.Errorf("feed: %s: %w", f.path, err)
	}

	var prev time.Time
	inRange := bars[:0]
	for _, b := range bars {
		if b.Time.Before(start) || b.Time.After(end) {
			continue
		}
		if !prev.IsZero() && !b.Time.After(prev) {
			return nil, fmt.Errorf("feed: %s: bars out of order at %s", f.path, b.Time.Format(time.RFC3339))
		}
		prev = b.Time
		inRange = append(inRange, b)
	}

	inRange = f.hours.Filter(inRange)
	if len(inRange) == 0 {
		return nil, nil
	}
	return f.hours.Annotate(inRange), nil
}

// ReadBars parses time,open,high,low,close,volume rows. A header row is
// detected and skipped.
func ReadBars(r io.Reader, instrument string) ([]market.Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 6

	var bars []market.Bar
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		if line == 1 && rec[0] == "time" {
			continue
		}

		t, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad time %q: %w", line, rec[0], err)
		}

		vals := make([]float64, 5)
		for i := 0; i < 5; i++ {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad number %q: %w", line, rec[i+1], err)
			}
			vals[i] = v
		}

		bars = append(bars, market.Bar{
			Instrument: instrument,
			Time:       t.UTC(),
			Open:       vals[0],
			High:       vals[1],
			Low:        vals[2],
			Close:      vals[3],
			Volume:     vals[4],
		})
	}
	return bars, nil
}
