package market

import (
	"context"
	"time"
)

// Bar is one OHLCV aggregate for a single instrument over a fixed interval.
// Bars are created once by a feed and never mutated by the engine.
//
// SessionEnd marks the last bar of a trading day. It is derived by the
// feed (see Hours.Annotate), not by the replay engine; the engine only
// reacts to it by flattening any open position.
type Bar struct {
	Instrument string
	Time       time.Time // UTC instant
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	SessionEnd bool
}

// Feed loads an ordered bar sequence for one instrument and time range.
//
// Implementations must return bars strictly increasing by Time, already
// filtered to trading hours/weekdays and annotated with SessionEnd.
// An empty slice with a nil error is a valid outcome meaning "no data";
// callers decide whether that is fatal.
type Feed interface {
	Load(ctx context.Context, instrument string, start, end time.Time, timeframe string) ([]Bar, error)
}
