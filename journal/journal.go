// Package journal is the durable record of backtest sessions: one row per
// session, order, trade and position snapshot. The engine writes through
// the Journal interface and blocks on every call, so a journal row is on
// disk before the next bar is processed.
package journal

import (
	"time"

	"github.com/rustyeddy/barsim/cost"
)

// Session status values.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// SessionRecord describes one replay of a bar sequence against one
// strategy with fixed configuration.
type SessionRecord struct {
	ID             string // assigned by the journal
	Instrument     string
	Strategy       string
	Timeframe      string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	Commission     cost.Model
	Slippage       cost.Model
	Status         string
	CreatedAt      time.Time
	CompletedAt    time.Time
	FinalEquity    float64
}

// OrderRecord is one immediately-filled market order. This engine models
// no partial or rejected fills, so Status is always "filled".
type OrderRecord struct {
	ID         string // assigned by the journal
	SessionID  string
	Time       time.Time
	Instrument string
	Side       string // "buy" or "sell"
	Quantity   int64
	Price      float64 // execution price after slippage
	Status     string
	Reason     string
}

// TradeRecord is the fill for one order (exactly one per order).
type TradeRecord struct {
	ID         string // assigned by the journal
	OrderID    string
	SessionID  string
	Time       time.Time
	Price      float64
	Quantity   int64
	Commission float64
	Slippage   float64 // per-unit adverse adjustment that was applied
}

// PositionSnapshot is a point-in-time copy of the ledger after a fill.
type PositionSnapshot struct {
	SessionID    string
	Time         time.Time
	Instrument   string
	Quantity     int64
	AveragePrice float64 // 0 when flat
	CurrentPrice float64
	Cash         float64
	Equity       float64
	UnrealizedPL float64
	RealizedPL   float64
}

// Journal is the persistence sink port. Every call is synchronous and
// atomic: it either fully records or returns an error, and the engine
// stops the session on the first error.
type Journal interface {
	CreateSession(SessionRecord) (string, error)
	RecordOrder(OrderRecord) (string, error)
	RecordTrade(TradeRecord) (string, error)
	RecordPosition(PositionSnapshot) error
	CompleteSession(id string, finalEquity float64) error
	FailSession(id string) error
	Close() error
}
