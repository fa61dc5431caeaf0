package strategies

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/barsim/market"
)

// Direction of a signal: +1 long/buy, -1 short/sell.
type Direction int

const (
	Long  Direction = +1
	Short Direction = -1
)

// Signal is a strategy's expressed intent to trade, not yet an order.
// Signals are immutable once returned from OnBar.
type Signal struct {
	Time      time.Time
	Direction Direction
	Size      int64   // positive unit count
	Price     float64 // reference price, normally the bar close
	Reason    string  // free-form tag, recorded with the order
}

// Strategy is the contract a backtest strategy implements. It is fed one
// bar at a time, in order, and may keep private accumulating state
// (rolling windows, last-seen values) across calls. It must never touch
// engine-owned state: it only describes intent through Signals.
type Strategy interface {
	Name() string

	// Initialize configures the strategy from a parameter map before the
	// first bar. Unknown keys are ignored; invalid values are an error.
	Initialize(params map[string]float64) error

	// OnBar consumes the next bar and returns zero or more signals in
	// the order they should be filled. A returned error fails the
	// whole session.
	OnBar(b market.Bar) ([]Signal, error)
}

// ByName constructs a registered strategy and initializes it with params.
func ByName(name string, params map[string]float64) (Strategy, error) {
	var s Strategy

	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		s = Noop{}
	case "ma-cross", "macross":
		s = &MACross{}
	case "rsi":
		s = &RSIReversal{}
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, ma-cross, rsi)", name)
	}

	if err := s.Initialize(params); err != nil {
		return nil, fmt.Errorf("initialize %s: %w", s.Name(), err)
	}
	return s, nil
}
