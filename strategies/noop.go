package strategies

import "github.com/rustyeddy/barsim/market"

// Noop never trades. Useful as a baseline and in tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Initialize(map[string]float64) error { return nil }

func (Noop) OnBar(market.Bar) ([]Signal, error) { return nil, nil }
