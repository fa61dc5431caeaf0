package strategies

import (
	"fmt"

	"github.com/rustyeddy/barsim/indicators"
	"github.com/rustyeddy/barsim/market"
)

// MACross is the classic moving-average crossover: buy when the short MA
// crosses above the long MA, sell when it crosses back below.
//
// Parameters:
//   - short_window (default 10)
//   - long_window  (default 50)
//   - size         (default 100) units per signal
type MACross struct {
	shortMA *indicators.SimpleMA
	longMA  *indicators.SimpleMA
	size    int64

	above    bool
	haveSide bool
}

func (s *MACross) Name() string { return "ma-cross" }

func (s *MACross) Initialize(params map[string]float64) error {
	shortW := intParam(params, "short_window", 10)
	longW := intParam(params, "long_window", 50)
	size := intParam(params, "size", 100)

	if shortW <= 0 || longW <= 0 || shortW >= longW {
		return fmt.Errorf("need 0 < short_window < long_window, got %d/%d", shortW, longW)
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	s.shortMA = indicators.NewMA(shortW)
	s.longMA = indicators.NewMA(longW)
	s.size = int64(size)
	s.haveSide = false
	return nil
}

func (s *MACross) OnBar(b market.Bar) ([]Signal, error) {
	s.shortMA.Update(b.Close)
	s.longMA.Update(b.Close)

	if !s.shortMA.Ready() || !s.longMA.Ready() {
		return nil, nil
	}

	above := s.shortMA.Value() > s.longMA.Value()
	if !s.haveSide {
		// First readable bar just establishes which side we are on.
		s.above = above
		s.haveSide = true
		return nil, nil
	}
	if above == s.above {
		return nil, nil
	}
	s.above = above

	sig := Signal{
		Time:  b.Time,
		Size:  s.size,
		Price: b.Close,
	}
	if above {
		sig.Direction = Long
		sig.Reason = "ma_cross_up"
	} else {
		sig.Direction = Short
		sig.Reason = "ma_cross_down"
	}
	return []Signal{sig}, nil
}

func intParam(params map[string]float64, key string, def int) int {
	if v, ok := params[key]; ok {
		return int(v)
	}
	return def
}

func floatParam(params map[string]float64, key string, def float64) float64 {
	if v, ok := params[key]; ok {
		return v
	}
	return def
}
