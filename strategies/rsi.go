package strategies

import (
	"fmt"

	"github.com/rustyeddy/barsim/indicators"
	"github.com/rustyeddy/barsim/market"
)

// RSIReversal buys when RSI drops below the oversold level and sells when
// it rises above the overbought level. It signals once per excursion: the
// index has to come back inside the band before it can fire again.
//
// Parameters:
//   - rsi_period (default 14)
//   - oversold   (default 30)
//   - overbought (default 70)
//   - size       (default 100)
type RSIReversal struct {
	rsi        *indicators.RSI
	oversold   float64
	overbought float64
	size       int64

	inBand bool
}

func (s *RSIReversal) Name() string { return "rsi" }

func (s *RSIReversal) Initialize(params map[string]float64) error {
	period := intParam(params, "rsi_period", 14)
	s.oversold = floatParam(params, "oversold", 30)
	s.overbought = floatParam(params, "overbought", 70)
	size := intParam(params, "size", 100)

	if period <= 1 {
		return fmt.Errorf("rsi_period must be > 1, got %d", period)
	}
	if s.oversold >= s.overbought {
		return fmt.Errorf("oversold %.1f must be below overbought %.1f", s.oversold, s.overbought)
	}
	if size <= 0 {
		return fmt.Errorf("size must be positive, got %d", size)
	}

	s.rsi = indicators.NewRSI(period)
	s.size = int64(size)
	s.inBand = false
	return nil
}

func (s *RSIReversal) OnBar(b market.Bar) ([]Signal, error) {
	s.rsi.Update(b.Close)
	if !s.rsi.Ready() {
		return nil, nil
	}

	v := s.rsi.Value()
	if v > s.oversold && v < s.overbought {
		s.inBand = true
		return nil, nil
	}
	if !s.inBand {
		return nil, nil
	}
	s.inBand = false

	sig := Signal{
		Time:  b.Time,
		Size:  s.size,
		Price: b.Close,
	}
	if v <= s.oversold {
		sig.Direction = Long
		sig.Reason = "rsi_oversold"
	} else {
		sig.Direction = Short
		sig.Reason = "rsi_overbought"
	}
	return []Signal{sig}, nil
}
