package indicators

import "fmt"

// RSI is a streaming Relative Strength Index over simple rolling means of
// gains and losses.
type RSI struct {
	period int
	prev   float64
	havePrev bool
	gains  *SimpleMA
	losses *SimpleMA
}

func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  NewMA(period),
		losses: NewMA(period),
	}
}

func (r *RSI) Name() string {
	return fmt.Sprintf("RSI(%d)", r.period)
}

// Warmup is period+1 closes: the first close only establishes prev.
func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Reset() {
	r.prev = 0
	r.havePrev = false
	r.gains.Reset()
	r.losses.Reset()
}

func (r *RSI) Update(price float64) {
	if !r.havePrev {
		r.prev = price
		r.havePrev = true
		return
	}
	delta := price - r.prev
	r.prev = price

	gain, loss := 0.0, 0.0
	if delta > 0 {
		gain = delta
	} else {
		loss = -delta
	}
	r.gains.Update(gain)
	r.losses.Update(loss)
}

func (r *RSI) Ready() bool {
	return r.gains.Ready() && r.losses.Ready()
}

// Value is in [0, 100]. With zero average loss the index saturates at 100.
func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	avgLoss := r.losses.Value()
	if avgLoss == 0 {
		return 100
	}
	rs := r.gains.Value() / avgLoss
	return 100 - 100/(1+rs)
}
