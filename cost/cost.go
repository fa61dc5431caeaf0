// Package cost implements the transaction-cost models applied to every
// simulated fill: commission charged per trade and slippage, the adverse
// price adjustment that models imperfect execution.
//
// All functions are pure. An unrecognized or empty model kind yields zero
// cost rather than an error; a missing model means "trade for free", which
// keeps older configurations working.
package cost

// Model kinds.
const (
	Fixed      = "fixed"      // constant amount per trade
	PerUnit    = "per_unit"   // amount per share/contract
	Percentage = "percentage" // rate applied to price
)

// Model configures one cost component. Amount is used by the fixed and
// per_unit kinds, Rate by percentage.
type Model struct {
	Kind   string  `json:"kind" yaml:"kind"`
	Amount float64 `json:"amount,omitempty" yaml:"amount,omitempty"`
	Rate   float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// Commission returns the fee for filling qty units at price.
func (m Model) Commission(qty int64, price float64) float64 {
	switch m.Kind {
	case Fixed:
		return m.Amount
	case PerUnit:
		return m.Amount * float64(qty)
	case Percentage:
		return m.Rate * price * float64(qty)
	}
	return 0
}

// Slippage returns the per-unit adverse price adjustment at price.
func (m Model) Slippage(price float64) float64 {
	switch m.Kind {
	case Fixed, PerUnit:
		return m.Amount
	case Percentage:
		return m.Rate * price
	}
	return 0
}

// ExecutionPrice applies slippage directionally: buys (+1) fill above the
// reference price, sells (-1) below it. Commission should be computed on
// the price returned here, not the reference price.
func (m Model) ExecutionPrice(direction int, price float64) float64 {
	return price + float64(direction)*m.Slippage(price)
}
