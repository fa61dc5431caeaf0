// Package ledger owns position, cash and P&L accounting for one replay
// session. A Ledger is single-writer: the session controller applies
// fills strictly in bar order and nothing else mutates it.
package ledger

// Ledger tracks the open position and cash of one session.
//
// Invariants, maintained by ApplyFill:
//   - Quantity equals the signed sum of all applied fill quantities.
//   - The average price is defined exactly when Quantity != 0, and is
//     then the size-weighted entry price of the open position.
type Ledger struct {
	quantity   int64
	avgPrice   float64 // meaningful only while quantity != 0
	cash       float64
	realizedPL float64
}

// Fill is the outcome of applying one fill: the ledger state after the
// update plus the P&L realized by this fill alone.
type Fill struct {
	Quantity      int64
	AveragePrice  float64 // 0 when flat
	Cash          float64
	RealizedDelta float64
	RealizedPL    float64 // cumulative
}

// Mark is a point-in-time equity observation at a given price.
type Mark struct {
	Equity       float64
	UnrealizedPL float64
}

func New(initialCash float64) *Ledger {
	return &Ledger{cash: initialCash}
}

func (l *Ledger) Quantity() int64 { return l.quantity }

func (l *Ledger) Cash() float64 { return l.cash }

func (l *Ledger) RealizedPL() float64 { return l.realizedPL }

// AveragePrice returns the weighted average entry price of the open
// position; ok is false when the ledger is flat.
func (l *Ledger) AveragePrice() (avg float64, ok bool) {
	if l.quantity == 0 {
		return 0, false
	}
	return l.avgPrice, true
}

// ApplyFill applies one immediate fill. direction is +1 for buy, -1 for
// sell; size is the unsigned fill quantity; price is the execution price
// after slippage; commission is charged against cash regardless of side.
//
// Opening a position sets the average price to the execution price.
// Adding in the same direction blends the average by size. A fill in the
// opposite direction realizes P&L for the quantity it closes; if it
// overshoots, the excess becomes a new position at the execution price.
func (l *Ledger) ApplyFill(direction int, size int64, price, commission float64) Fill {
	signed := int64(direction) * size
	oldQty := l.quantity

	l.cash -= float64(signed)*price + commission
	l.quantity = oldQty + signed

	var realized float64
	switch {
	case oldQty == 0:
		l.avgPrice = price

	case sameSign(oldQty, signed):
		// Size-weighted blend of the existing entry with this fill.
		total := float64(oldQty)*l.avgPrice + float64(signed)*price
		l.avgPrice = total / float64(l.quantity)

	default:
		closed := size
		if abs(oldQty) < size {
			closed = abs(oldQty)
		}
		// P&L realizes with the sign of the exposure being closed:
		// closing longs gains when price > avg, shorts when below.
		realized = float64(closed*sign(oldQty)) * (price - l.avgPrice)
		l.realizedPL += realized

		if sameSign(l.quantity, signed) {
			// Flipped through zero: remainder opens fresh at price.
			l.avgPrice = price
		}
	}

	if l.quantity == 0 {
		l.avgPrice = 0
	}

	return Fill{
		Quantity:      l.quantity,
		AveragePrice:  l.avgPrice,
		Cash:          l.cash,
		RealizedDelta: realized,
		RealizedPL:    l.realizedPL,
	}
}

// Mark values the ledger at the given price: equity is cash plus the
// mark-to-market value of the open position.
func (l *Ledger) Mark(price float64) Mark {
	m := Mark{Equity: l.cash + float64(l.quantity)*price}
	if l.quantity != 0 {
		m.UnrealizedPL = float64(l.quantity) * (price - l.avgPrice)
	}
	return m
}

func sameSign(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int64) int64 {
	if x < 0 {
		return -1
	}
	return 1
}
