// Package session drives one deterministic replay: it pulls bars from a
// feed, asks the strategy for signals, turns signals into simulated fills
// through the cost models and the ledger, and records everything through
// the journal. Sessions are strictly sequential; parallel backtests run
// as independent sessions that share nothing mutable.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/barsim/cost"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/ledger"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/strategies"
)

// Status of a session. Completed and Failed are terminal.
type Status string

const (
	Created   Status = "created"
	Running   Status = "running"
	Completed Status = "completed"
	Failed    Status = "failed"
)

// ErrNoData reports that the feed returned no bars for the requested
// range. It is an expected outcome, distinct from feed failures, but it
// is still a hard precondition: the session fails before Running.
var ErrNoData = errors.New("no bars for requested range")

// SessionCloseReason tags the synthetic order that flattens an open
// position on the last bar of a trading day.
const SessionCloseReason = "session_close"

// Config is the engine-facing configuration surface: what to replay and
// under which cost model. It is built once and passed in explicitly;
// there is no ambient configuration state.
type Config struct {
	Instrument     string
	Timeframe      string
	Start          time.Time
	End            time.Time
	InitialCapital float64
	Commission     cost.Model
	Slippage       cost.Model
}

// Result summarizes one finished session. Wins and Losses count fills
// that realized positive and negative P&L; opening fills count as neither.
type Result struct {
	SessionID   string
	Status      Status
	FinalEquity float64
	Trades      int
	Wins        int
	Losses      int
	RealizedPL  float64
	Start       time.Time
	End         time.Time
}

// Controller replays one bar sequence against one strategy instance.
// A Controller is single-use: create one per session.
type Controller struct {
	cfg      Config
	feed     market.Feed
	strategy strategies.Strategy
	journal  journal.Journal

	status    Status
	sessionID string
	led       *ledger.Ledger

	lastExecPrice float64
	haveExec      bool
	lastTradeTime time.Time
	trades        int
	wins          int
	losses        int
}

func New(cfg Config, feed market.Feed, strat strategies.Strategy, j journal.Journal) (*Controller, error) {
	if feed == nil {
		return nil, fmt.Errorf("session: feed is required")
	}
	if strat == nil {
		return nil, fmt.Errorf("session: strategy is required")
	}
	if j == nil {
		return nil, fmt.Errorf("session: journal is required")
	}
	if cfg.InitialCapital < 0 {
		return nil, fmt.Errorf("session: initial capital must be >= 0, got %f", cfg.InitialCapital)
	}

	return &Controller{
		cfg:      cfg,
		feed:     feed,
		strategy: strat,
		journal:  j,
		status:   Created,
		led:      ledger.New(cfg.InitialCapital),
	}, nil
}

// Status returns the controller's current lifecycle state.
func (c *Controller) Status() Status { return c.status }

// Run executes the replay once. It returns a Result in every case; when
// the session fails the Result carries the Failed status and the error
// explains why. Records persisted before a failure are kept as-is.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	if c.status != Created {
		return c.result(), fmt.Errorf("session: already run (status %s)", c.status)
	}

	sid, err := c.journal.CreateSession(journal.SessionRecord{
		Instrument:     c.cfg.Instrument,
		Strategy:       c.strategy.Name(),
		Timeframe:      c.cfg.Timeframe,
		Start:          c.cfg.Start,
		End:            c.cfg.End,
		InitialCapital: c.cfg.InitialCapital,
		Commission:     c.cfg.Commission,
		Slippage:       c.cfg.Slippage,
		Status:         journal.StatusRunning,
	})
	if err != nil {
		c.status = Failed
		return c.result(), fmt.Errorf("session: create session record: %w", err)
	}
	c.sessionID = sid

	bars, err := c.feed.Load(ctx, c.cfg.Instrument, c.cfg.Start, c.cfg.End, c.cfg.Timeframe)
	if err != nil {
		return c.fail(fmt.Errorf("session %s: load bars: %w", sid, err))
	}
	if len(bars) == 0 {
		return c.fail(fmt.Errorf("session %s: %w", sid, ErrNoData))
	}

	c.status = Running

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			return c.fail(fmt.Errorf("session %s: replay interrupted: %w", sid, err))
		}

		signals, err := c.strategy.OnBar(bar)
		if err != nil {
			return c.fail(fmt.Errorf("session %s: strategy %s: %w", sid, c.strategy.Name(), err))
		}

		for _, sig := range signals {
			if err := c.executeSignal(bar, sig); err != nil {
				return c.fail(err)
			}
		}

		// Intraday-only trading: a day-boundary bar with an open
		// position always produces exactly one closing fill. The
		// strategy has no say in it.
		if bar.SessionEnd && c.led.Quantity() != 0 {
			if err := c.executeSignal(bar, c.closeSignal(bar)); err != nil {
				return c.fail(err)
			}
		}
	}

	final := c.finalEquity(bars[len(bars)-1])
	if err := c.journal.CompleteSession(sid, final); err != nil {
		c.status = Failed
		return c.result(), fmt.Errorf("session %s: complete: %w", sid, err)
	}

	c.status = Completed
	res := c.result()
	res.FinalEquity = final
	return res, nil
}

// closeSignal synthesizes the mandatory end-of-day flattening signal:
// opposite direction, full open size, priced at the bar close.
func (c *Controller) closeSignal(bar market.Bar) strategies.Signal {
	qty := c.led.Quantity()
	sig := strategies.Signal{
		Time:   bar.Time,
		Price:  bar.Close,
		Reason: SessionCloseReason,
	}
	if qty > 0 {
		sig.Direction = strategies.Short
		sig.Size = qty
	} else {
		sig.Direction = strategies.Long
		sig.Size = -qty
	}
	return sig
}

// executeSignal runs the full fill pipeline for one signal: slippage,
// commission on the adjusted price, ledger update, then order, trade and
// position records. Every journal write blocks before the next one.
func (c *Controller) executeSignal(bar market.Bar, sig strategies.Signal) error {
	if sig.Size <= 0 {
		return fmt.Errorf("session %s: strategy %s: signal size must be positive, got %d",
			c.sessionID, c.strategy.Name(), sig.Size)
	}
	if sig.Direction != strategies.Long && sig.Direction != strategies.Short {
		return fmt.Errorf("session %s: strategy %s: bad signal direction %d",
			c.sessionID, c.strategy.Name(), sig.Direction)
	}

	dir := int(sig.Direction)
	slip := c.cfg.Slippage.Slippage(sig.Price)
	execPrice := c.cfg.Slippage.ExecutionPrice(dir, sig.Price)
	commission := c.cfg.Commission.Commission(sig.Size, execPrice)

	fill := c.led.ApplyFill(dir, sig.Size, execPrice, commission)

	side := "buy"
	if sig.Direction == strategies.Short {
		side = "sell"
	}

	orderID, err := c.journal.RecordOrder(journal.OrderRecord{
		SessionID:  c.sessionID,
		Time:       sig.Time,
		Instrument: c.cfg.Instrument,
		Side:       side,
		Quantity:   sig.Size,
		Price:      execPrice,
		Status:     "filled",
		Reason:     sig.Reason,
	})
	if err != nil {
		return fmt.Errorf("session %s: record order: %w", c.sessionID, err)
	}

	if _, err := c.journal.RecordTrade(journal.TradeRecord{
		OrderID:    orderID,
		SessionID:  c.sessionID,
		Time:       sig.Time,
		Price:      execPrice,
		Quantity:   sig.Size,
		Commission: commission,
		Slippage:   slip,
	}); err != nil {
		return fmt.Errorf("session %s: record trade: %w", c.sessionID, err)
	}

	mark := c.led.Mark(execPrice)
	if err := c.journal.RecordPosition(journal.PositionSnapshot{
		SessionID:    c.sessionID,
		Time:         sig.Time,
		Instrument:   c.cfg.Instrument,
		Quantity:     fill.Quantity,
		AveragePrice: fill.AveragePrice,
		CurrentPrice: execPrice,
		Cash:         fill.Cash,
		Equity:       mark.Equity,
		UnrealizedPL: mark.UnrealizedPL,
		RealizedPL:   fill.RealizedPL,
	}); err != nil {
		return fmt.Errorf("session %s: record position: %w", c.sessionID, err)
	}

	c.lastExecPrice = execPrice
	c.haveExec = true
	c.lastTradeTime = sig.Time
	c.trades++
	switch {
	case fill.RealizedDelta > 0:
		c.wins++
	case fill.RealizedDelta < 0:
		c.losses++
	}
	return nil
}

// finalEquity marks the ledger at the last execution price, or at the
// last bar close when the session never traded.
func (c *Controller) finalEquity(last market.Bar) float64 {
	price := last.Close
	if c.haveExec {
		price = c.lastExecPrice
	}
	return c.led.Mark(price).Equity
}

// fail marks the session Failed in the journal and returns the
// triggering error. Already-persisted records are left in place: this is
// a simulation, there is nothing to compensate.
func (c *Controller) fail(err error) (Result, error) {
	c.status = Failed
	if c.sessionID != "" {
		if ferr := c.journal.FailSession(c.sessionID); ferr != nil {
			err = errors.Join(err, fmt.Errorf("session %s: mark failed: %w", c.sessionID, ferr))
		}
	}
	return c.result(), err
}

func (c *Controller) result() Result {
	return Result{
		SessionID:   c.sessionID,
		Status:      c.status,
		FinalEquity: c.led.Mark(c.markPrice()).Equity,
		Trades:      c.trades,
		Wins:        c.wins,
		Losses:      c.losses,
		RealizedPL:  c.led.RealizedPL(),
		Start:       c.cfg.Start,
		End:         c.cfg.End,
	}
}

func (c *Controller) markPrice() float64 {
	if c.haveExec {
		return c.lastExecPrice
	}
	return 0
}
