package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/cost"
	"github.com/rustyeddy/barsim/journal"
	"github.com/rustyeddy/barsim/market"
	"github.com/rustyeddy/barsim/strategies"
)

// memJournal is an in-memory journal with sequential ids, so two
// identical runs produce byte-identical records.
type memJournal struct {
	nextID    int
	sessions  map[string]journal.SessionRecord
	orders    []journal.OrderRecord
	trades    []journal.TradeRecord
	positions []journal.PositionSnapshot

	failCreateSession bool
	failRecordOrder   bool
}

func newMemJournal() *memJournal {
	return &memJournal{sessions: map[string]journal.SessionRecord{}}
}

func (m *memJournal) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%04d", prefix, m.nextID)
}

func (m *memJournal) CreateSession(s journal.SessionRecord) (string, error) {
	if m.failCreateSession {
		return "", errors.New("journal unavailable")
	}
	sid := m.id("sess")
	s.ID = sid
	s.Status = journal.StatusRunning
	m.sessions[sid] = s
	return sid, nil
}

func (m *memJournal) RecordOrder(o journal.OrderRecord) (string, error) {
	if m.failRecordOrder {
		return "", errors.New("disk full")
	}
	o.ID = m.id("ord")
	m.orders = append(m.orders, o)
	return o.ID, nil
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) (string, error) {
	t.ID = m.id("trd")
	m.trades = append(m.trades, t)
	return t.ID, nil
}

func (m *memJournal) RecordPosition(p journal.PositionSnapshot) error {
	m.positions = append(m.positions, p)
	return nil
}

func (m *memJournal) CompleteSession(sid string, finalEquity float64) error {
	s, ok := m.sessions[sid]
	if !ok {
		return fmt.Errorf("session %q not found", sid)
	}
	s.Status = journal.StatusCompleted
	s.FinalEquity = finalEquity
	m.sessions[sid] = s
	return nil
}

func (m *memJournal) FailSession(sid string) error {
	s, ok := m.sessions[sid]
	if !ok {
		return fmt.Errorf("session %q not found", sid)
	}
	s.Status = journal.StatusFailed
	m.sessions[sid] = s
	return nil
}

func (m *memJournal) Close() error { return nil }

// sliceFeed serves a fixed bar sequence, or a load error.
type sliceFeed struct {
	bars []market.Bar
	err  error
}

func (f *sliceFeed) Load(ctx context.Context, instrument string, start, end time.Time, timeframe string) ([]market.Bar, error) {
	return f.bars, f.err
}

// scriptStrategy emits pre-planned signals keyed by bar index.
type scriptStrategy struct {
	signals map[int][]strategies.Signal
	errAt   int // bar index at which OnBar errors, -1 for never
	bar     int
}

func newScript(signals map[int][]strategies.Signal) *scriptStrategy {
	return &scriptStrategy{signals: signals, errAt: -1}
}

func (s *scriptStrategy) Name() string { return "script" }

func (s *scriptStrategy) Initialize(map[string]float64) error { return nil }

func (s *scriptStrategy) OnBar(b market.Bar) ([]strategies.Signal, error) {
	i := s.bar
	s.bar++
	if i == s.errAt {
		return nil, errors.New("indicator blew up")
	}
	return s.signals[i], nil
}

func testConfig() Config {
	return Config{
		Instrument:     "SPY",
		Timeframe:      "M5",
		Start:          time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
	}
}

func dayBars(closes ...float64) []market.Bar {
	t0 := time.Date(2025, 1, 6, 14, 30, 0, 0, time.UTC)
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Instrument: "SPY",
			Time:       t0.Add(time.Duration(i) * 5 * time.Minute),
			Open:       c, High: c + 1, Low: c - 1, Close: c,
			Volume: 100,
		}
	}
	bars[len(bars)-1].SessionEnd = true
	return bars
}

func buy(at time.Time, size int64, price float64) strategies.Signal {
	return strategies.Signal{Time: at, Direction: strategies.Long, Size: size, Price: price, Reason: "entry"}
}

func sell(at time.Time, size int64, price float64) strategies.Signal {
	return strategies.Signal{Time: at, Direction: strategies.Short, Size: size, Price: price, Reason: "exit"}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()
	j := newMemJournal()
	f := &sliceFeed{}
	s := newScript(nil)

	_, err := New(testConfig(), nil, s, j)
	assert.Error(t, err)
	_, err = New(testConfig(), f, nil, j)
	assert.Error(t, err)
	_, err = New(testConfig(), f, s, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.InitialCapital = -1
	_, err = New(cfg, f, s, j)
	assert.Error(t, err)

	ctrl, err := New(testConfig(), f, s, j)
	require.NoError(t, err)
	assert.Equal(t, Created, ctrl.Status())
}

func TestRoundTripSession(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 10, 12, 12)
	j := newMemJournal()
	strat := newScript(map[int][]strategies.Signal{
		1: {buy(bars[1].Time, 100, 10)},
		2: {sell(bars[2].Time, 100, 12)},
	})

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)

	res, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Status)
	assert.Equal(t, Completed, ctrl.Status())
	assert.Equal(t, 2, res.Trades)
	assert.Equal(t, 1, res.Wins)
	assert.Equal(t, 0, res.Losses)
	assert.InDelta(t, 200.0, res.RealizedPL, 1e-9)
	assert.InDelta(t, 100200.0, res.FinalEquity, 1e-9)

	sess := j.sessions[res.SessionID]
	assert.Equal(t, journal.StatusCompleted, sess.Status)
	assert.InDelta(t, 100200.0, sess.FinalEquity, 1e-9)

	require.Len(t, j.orders, 2)
	assert.Equal(t, "buy", j.orders[0].Side)
	assert.Equal(t, "sell", j.orders[1].Side)

	// One position snapshot per fill; the last one is flat.
	require.Len(t, j.positions, 2)
	assert.Equal(t, int64(0), j.positions[1].Quantity)
	assert.InDelta(t, 200.0, j.positions[1].RealizedPL, 1e-9)
}

func TestSessionEndFlattensOpenPosition(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 10, 11, 12)
	j := newMemJournal()
	strat := newScript(map[int][]strategies.Signal{
		1: {buy(bars[1].Time, 50, 10)},
	})

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, res.Status)

	require.Len(t, j.orders, 2)
	closing := j.orders[1]
	assert.Equal(t, "sell", closing.Side)
	assert.Equal(t, int64(50), closing.Quantity)
	assert.Equal(t, SessionCloseReason, closing.Reason)
	assert.Equal(t, bars[3].Time, closing.Time)
	assert.Equal(t, 12.0, closing.Price)

	last := j.positions[len(j.positions)-1]
	assert.Equal(t, int64(0), last.Quantity)
	assert.InDelta(t, 100.0, res.RealizedPL, 1e-9)
}

func TestSessionEndFlattensShortPosition(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 10, 9, 8)
	j := newMemJournal()
	strat := newScript(map[int][]strategies.Signal{
		1: {sell(bars[1].Time, 30, 10)},
	})

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, j.orders, 2)
	closing := j.orders[1]
	assert.Equal(t, "buy", closing.Side)
	assert.Equal(t, int64(30), closing.Quantity)
	assert.Equal(t, SessionCloseReason, closing.Reason)

	// Short 30 at 10, bought back at 8.
	assert.InDelta(t, 60.0, res.RealizedPL, 1e-9)
	assert.Equal(t, int64(0), j.positions[len(j.positions)-1].Quantity)
}

func TestFlatSessionEndEmitsNoOrder(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 11, 12)
	j := newMemJournal()

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, newScript(nil), j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Completed, res.Status)
	assert.Empty(t, j.orders)
	assert.Equal(t, 0, res.Trades)
	assert.InDelta(t, 100000.0, res.FinalEquity, 1e-9)
}

func TestCostsFlowThroughFills(t *testing.T) {
	t.Parallel()
	bars := dayBars(100, 100, 100)
	j := newMemJournal()
	strat := newScript(map[int][]strategies.Signal{
		1: {buy(bars[1].Time, 10, 100)},
	})

	cfg := testConfig()
	cfg.Commission = cost.Model{Kind: cost.Fixed, Amount: 5}
	cfg.Slippage = cost.Model{Kind: cost.Percentage, Rate: 0.01}

	ctrl, err := New(cfg, &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	_, err = ctrl.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, j.orders, 2)

	// Buy fills above the signal price, the forced sell fills below the
	// bar close. Fixed commission lands on both trades.
	assert.InDelta(t, 101.0, j.orders[0].Price, 1e-9)
	assert.InDelta(t, 99.0, j.orders[1].Price, 1e-9)

	require.Len(t, j.trades, 2)
	assert.InDelta(t, 5.0, j.trades[0].Commission, 1e-9)
	assert.InDelta(t, 1.0, j.trades[0].Slippage, 1e-9)
	assert.InDelta(t, 5.0, j.trades[1].Commission, 1e-9)
}

func TestEmptyFeedFailsBeforeRunning(t *testing.T) {
	t.Parallel()
	j := newMemJournal()

	ctrl, err := New(testConfig(), &sliceFeed{}, newScript(nil), j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, Failed, res.Status)
	assert.Empty(t, j.orders)
	assert.Equal(t, journal.StatusFailed, j.sessions[res.SessionID].Status)
}

func TestFeedErrorFailsSession(t *testing.T) {
	t.Parallel()
	j := newMemJournal()

	ctrl, err := New(testConfig(), &sliceFeed{err: errors.New("database locked")}, newScript(nil), j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, journal.StatusFailed, j.sessions[res.SessionID].Status)
}

func TestStrategyErrorFailsSession(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 11, 12)
	j := newMemJournal()
	strat := newScript(nil)
	strat.errAt = 1

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, journal.StatusFailed, j.sessions[res.SessionID].Status)
}

func TestJournalWriteErrorFailsSession(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 10, 11)
	j := newMemJournal()
	j.failRecordOrder = true
	strat := newScript(map[int][]strategies.Signal{
		1: {buy(bars[1].Time, 10, 10)},
	})

	ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Equal(t, journal.StatusFailed, j.sessions[res.SessionID].Status)
}

func TestCreateSessionErrorFails(t *testing.T) {
	t.Parallel()
	j := newMemJournal()
	j.failCreateSession = true

	ctrl, err := New(testConfig(), &sliceFeed{bars: dayBars(10)}, newScript(nil), j)
	require.NoError(t, err)
	res, err := ctrl.Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, Failed, res.Status)
	assert.Empty(t, res.SessionID)
}

func TestBadSignalFailsSession(t *testing.T) {
	t.Parallel()

	cases := []strategies.Signal{
		{Direction: strategies.Long, Size: 0, Price: 10},
		{Direction: strategies.Long, Size: -5, Price: 10},
		{Direction: 0, Size: 10, Price: 10},
	}
	for _, bad := range cases {
		bars := dayBars(10, 10, 11)
		j := newMemJournal()
		bad.Time = bars[1].Time
		strat := newScript(map[int][]strategies.Signal{1: {bad}})

		ctrl, err := New(testConfig(), &sliceFeed{bars: bars}, strat, j)
		require.NoError(t, err)
		res, err := ctrl.Run(context.Background())

		require.Error(t, err)
		assert.Equal(t, Failed, res.Status)
		assert.Empty(t, j.orders)
	}
}

func TestCancelledContextFailsSession(t *testing.T) {
	t.Parallel()
	j := newMemJournal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ctrl, err := New(testConfig(), &sliceFeed{bars: dayBars(10, 11)}, newScript(nil), j)
	require.NoError(t, err)
	res, err := ctrl.Run(ctx)

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, Failed, res.Status)
}

func TestControllerIsSingleUse(t *testing.T) {
	t.Parallel()
	j := newMemJournal()

	ctrl, err := New(testConfig(), &sliceFeed{bars: dayBars(10, 11)}, newScript(nil), j)
	require.NoError(t, err)
	_, err = ctrl.Run(context.Background())
	require.NoError(t, err)

	_, err = ctrl.Run(context.Background())
	assert.Error(t, err)
}

func TestIdenticalRunsProduceIdenticalRecords(t *testing.T) {
	t.Parallel()

	runOnce := func() *memJournal {
		bars := dayBars(10, 10, 12, 11, 13)
		j := newMemJournal()
		strat := newScript(map[int][]strategies.Signal{
			1: {buy(bars[1].Time, 100, 10)},
			2: {sell(bars[2].Time, 40, 12)},
			3: {sell(bars[3].Time, 100, 11)},
		})
		cfg := testConfig()
		cfg.Commission = cost.Model{Kind: cost.PerUnit, Amount: 0.01}
		cfg.Slippage = cost.Model{Kind: cost.Fixed, Amount: 0.02}

		ctrl, err := New(cfg, &sliceFeed{bars: bars}, strat, j)
		require.NoError(t, err)
		_, err = ctrl.Run(context.Background())
		require.NoError(t, err)
		return j
	}

	a, b := runOnce(), runOnce()
	assert.Equal(t, a.orders, b.orders)
	assert.Equal(t, a.trades, b.trades)
	assert.Equal(t, a.positions, b.positions)
}

func TestEquityIdentityHoldsAtEveryFill(t *testing.T) {
	t.Parallel()
	bars := dayBars(10, 10, 12, 9, 11)
	j := newMemJournal()
	strat := newScript(map[int][]strategies.Signal{
		1: {buy(bars[1].Time, 100, 10)},
		2: {sell(bars[2].Time, 150, 12)}, // flip to short 50
		3: {buy(bars[3].Time, 20, 9)},
	})

	cfg := testConfig()
	cfg.Commission = cost.Model{Kind: cost.Percentage, Rate: 0.001}
	cfg.Slippage = cost.Model{Kind: cost.Percentage, Rate: 0.0001}

	ctrl, err := New(cfg, &sliceFeed{bars: bars}, strat, j)
	require.NoError(t, err)
	_, err = ctrl.Run(context.Background())
	require.NoError(t, err)

	for _, p := range j.positions {
		assert.InDelta(t, p.Cash+float64(p.Quantity)*p.CurrentPrice, p.Equity, 1e-9,
			"equity identity at %s", p.Time)
	}
	assert.Equal(t, int64(0), j.positions[len(j.positions)-1].Quantity)
}
