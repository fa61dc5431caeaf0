package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/barsim/cost"
)

func openTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func testSession() SessionRecord {
	return SessionRecord{
		Instrument:     "SPY",
		Strategy:       "ma-cross",
		Timeframe:      "M5",
		Start:          time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		InitialCapital: 100000,
		Commission:     cost.Model{Kind: cost.Percentage, Rate: 0.001},
		Slippage:       cost.Model{Kind: cost.Percentage, Rate: 0.0001},
	}
}

func TestSessionLifecycle(t *testing.T) {
	j := openTestJournal(t)

	sid, err := j.CreateSession(testSession())
	require.NoError(t, err)
	require.NotEmpty(t, sid)

	rec, err := j.GetSession(sid)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, rec.Status)
	assert.Equal(t, "SPY", rec.Instrument)
	assert.Equal(t, cost.Percentage, rec.Commission.Kind)
	assert.Equal(t, 0.001, rec.Commission.Rate)
	assert.Zero(t, rec.FinalEquity)

	require.NoError(t, j.CompleteSession(sid, 101234.56))

	rec, err = j.GetSession(sid)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.InDelta(t, 101234.56, rec.FinalEquity, 1e-9)
	assert.False(t, rec.CompletedAt.IsZero())
}

func TestFailSession(t *testing.T) {
	j := openTestJournal(t)

	sid, err := j.CreateSession(testSession())
	require.NoError(t, err)
	require.NoError(t, j.FailSession(sid))

	rec, err := j.GetSession(sid)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, rec.Status)
}

func TestFinishUnknownSession(t *testing.T) {
	j := openTestJournal(t)

	assert.Error(t, j.CompleteSession("no-such-session", 0))
	assert.Error(t, j.FailSession("no-such-session"))
	_, err := j.GetSession("no-such-session")
	assert.Error(t, err)
}

func TestOrderTradePositionRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	sid, err := j.CreateSession(testSession())
	require.NoError(t, err)

	at := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

	oid, err := j.RecordOrder(OrderRecord{
		SessionID:  sid,
		Time:       at,
		Instrument: "SPY",
		Side:       "buy",
		Quantity:   100,
		Price:      500.05,
		Status:     "filled",
		Reason:     "ma_cross_up",
	})
	require.NoError(t, err)
	require.NotEmpty(t, oid)

	tid, err := j.RecordTrade(TradeRecord{
		OrderID:    oid,
		SessionID:  sid,
		Time:       at,
		Price:      500.05,
		Quantity:   100,
		Commission: 50.005,
		Slippage:   0.05,
	})
	require.NoError(t, err)
	require.NotEmpty(t, tid)

	require.NoError(t, j.RecordPosition(PositionSnapshot{
		SessionID:    sid,
		Time:         at,
		Instrument:   "SPY",
		Quantity:     100,
		AveragePrice: 500.05,
		CurrentPrice: 500.05,
		Cash:         49944.995,
		Equity:       99949.995,
		UnrealizedPL: 0,
		RealizedPL:   0,
	}))

	orders, err := j.ListOrdersBySession(sid)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, oid, orders[0].ID)
	assert.Equal(t, "buy", orders[0].Side)
	assert.Equal(t, int64(100), orders[0].Quantity)
	assert.Equal(t, "ma_cross_up", orders[0].Reason)

	trades, err := j.ListTradesBySession(sid)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, tid, trades[0].ID)
	assert.Equal(t, oid, trades[0].OrderID)
	assert.InDelta(t, 50.005, trades[0].Commission, 1e-9)

	positions, err := j.ListPositionsBySession(sid)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, int64(100), positions[0].Quantity)
	assert.InDelta(t, 99949.995, positions[0].Equity, 1e-6)
}

func TestListIsScopedToSession(t *testing.T) {
	j := openTestJournal(t)

	a, err := j.CreateSession(testSession())
	require.NoError(t, err)
	b, err := j.CreateSession(testSession())
	require.NoError(t, err)

	at := time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)
	_, err = j.RecordOrder(OrderRecord{SessionID: a, Time: at, Instrument: "SPY", Side: "buy", Quantity: 1, Price: 1, Status: "filled"})
	require.NoError(t, err)

	orders, err := j.ListOrdersBySession(b)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
