package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/barsim/pkg/id"
)

// CSVJournal writes append-only CSV files, one per record kind. Session
// lifecycle transitions land in the sessions file as events, since CSV
// rows cannot be updated in place.
type CSVJournal struct {
	sessions  *csv.Writer
	orders    *csv.Writer
	trades    *csv.Writer
	positions *csv.Writer
	files     []*os.File
}

func NewCSV(sessionsPath, ordersPath, tradesPath, positionsPath string) (*CSVJournal, error) {
	j := &CSVJournal{}

	open := func(path string, header []string) (*csv.Writer, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		j.files = append(j.files, f)
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return nil, err
		}
		w.Flush()
		return w, w.Error()
	}

	var err error
	if j.sessions, err = open(sessionsPath, []string{"session_id", "event", "time", "instrument", "strategy", "timeframe", "initial_capital", "final_equity"}); err != nil {
		return nil, err
	}
	if j.orders, err = open(ordersPath, []string{"order_id", "session_id", "time", "instrument", "side", "quantity", "price", "status", "reason"}); err != nil {
		return nil, err
	}
	if j.trades, err = open(tradesPath, []string{"trade_id", "order_id", "session_id", "time", "price", "quantity", "commission", "slippage"}); err != nil {
		return nil, err
	}
	if j.positions, err = open(positionsPath, []string{"session_id", "time", "instrument", "quantity", "average_price", "current_price", "cash", "equity", "unrealized_pnl", "realized_pnl"}); err != nil {
		return nil, err
	}

	return j, nil
}

func (j *CSVJournal) CreateSession(s SessionRecord) (string, error) {
	sid := id.New()
	err := j.write(j.sessions, []string{
		sid, "created", time.Now().UTC().Format(time.RFC3339),
		s.Instrument, s.Strategy, s.Timeframe, f(s.InitialCapital), "",
	})
	return sid, err
}

func (j *CSVJournal) RecordOrder(o OrderRecord) (string, error) {
	oid := id.New()
	err := j.write(j.orders, []string{
		oid, o.SessionID, o.Time.Format(time.RFC3339),
		o.Instrument, o.Side, i(o.Quantity), f(o.Price), o.Status, o.Reason,
	})
	return oid, err
}

func (j *CSVJournal) RecordTrade(t TradeRecord) (string, error) {
	tid := id.New()
	err := j.write(j.trades, []string{
		tid, t.OrderID, t.SessionID, t.Time.Format(time.RFC3339),
		f(t.Price), i(t.Quantity), f(t.Commission), f(t.Slippage),
	})
	return tid, err
}

func (j *CSVJournal) RecordPosition(p PositionSnapshot) error {
	return j.write(j.positions, []string{
		p.SessionID, p.Time.Format(time.RFC3339), p.Instrument,
		i(p.Quantity), f(p.AveragePrice), f(p.CurrentPrice),
		f(p.Cash), f(p.Equity), f(p.UnrealizedPL), f(p.RealizedPL),
	})
}

func (j *CSVJournal) CompleteSession(sid string, finalEquity float64) error {
	return j.write(j.sessions, []string{
		sid, StatusCompleted, time.Now().UTC().Format(time.RFC3339),
		"", "", "", "", f(finalEquity),
	})
}

func (j *CSVJournal) FailSession(sid string) error {
	return j.write(j.sessions, []string{
		sid, StatusFailed, time.Now().UTC().Format(time.RFC3339),
		"", "", "", "", "",
	})
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) Close() error {
	for _, w := range []*csv.Writer{j.sessions, j.orders, j.trades, j.positions} {
		if w == nil {
			continue
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}
	}
	for _, file := range j.files {
		if err := file.Close(); err != nil {
			return fmt.Errorf("close %s: %w", file.Name(), err)
		}
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func i(x int64) string {
	return strconv.FormatInt(x, 10)
}
