package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/barsim/cost"
	"github.com/rustyeddy/barsim/pkg/id"
)

type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) CreateSession(s SessionRecord) (string, error) {
	sid := id.New()

	cm, err := json.Marshal(s.Commission)
	if err != nil {
		return "", fmt.Errorf("marshal commission model: %w", err)
	}
	sm, err := json.Marshal(s.Slippage)
	if err != nil {
		return "", fmt.Errorf("marshal slippage model: %w", err)
	}

	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = j.db.Exec(`
		INSERT INTO backtest_sessions
		(session_id, instrument, strategy, timeframe, start_date, end_date,
		 initial_capital, commission_model, slippage_model, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sid, s.Instrument, s.Strategy, s.Timeframe, s.Start, s.End,
		s.InitialCapital, string(cm), string(sm), StatusRunning, created,
	)
	if err != nil {
		return "", err
	}
	return sid, nil
}

func (j *SQLiteJournal) RecordOrder(o OrderRecord) (string, error) {
	oid := id.New()
	_, err := j.db.Exec(`
		INSERT INTO orders
		(order_id, session_id, timestamp, instrument, side, quantity, price, status, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		oid, o.SessionID, o.Time, o.Instrument, o.Side, o.Quantity,
		o.Price, o.Status, o.Reason,
	)
	if err != nil {
		return "", err
	}
	return oid, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) (string, error) {
	tid := id.New()
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, order_id, session_id, timestamp, price, quantity, commission, slippage)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tid, t.OrderID, t.SessionID, t.Time, t.Price, t.Quantity,
		t.Commission, t.Slippage,
	)
	if err != nil {
		return "", err
	}
	return tid, nil
}

func (j *SQLiteJournal) RecordPosition(p PositionSnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO positions
		(session_id, timestamp, instrument, quantity, average_price,
		 current_price, cash, equity, unrealized_pnl, realized_pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, p.Time, p.Instrument, p.Quantity, p.AveragePrice,
		p.CurrentPrice, p.Cash, p.Equity, p.UnrealizedPL, p.RealizedPL,
	)
	return err
}

func (j *SQLiteJournal) CompleteSession(sid string, finalEquity float64) error {
	return j.finishSession(sid, StatusCompleted, &finalEquity)
}

func (j *SQLiteJournal) FailSession(sid string) error {
	return j.finishSession(sid, StatusFailed, nil)
}

func (j *SQLiteJournal) finishSession(sid, status string, finalEquity *float64) error {
	res, err := j.db.Exec(`
		UPDATE backtest_sessions
		SET status = ?, final_equity = ?, completed_at = ?
		WHERE session_id = ?`,
		status, finalEquity, time.Now().UTC(), sid,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %q not found", sid)
	}
	return nil
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

func unmarshalModel(s sql.NullString) cost.Model {
	var m cost.Model
	if s.Valid {
		_ = json.Unmarshal([]byte(s.String), &m)
	}
	return m
}
