package journal

import (
	"database/sql"
	"fmt"
)

// GetSession returns a single session row by ID.
func (j *SQLiteJournal) GetSession(sid string) (SessionRecord, error) {
	row := j.db.QueryRow(`
		SELECT session_id, instrument, strategy, timeframe, start_date, end_date,
		       initial_capital, commission_model, slippage_model, status,
		       final_equity, created_at, completed_at
		FROM backtest_sessions
		WHERE session_id = ?`, sid)

	var rec SessionRecord
	var cm, sm sql.NullString
	var finalEquity sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.Instrument, &rec.Strategy, &rec.Timeframe,
		&rec.Start, &rec.End, &rec.InitialCapital, &cm, &sm,
		&rec.Status, &finalEquity, &rec.CreatedAt, &completedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return SessionRecord{}, fmt.Errorf("session %q not found", sid)
		}
		return SessionRecord{}, err
	}

	rec.Commission = unmarshalModel(cm)
	rec.Slippage = unmarshalModel(sm)
	if finalEquity.Valid {
		rec.FinalEquity = finalEquity.Float64
	}
	if completedAt.Valid {
		rec.CompletedAt = completedAt.Time
	}
	return rec, nil
}

// ListOrdersBySession returns a session's orders in timestamp order.
func (j *SQLiteJournal) ListOrdersBySession(sid string) ([]OrderRecord, error) {
	rows, err := j.db.Query(`
		SELECT order_id, session_id, timestamp, instrument, side, quantity, price, status, reason
		FROM orders
		WHERE session_id = ?
		ORDER BY timestamp ASC, order_id ASC`, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(
			&rec.ID, &rec.SessionID, &rec.Time, &rec.Instrument,
			&rec.Side, &rec.Quantity, &rec.Price, &rec.Status, &rec.Reason,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListTradesBySession returns a session's trades in timestamp order.
func (j *SQLiteJournal) ListTradesBySession(sid string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, order_id, session_id, timestamp, price, quantity, commission, slippage
		FROM trades
		WHERE session_id = ?
		ORDER BY timestamp ASC, trade_id ASC`, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.ID, &rec.OrderID, &rec.SessionID, &rec.Time,
			&rec.Price, &rec.Quantity, &rec.Commission, &rec.Slippage,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListPositionsBySession returns a session's position snapshots in
// timestamp order.
func (j *SQLiteJournal) ListPositionsBySession(sid string) ([]PositionSnapshot, error) {
	rows, err := j.db.Query(`
		SELECT session_id, timestamp, instrument, quantity, average_price,
		       current_price, cash, equity, unrealized_pnl, realized_pnl
		FROM positions
		WHERE session_id = ?
		ORDER BY timestamp ASC, rowid ASC`, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PositionSnapshot
	for rows.Next() {
		var rec PositionSnapshot
		if err := rows.Scan(
			&rec.SessionID, &rec.Time, &rec.Instrument, &rec.Quantity,
			&rec.AveragePrice, &rec.CurrentPrice, &rec.Cash, &rec.Equity,
			&rec.UnrealizedPL, &rec.RealizedPL,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
