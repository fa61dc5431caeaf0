package journal

const Schema = `
CREATE TABLE IF NOT EXISTS backtest_sessions (
	session_id TEXT PRIMARY KEY,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	start_date DATETIME NOT NULL,
	end_date DATETIME NOT NULL,
	initial_capital REAL NOT NULL,
	commission_model TEXT,
	slippage_model TEXT,
	status TEXT NOT NULL,
	final_equity REAL,
	created_at DATETIME NOT NULL,
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS orders (
	order_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	price REAL NOT NULL,
	status TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	order_id TEXT NOT NULL,
	session_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	price REAL NOT NULL,
	quantity INTEGER NOT NULL,
	commission REAL NOT NULL,
	slippage REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS positions (
	session_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	instrument TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	average_price REAL NOT NULL,
	current_price REAL NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	unrealized_pnl REAL NOT NULL,
	realized_pnl REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_session ON orders(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_positions_session ON positions(session_id, timestamp);
`
