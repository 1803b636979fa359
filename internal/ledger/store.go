package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"go.uber.org/zap"
)

// ResultStore persists run artifacts (orders, fills, trades and the
// equity curve) in an in-memory DuckDB database so stats can be computed
// with SQL and exported to parquet.
type ResultStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewResultStore opens an in-memory store.
func NewResultStore(log *logger.Logger) (*ResultStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to open result store", err)
	}

	return &ResultStore{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Initialize creates the result tables.
func (s *ResultStore) Initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			order_id TEXT PRIMARY KEY,
			symbol TEXT,
			side TEXT,
			order_type TEXT,
			quantity DOUBLE,
			filled_quantity DOUBLE,
			avg_fill_price DOUBLE,
			status TEXT,
			reject_reason TEXT,
			created_at TIMESTAMP,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS fills (
			order_id TEXT,
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			price DOUBLE,
			slippage DOUBLE,
			executed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			symbol TEXT,
			side TEXT,
			quantity DOUBLE,
			entry_price DOUBLE,
			exit_price DOUBLE,
			entry_time TIMESTAMP,
			exit_time TIMESTAMP,
			pnl DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS equity (
			time TIMESTAMP,
			equity DOUBLE
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to create result tables", err)
		}
	}

	return nil
}

// SaveOrder upserts an order snapshot.
func (s *ResultStore) SaveOrder(order types.Order) error {
	if _, err := s.db.Exec(`DELETE FROM orders WHERE order_id = ?`, order.ID); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to replace order", err)
	}

	_, err := s.sq.
		Insert("orders").
		Columns("order_id", "symbol", "side", "order_type", "quantity", "filled_quantity",
			"avg_fill_price", "status", "reject_reason", "created_at", "updated_at").
		Values(order.ID, order.Symbol, string(order.Side), string(order.Type), order.Quantity,
			order.FilledQuantity, order.AvgFillPrice, string(order.Status), order.RejectReason,
			order.CreatedAt, order.UpdatedAt).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to save order", err)
	}

	return nil
}

// SaveFill appends one execution.
func (s *ResultStore) SaveFill(fill types.Fill) error {
	_, err := s.sq.
		Insert("fills").
		Columns("order_id", "symbol", "side", "quantity", "price", "slippage", "executed_at").
		Values(fill.OrderID, fill.Symbol, string(fill.Side), fill.Quantity, fill.Price, fill.Slippage, fill.Timestamp).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to save fill", err)
	}

	return nil
}

// SaveTrade appends one closed trade.
func (s *ResultStore) SaveTrade(trade types.TradeRecord) error {
	_, err := s.sq.
		Insert("trades").
		Columns("symbol", "side", "quantity", "entry_price", "exit_price", "entry_time", "exit_time", "pnl").
		Values(trade.Symbol, string(trade.Side), trade.Quantity, trade.EntryPrice, trade.ExitPrice,
			trade.EntryTime, trade.ExitTime, trade.PnL).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to save trade", err)
	}

	return nil
}

// SaveEquityPoint upserts one equity curve sample keyed by time.
func (s *ResultStore) SaveEquityPoint(point types.EquityPoint) error {
	if _, err := s.db.Exec(`DELETE FROM equity WHERE time = ?`, point.Time); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to replace equity point", err)
	}

	_, err := s.sq.
		Insert("equity").
		Columns("time", "equity").
		Values(point.Time, point.Equity).
		RunWith(s.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to save equity point", err)
	}

	return nil
}

// TradeStats aggregates the closed trades with SQL.
type TradeStats struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	GrossProfit   float64
	GrossLoss     float64
}

// QueryTradeStats computes win/loss counts and gross profit figures.
func (s *ResultStore) QueryTradeStats() (TradeStats, error) {
	var stats TradeStats

	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE pnl > 0),
			COUNT(*) FILTER (WHERE pnl < 0),
			COALESCE(SUM(pnl) FILTER (WHERE pnl > 0), 0),
			COALESCE(ABS(SUM(pnl) FILTER (WHERE pnl < 0)), 0)
		FROM trades
	`)

	if err := row.Scan(&stats.TotalTrades, &stats.WinningTrades, &stats.LosingTrades,
		&stats.GrossProfit, &stats.GrossLoss); err != nil {
		return TradeStats{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trade stats", err)
	}

	return stats, nil
}

// EquityCurve reads back the recorded curve in time order.
func (s *ResultStore) EquityCurve() ([]types.EquityPoint, error) {
	rows, err := s.db.Query(`SELECT time, equity FROM equity ORDER BY time`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity curve", err)
	}
	defer rows.Close()

	var curve []types.EquityPoint

	for rows.Next() {
		var point types.EquityPoint
		if err := rows.Scan(&point.Time, &point.Equity); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		curve = append(curve, point)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to read equity curve", err)
	}

	return curve, nil
}

// ExportParquet writes one table to a parquet file.
func (s *ResultStore) ExportParquet(table, path string) error {
	switch table {
	case "orders", "fills", "trades", "equity":
	default:
		return errors.Newf(errors.ErrCodeBacktestStoreError, "unknown table %q", table)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestStoreError, "failed to create export directory", err)
	}

	query := fmt.Sprintf(`COPY (SELECT * FROM %s) TO '%s' (FORMAT PARQUET)`, table, path)
	if _, err := s.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeBacktestStoreError, err, "failed to export %s to parquet", table)
	}

	s.logger.Debug("table exported", zap.String("table", table), zap.String("path", path))

	return nil
}

// Close releases the database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}
