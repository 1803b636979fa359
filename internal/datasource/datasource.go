// Package datasource loads bar data from CSV or parquet files through
// DuckDB, so both formats share one query path.
package datasource

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-script/internal/logger"
	"github.com/rxtech-lab/argo-script/internal/types"
	"github.com/rxtech-lab/argo-script/pkg/errors"
	"go.uber.org/zap"
)

// DataSource reads market data files. Close it when done.
type DataSource struct {
	db     *sql.DB
	logger *logger.Logger
}

// New opens an in-memory DuckDB session used purely for file reads.
func New(log *logger.Logger) (*DataSource, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open data source", err)
	}

	return &DataSource{db: db, logger: log}, nil
}

// LoadBars reads every bar from a CSV or parquet file in time order.
// The file must carry time, open, high, low, close and volume columns.
func (d *DataSource) LoadBars(path, symbol string) ([]types.Bar, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataNotFound, err, "data file %q not found", path)
	}

	reader, err := readerFor(path)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT time, open, high, low, close, volume
		FROM %s
		ORDER BY time
	`, reader)

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %q", path)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		bar := types.Bar{Symbol: symbol}
		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %q", path)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeInsufficientData, "no bars in %q", path)
	}

	d.logger.Debug("bars loaded", zap.String("path", path), zap.Int("count", len(bars)))

	return bars, nil
}

func readerFor(path string) (string, error) {
	escaped := strings.ReplaceAll(path, "'", "''")

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return fmt.Sprintf("read_csv_auto('%s')", escaped), nil
	case ".parquet":
		return fmt.Sprintf("read_parquet('%s')", escaped), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidDataPath, "unsupported data format %q, want .csv or .parquet", filepath.Ext(path))
	}
}

// Close releases the session.
func (d *DataSource) Close() error {
	return d.db.Close()
}
