// Package history publishes finalized takeoff rows to ClickHouse so runs
// can be compared across model versions. Publishing is opt-in and a sink
// failure never invalidates an already-written spreadsheet.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bim-takeoff/pkg/platform"
)

// Row is one group summary flattened for the takeoff_runs table.
type Row struct {
	Level    string
	Category string
	Family   string
	Type     string
	Material string
	Quantity int
	Area     decimal.Decimal
	Volume   decimal.Decimal
	Density  decimal.Decimal
	Mass     decimal.Decimal
}

// Sink receives finalized rows for one run.
type Sink interface {
	Publish(ctx context.Context, runID uuid.UUID, model string, rows []Row) error
	Close() error
}

// Config holds ClickHouse connection configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Debug    bool
}

// DefaultConfig returns connection defaults, overridable through the
// CLICKHOUSE_* environment variables.
func DefaultConfig() *Config {
	return &Config{
		Host:     platform.GetEnv("CLICKHOUSE_HOST", "localhost"),
		Port:     platform.GetEnvInt("CLICKHOUSE_PORT", 9000),
		Database: platform.GetEnv("CLICKHOUSE_DATABASE", "takeoff"),
		Username: platform.GetEnv("CLICKHOUSE_USER", "default"),
		Password: platform.GetEnv("CLICKHOUSE_PASSWORD", ""),
		Debug:    platform.GetEnvBool("CLICKHOUSE_DEBUG", false),
	}
}

// ClickHouseSink implements Sink on a native ClickHouse connection.
type ClickHouseSink struct {
	conn clickhouse.Conn
	cfg  *Config
}

// NewClickHouseSink connects to ClickHouse and ensures the runs table exists.
func NewClickHouseSink(ctx context.Context, cfg *Config) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	sink := &ClickHouseSink{conn: conn, cfg: cfg}
	if err := sink.ensureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return sink, nil
}

func (s *ClickHouseSink) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS takeoff_runs (
			run_id        UUID,
			model         String,
			published_at  DateTime,
			level         String,
			category      String,
			family        String,
			type          String,
			material      String,
			quantity      UInt32,
			area_m2       Decimal64(4),
			volume_m3     Decimal64(4),
			density_kgm3  Decimal64(4),
			mass_kg       Decimal64(4)
		) ENGINE = MergeTree()
		ORDER BY (run_id, level, category, material)
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure takeoff_runs table: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *ClickHouseSink) Ping(ctx context.Context) error {
	return s.conn.Ping(ctx)
}

// Publish batch-inserts one row per group summary.
func (s *ClickHouseSink) Publish(ctx context.Context, runID uuid.UUID, model string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO takeoff_runs (
			run_id, model, published_at, level, category, family, type,
			material, quantity, area_m2, volume_m3, density_kgm3, mass_kg
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare history batch: %w", err)
	}

	publishedAt := time.Now().UTC()
	for _, row := range rows {
		if err := batch.Append(
			runID,
			model,
			publishedAt,
			row.Level,
			row.Category,
			row.Family,
			row.Type,
			row.Material,
			uint32(row.Quantity),
			row.Area,
			row.Volume,
			row.Density,
			row.Mass,
		); err != nil {
			return fmt.Errorf("failed to append history row: %w", err)
		}
	}
	return batch.Send()
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
