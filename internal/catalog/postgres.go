package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// postgresStore reads densities from a shared material_density table.
// Useful when several takeoff runs share one office-wide catalog.
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to a Postgres-backed density catalog.
// Expected schema:
//
//	CREATE TABLE material_density (
//	    name          TEXT PRIMARY KEY,
//	    density_kg_m3 NUMERIC NOT NULL
//	);
func NewPostgresStore(ctx context.Context, dsn string) (Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach catalog database: %w", err)
	}
	return &postgresStore{db: db}, nil
}

func (s *postgresStore) Density(ctx context.Context, material string) (decimal.Decimal, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT density_kg_m3::text FROM material_density WHERE lower(name) = $1`,
		normalizeName(material),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("catalog lookup failed for %q: %w", material, err)
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("catalog holds invalid density for %q: %w", material, err)
	}
	return d, true, nil
}

func (s *postgresStore) Close() error {
	return s.db.Close()
}
