// takeoff - material quantity extraction for BIM model exports
//
// Usage:
//
//	takeoff extract --model model.json --out takeoff.xlsx
//	takeoff extract --model model.json --categories "Walls,Floors" --format csv --out takeoff.csv
//	takeoff catalog show
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"bim-takeoff/internal/catalog"
	"bim-takeoff/internal/history"
	"bim-takeoff/internal/source"
	"bim-takeoff/internal/takeoff"
	takeofferrors "bim-takeoff/pkg/errors"
	"bim-takeoff/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	app := &cli.App{
		Name:    "takeoff",
		Usage:   "Material quantity takeoff for BIM model exports",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"TAKEOFF_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to a JSON material density catalog",
				EnvVars: []string{"TAKEOFF_CATALOG"},
			},
			&cli.StringFlag{
				Name:    "catalog-dsn",
				Usage:   "Postgres DSN for a shared density catalog",
				EnvVars: []string{"TAKEOFF_CATALOG_DSN"},
			},
		},

		Commands: []*cli.Command{
			extractCommand(),
			catalogCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func extractCommand() *cli.Command {
	// Connection defaults fall back through the CLICKHOUSE_* environment.
	chDefaults := history.DefaultConfig()

	return &cli.Command{
		Name:  "extract",
		Usage: "Extract grouped material quantities from a model export",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "model",
				Aliases:  []string{"m"},
				Usage:    "Path to the model export JSON",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Value:   "takeoff.xlsx",
				Usage:   "Output file path",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "xlsx",
				Usage:   "Output format (xlsx, csv, json, table)",
			},
			&cli.StringFlag{
				Name:  "categories",
				Usage: "Comma-separated category names to include (empty = all)",
			},
			&cli.StringFlag{
				Name:  "parameters",
				Usage: "Comma-separated extra parameters, dot-path for nesting (e.g. properties.elementId)",
			},
			&cli.StringFlag{
				Name:  "group-by",
				Usage: "Comma-separated grouping fields (level, category, type, material), or 'none'",
			},
			&cli.BoolFlag{
				Name:  "structural",
				Usage: "Extract structural layer type parameters",
			},
			&cli.BoolFlag{
				Name:  "timestamp",
				Usage: "Append a timestamp to the output file name",
			},
			&cli.BoolFlag{
				Name:  "publish",
				Usage: "Publish finalized rows to the ClickHouse run history",
			},
			&cli.StringFlag{
				Name:  "clickhouse-host",
				Value: chDefaults.Host,
				Usage: "ClickHouse host",
			},
			&cli.IntFlag{
				Name:  "clickhouse-port",
				Value: chDefaults.Port,
				Usage: "ClickHouse native port",
			},
			&cli.StringFlag{
				Name:  "clickhouse-database",
				Value: chDefaults.Database,
				Usage: "ClickHouse database",
			},
			&cli.StringFlag{
				Name:  "clickhouse-user",
				Value: chDefaults.Username,
				Usage: "ClickHouse user",
			},
			&cli.StringFlag{
				Name:  "clickhouse-password",
				Value: chDefaults.Password,
				Usage: "ClickHouse password",
			},
			&cli.BoolFlag{
				Name:  "clickhouse-debug",
				Value: chDefaults.Debug,
				Usage: "Log the ClickHouse protocol exchange",
			},
		},
		Action: runExtract,
	}
}

func runExtract(c *cli.Context) error {
	ctx := context.Background()
	logger := platform.InitLogger(c.String("log-level"))

	groupBy, err := takeoff.ParseGroupBy(c.String("group-by"))
	if err != nil {
		return err
	}
	params, err := takeoff.ParseParameters(c.String("parameters"))
	if err != nil {
		return err
	}

	cfg := takeoff.Config{
		Categories:        takeoff.SplitList(c.String("categories")),
		ExtraParams:       params,
		GroupBy:           groupBy,
		IncludeStructural: c.Bool("structural"),
		OutputPath:        c.String("out"),
		Format:            takeoff.Format(strings.ToLower(c.String("format"))),
		Timestamp:         c.Bool("timestamp"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openCatalog(ctx, c)
	if err != nil {
		return err
	}
	defer store.Close()

	parser := source.NewParser()
	parser.IncludeStructural = cfg.IncludeStructural

	model, err := parser.ParseFile(c.String("model"))
	if err != nil {
		return takeofferrors.NewSourceError(err.Error())
	}

	engine := takeoff.NewEngine(store).WithLogger(logger)
	result, err := engine.Run(ctx, parser.Elements(model), cfg)
	if err != nil {
		return fmt.Errorf("takeoff run failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "📊 Processed %d elements (%d matched, %d material associations, %d groups)\n",
		result.Report.ElementsSeen,
		result.Report.ElementsMatched,
		result.Report.Associations,
		len(result.Summaries),
	)
	for _, w := range result.Report.Warnings {
		fmt.Fprintf(os.Stderr, "⚠️  %s\n", w.Error())
	}

	path, err := engine.Export(result)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(os.Stderr, "💾 Wrote %s\n", path)
	}

	if c.Bool("publish") {
		if err := publish(ctx, c, model, result); err != nil {
			// The spreadsheet already exists; history is best effort.
			logger.Warn("failed to publish run history", "error", err)
		}
	}
	return nil
}

func publish(ctx context.Context, c *cli.Context, model *source.Model, result *takeoff.Result) error {
	sink, err := history.NewClickHouseSink(ctx, &history.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
		Debug:    c.Bool("clickhouse-debug"),
	})
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse unreachable: %w", err)
	}

	rows := make([]history.Row, 0, len(result.Summaries))
	for _, r := range result.FlatRows() {
		rows = append(rows, history.Row{
			Level:    r.Level,
			Category: r.Category,
			Family:   r.Family,
			Type:     r.Type,
			Material: r.Material,
			Quantity: r.Quantity,
			Area:     r.Area,
			Volume:   r.Volume,
			Density:  r.Density,
			Mass:     r.Mass,
		})
	}

	runID := uuid.New()
	if err := sink.Publish(ctx, runID, model.Name, rows); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "📤 Published %d rows (run %s)\n", len(rows), runID)
	return nil
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect the material density catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "List catalog entries",
				Action: func(c *cli.Context) error {
					ctx := context.Background()
					store, err := openCatalog(ctx, c)
					if err != nil {
						return err
					}
					defer store.Close()

					entries := catalog.Entries(store)
					if entries == nil {
						return fmt.Errorf("catalog backend does not support listing")
					}
					for _, e := range entries {
						fmt.Printf("%-30s %10.1f kg/m³\n", e.Name, e.DensityKgM3)
					}
					return nil
				},
			},
		},
	}
}

func openCatalog(ctx context.Context, c *cli.Context) (catalog.Store, error) {
	if dsn := c.String("catalog-dsn"); dsn != "" {
		return catalog.NewPostgresStore(ctx, dsn)
	}
	if path := c.String("catalog"); path != "" {
		return catalog.NewFileStore(path)
	}
	return catalog.NewBuiltinStore(), nil
}
