package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"sjcharts/internal/cli"
	"sjcharts/internal/config"
	applog "sjcharts/internal/log"
	"sjcharts/internal/source/csvsource"
	"sjcharts/internal/storage"
)

type options struct {
	csv     string
	db      string
	timeout time.Duration
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.Load()
	opts := options{
		csv:     cfg.CSVLocation(),
		db:      cfg.SQLiteDBPath,
		timeout: cfg.DataFetchTimeout,
	}

	cmd := &cobra.Command{
		Use:   "sjcharts-import",
		Short: "Load a CSV snapshot of the economics dataset into SQLite",
		Long: `Fetch the San Jose economics CSV and replace the snapshot stored in the
SQLite database. Start the server with DATA_BACKEND=sqlite to serve it.

Example: sjcharts-import --csv ./data/sj_economics_monthly.csv --db ./data/sjcharts.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.SetupLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
			return run(cmd.Context(), opts, cmd.OutOrStdout(), logger)
		},
	}

	cmd.Flags().StringVar(&opts.csv, "csv", opts.csv, "CSV URL or path (default CSV_URL)")
	cmd.Flags().StringVar(&opts.db, "db", opts.db, "SQLite database path (default SQLITE_DB_PATH)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", opts.timeout, "fetch timeout")
	return cmd
}

func run(ctx context.Context, opts options, w io.Writer, logger *applog.Logger) error {
	logger = logger.WithComponent(applog.ComponentImport)

	reader, err := csvsource.New(csvsource.Config{Location: opts.csv, Timeout: opts.timeout})
	if err != nil {
		return err
	}
	start := time.Now()
	records, err := reader.ReadRecords(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", opts.csv, err)
	}

	repo, err := storage.NewSQLiteRepository(opts.db)
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := repo.WithOrigin(opts.csv).Import(ctx, records)
	if err != nil {
		return fmt.Errorf("import into %s: %w", opts.db, err)
	}

	version, _, err := storage.SchemaVersion(opts.db)
	if err != nil {
		logger.WarnContext(ctx, "Could not read schema version", applog.FieldError, err)
	}
	logger.InfoContext(ctx, "Import finished",
		applog.FieldOperation, applog.OpImport,
		applog.FieldRecords, n,
		applog.FieldDuration, time.Since(start).Milliseconds(),
		"schema_version", version)
	fmt.Fprintf(w, "Imported %s records from %s into %s\n", humanize.Comma(int64(n)), opts.csv, opts.db)
	return nil
}
