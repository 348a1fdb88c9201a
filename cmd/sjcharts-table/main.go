package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sjcharts/internal/aggregate"
	"sjcharts/internal/backend"
	"sjcharts/internal/cli"
	"sjcharts/internal/config"
	applog "sjcharts/internal/log"
	"sjcharts/internal/report"
	"sjcharts/internal/services"
	"sjcharts/internal/source"
)

type options struct {
	table   string
	format  string
	rows    int
	columns string
	csv     string
}

func main() {
	cli.LoadEnvFile()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "sjcharts-table",
		Short: "Print a yearly summary table of the San Jose economics dataset",
		Long: `Print one of the dashboard summary tables.

The data source is configured like the server (DATA_BACKEND, CSV_URL, ...).

Example: sjcharts-table --table unemployment --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if opts.csv != "" {
				cfg.DataBackend = string(backend.CSVBackend)
				cfg.CSVURL = opts.csv
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("rows") {
				opts.rows = cfg.TableMaxRows
			}
			logger := cli.SetupLoggerTo(cmd.ErrOrStderr(), firstNonEmpty(os.Getenv("LOG_LEVEL"), "warn"))

			bcfg, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(cmd.Context(), bcfg)
			if err != nil {
				return err
			}
			if result.Cleanup != nil {
				defer result.Cleanup()
			}
			return run(cmd.Context(), result.Backend, opts, cmd.OutOrStdout(), logger)
		},
	}

	var keys []string
	for _, spec := range services.DefaultTables() {
		keys = append(keys, spec.Key)
	}
	cmd.Flags().StringVar(&opts.table, "table", "jobs", "table to print ("+strings.Join(keys, ", ")+")")
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format (text, json)")
	cmd.Flags().IntVar(&opts.rows, "rows", 10, "maximum rows to print, -1 for all (default TABLE_MAX_ROWS)")
	cmd.Flags().StringVar(&opts.columns, "columns", "", "glob restricting the printed columns, e.g. '*Services*'")
	cmd.Flags().StringVar(&opts.csv, "csv", "", "read this CSV URL or path instead of the configured backend")
	return cmd
}

func run(ctx context.Context, reader source.RecordReader, opts options, w io.Writer, logger *applog.Logger) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	dashboard := services.NewDashboardService(reader, services.Options{Logger: logger})
	t, err := dashboard.Table(ctx, opts.table)
	if err != nil {
		return err
	}
	if opts.columns != "" {
		t = aggregate.ProjectColumns(t, opts.columns)
	}
	return report.Write(w, format, opts.table, t.Head(opts.rows))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
