package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/fridge-monitor/internal/clock"
	"github.com/sweeney/fridge-monitor/internal/export"
	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/store"
)

var (
	exportFrom string
	exportTo   string
	exportOut  string
)

var errStoreDisabled = errors.New("database_dsn is not configured")

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored records to an xlsx workbook.",
	Long: `Reads the aggregation records whose start lies in [from, to) from the
configured PostgreSQL store and writes them, with a summary sheet, to an
xlsx workbook. from and to are RFC3339 times; to defaults to now and from
to 7 days before to.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.DatabaseDSN == "" {
			return errStoreDisabled
		}

		ctx := cmd.Context()
		db, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "-" {
			f, err := os.Create(filepath.Clean(exportOut))
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			out = f
		}

		n, err := exportRecords(ctx, store.NewPostgres(db, cfg.DeviceID), out, cfg.DeviceID, exportFrom, exportTo, time.Now())
		if err != nil {
			return err
		}
		logger.InfoKV(ctx, "export written", "records", n, "out", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFrom, "from", "", "first record start, RFC3339 (default 7 days before --to)")
	exportCmd.Flags().StringVar(&exportTo, "to", "", "end of range, RFC3339 (default now)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "records.xlsx", "output file, - for stdout")
}

const defaultExportRange = 7 * 24 * time.Hour

// exportRecords lists records in the requested range and writes the workbook.
func exportRecords(ctx context.Context, repo store.Repository, w io.Writer, deviceID, from, to string, now time.Time) (int, error) {
	end := now
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return 0, fmt.Errorf("--to: %w", err)
		}
		end = t
	}
	begin := end.Add(-defaultExportRange)
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return 0, fmt.Errorf("--from: %w", err)
		}
		begin = t
	}
	if begin.After(end) {
		return 0, errors.New("--from is after --to")
	}

	fromTS, _ := clock.ToTimestamp(begin)
	toTS, _ := clock.ToTimestamp(end)
	recs, err := repo.List(ctx, fromTS, toTS)
	if err != nil {
		return 0, err
	}
	if err := export.WriteXLSX(w, deviceID, recs); err != nil {
		return 0, err
	}
	return len(recs), nil
}
