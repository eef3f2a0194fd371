package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/navbench/history"
)

func newHistoryCmd(stdout io.Writer) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect archived benchmark runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"SQLite history archive written by \"navbench run --history\"")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(&cobra.Command{
		Use:   "runs",
		Short: "List archived runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), dbPath, func(s *history.Store) error {
				return listRuns(cmd.Context(), s, stdout)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "column RUN_ID COLUMN",
		Short: "Dump one result column of a run as CSV",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), dbPath, func(s *history.Store) error {
				return dumpColumn(cmd.Context(), s, args[0], args[1], stdout)
			})
		},
	})

	return cmd
}

// withStore opens an existing archive; it never creates one.
func withStore(ctx context.Context, path string, fn func(*history.Store) error) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open history: %w", err)
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func listRuns(ctx context.Context, s *history.Store, w io.Writer) error {
	runs, err := s.Runs(ctx)
	if err != nil {
		return err
	}

	for _, r := range runs {
		if _, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Cells, r.OutputPath); err != nil {
			return err
		}
	}

	return nil
}

func dumpColumn(ctx context.Context, s *history.Store, runID, column string, w io.Writer) error {
	cells, err := s.Column(ctx, runID, column)
	if err != nil {
		return err
	}

	if len(cells) == 0 {
		return fmt.Errorf("no cells for column %q in run %q", column, runID)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"block", "label", "key", column}); err != nil {
		return err
	}

	for _, c := range cells {
		if err := cw.Write([]string{strconv.Itoa(c.Block), c.Label, c.RowKey, c.Value}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
