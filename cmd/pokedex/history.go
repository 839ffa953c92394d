package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/history"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches",
	Long:  `history prints the most recent searches recorded in Redis (requires redis.enabled).`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", defaultHistoryLimit, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all recorded searches")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if recorder == nil {
		return errors.New("search history is disabled (set redis.enabled and make sure Redis is reachable)")
	}

	ctx := commandContext(cmd)
	if historyClear {
		if err := recorder.Clear(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Search history cleared.")
		return nil
	}

	entries, err := recorder.Recent(ctx, historyLimit)
	if err != nil {
		return err
	}
	return writeHistory(cmd.OutOrStdout(), entries)
}

func writeHistory(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No searches recorded.")
		return err
	}

	for _, e := range entries {
		status := fmt.Sprintf("%d results, %d pages", e.Results, e.Pages)
		if e.Failed() {
			status = "failed: " + e.Error
		}
		chaos := ""
		if e.Chaos {
			chaos = " [chaos]"
		}
		if _, err := fmt.Fprintf(w, "%s  %-20q %s (%s)%s\n",
			e.At.Local().Format(time.DateTime), e.Query, status, e.Duration.Round(time.Millisecond), chaos); err != nil {
			return err
		}
	}
	return nil
}
