package main

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/chime/internal/core"
	"github.com/jmylchreest/chime/internal/model"
	"github.com/jmylchreest/chime/internal/output"
	"github.com/jmylchreest/chime/internal/store"
)

var historyOpts struct {
	limit    int
	since    string
	kind     string
	reason   string
	account  string
	format   string
	template string
	stats    bool
	clear    bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent delivery decisions",
	Long: `Show recent delivery decisions recorded by chimed, newest first.

Examples:
  # The last 20 decisions
  chime history

  # Background suppressions in the last day
  chime history --since 1d --reason in_app_suppressed_due_to_push_active_background

  # Counts per reason for the last week
  chime history --since 1w --stats`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyOpts.limit, "limit", "n", 20, "Maximum decisions to show (0=unlimited)")
	historyCmd.Flags().StringVar(&historyOpts.since, "since", "", "Only decisions newer than this (e.g., 1h, 7d)")
	historyCmd.Flags().StringVar(&historyOpts.kind, "kind", "", "Only this notification kind")
	historyCmd.Flags().StringVar(&historyOpts.reason, "reason", "", "Only this sound reason")
	historyCmd.Flags().StringVar(&historyOpts.account, "account", "", "Only this account")
	historyCmd.Flags().StringVarP(&historyOpts.format, "format", "f", string(output.FormatTable),
		"Output format (table, json, plain, ids)")
	historyCmd.Flags().StringVar(&historyOpts.template, "template", "",
		"Go template for plain format (e.g., '{{.EventID}} {{.Reason}}')")
	historyCmd.Flags().BoolVar(&historyOpts.stats, "stats", false, "Print counts per reason instead of decisions")
	historyCmd.Flags().BoolVar(&historyOpts.clear, "clear", false, "Delete all recorded decisions")
}

func runHistory(cmd *cobra.Command, args []string) error {
	journal, err := store.OpenJournal(cfg.JournalPath())
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer journal.Close()

	if historyOpts.clear {
		if err := journal.Clear(); err != nil {
			return fmt.Errorf("failed to clear journal: %w", err)
		}
		fmt.Println("Decision history cleared")
		return nil
	}

	opts, err := historyFilter()
	if err != nil {
		return err
	}

	// Newest first
	decisions, err := journal.Tail(0)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}

	if historyOpts.stats {
		opts.Limit = 0
		printStats(core.Filter(decisions, opts, time.Now()))
		return nil
	}

	decisions = core.Filter(decisions, opts, time.Now())
	if len(decisions) == 0 {
		fmt.Println("No decisions recorded")
		return nil
	}

	formatter, err := output.NewFormatter(output.FormatType(historyOpts.format), output.FormatterOptions{
		Template: historyOpts.template,
		ShowTime: true,
	})
	if err != nil {
		return err
	}
	return formatter.Format(os.Stdout, decisions)
}

func historyFilter() (core.FilterOptions, error) {
	opts := core.FilterOptions{
		Account: historyOpts.account,
		Limit:   historyOpts.limit,
	}

	since, err := core.ParseDuration(historyOpts.since)
	if err != nil {
		return opts, err
	}
	opts.Since = since

	if historyOpts.kind != "" {
		kind, err := model.ParseKind(historyOpts.kind)
		if err != nil {
			return opts, err
		}
		opts.Kind = kind
	}

	if historyOpts.reason != "" {
		reason, err := model.ParseReason(historyOpts.reason)
		if err != nil {
			return opts, err
		}
		opts.Reason = reason
	}

	return opts, nil
}

func printStats(decisions []model.Decision) {
	counts := core.CountByReason(decisions)
	fmt.Printf("%s decisions\n", humanize.Comma(int64(len(decisions))))
	for _, r := range slices.Sorted(maps.Keys(counts)) {
		fmt.Printf("  %-50s %s\n", r, humanize.Comma(int64(counts[r])))
	}
}
