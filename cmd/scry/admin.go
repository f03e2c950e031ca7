package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/phrazzld/scry-local/internal/domain"
)

// sampleCards seed an empty store.
var sampleCards = []domain.Card{
	{Prompt: "What is to the left of right?", Response: "Left"},
	{Prompt: "What is to the right of left?", Response: "Right"},
}

var errAlreadyInitialized = errors.New("card store already holds data")

func newInitCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Seed a card store that holds no cards with two sample cards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			set, tag, err := a.store.Load(ctx)
			if err != nil {
				return err
			}
			if set.Len() > 0 {
				return fmt.Errorf("%w at %s", errAlreadyInitialized, a.store.Location())
			}

			if _, err := a.store.Save(ctx, domain.NewCardSet(sampleCards...), tag); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "initialized %s with %d sample cards\n", a.store.Location(), len(sampleCards))
			return nil
		},
	}
}

func newTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag",
		Short: "Print the integrity tag of the stored card set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tag, err := a.store.CurrentTag(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, tag)
			return nil
		},
	}
}

func newResetCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard whatever the card store holds and start empty",
		Long: `Reset overwrites the card store with an empty card set without checking
what it holds. It is the way out when the store is corrupt. Export first if
anything in it is worth keeping.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			tag, err := a.store.Reset(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "reset %s (tag %s)\n", a.store.Location(), tag.Short())
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm that the stored cards may be discarded")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		reverse bool
		rows    int
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show per-card and overall review statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("reverse") {
				reverse = a.cfg.Review.Reverse
			}
			if rows < 0 {
				return fmt.Errorf("--rows must not be negative, got %d", rows)
			}

			set, _, err := a.store.Load(cmd.Context())
			if err != nil {
				return err
			}
			stats := domain.Summarize(set, reverse)
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			return printStats(a, stats, rows)
		},
	}

	cmd.Flags().BoolVar(&reverse, "reverse", false, "use the reverse review counters (default from review.reverse)")
	cmd.Flags().IntVar(&rows, "rows", 0, "show at most this many cards, best known first (0 shows all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print all statistics as JSON")
	return cmd
}

func printStats(a *app, stats domain.Stats, limit int) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)

	_, _ = fmt.Fprintln(tw, "INDEX\tPROMPT\tRESPONSE\tHITS\tMISSES\tHIT %\tGOODNESS")
	for i, row := range stats.Rows {
		if limit > 0 && i >= limit {
			break
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%.0f\t%+.2f\n",
			row.Index, row.Prompt, row.Response, row.Hits, row.Misses, row.HitPercent, row.Goodness)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(a.stdout, "\ncards: %d  responses: %d  visited: %.0f%%  known well: %.0f%%  overall score: %.1f\n",
		len(stats.Rows), stats.Responses, stats.PercentVisited, stats.PercentKnownWell, stats.OverallScore)
	return nil
}
