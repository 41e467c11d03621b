package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/handsomefox/nextep/internal/carousel"
	"github.com/handsomefox/nextep/internal/tmdb"
)

func newTrendingCmd() *cobra.Command {
	var (
		window string
		offset int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show what is trending today or this week",
		Long: `Show trending titles as a carousel window. The list wraps around,
so --offset may be negative or past the end.

Examples:
  nextep trending
  nextep trending --window day --offset 18 --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			w := tmdb.Window(strings.ToLower(window))
			if !w.Valid() {
				return fmt.Errorf("window must be day or week, got %q", window)
			}

			page, err := a.catalog.Trending(cmd.Context(), w, a.builder.Locale())
			if err != nil {
				return fmt.Errorf("trending failed: %w", err)
			}
			slots := carousel.New(page.Items).Window(offset, limit)

			out := cmd.OutOrStdout()
			if a.json {
				return printJSON(out, slots)
			}
			if len(slots) == 0 {
				fmt.Fprintln(out, "Nothing trending")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RANK\tTITLE\tTYPE\tRATING")
			for _, s := range slots {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\n", s.Rank, truncate(s.Item.Title, maxTitleLen), s.Item.Kind, s.Item.VoteAverage)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&window, "window", string(tmdb.Week), "Trending window: day, week")
	cmd.Flags().IntVar(&offset, "offset", 0, "Carousel position to start at")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of titles to show")
	return cmd
}
