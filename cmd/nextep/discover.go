package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/handsomefox/nextep/internal/browse"
	"github.com/handsomefox/nextep/internal/discover"
	"github.com/handsomefox/nextep/internal/media"
)

const settleTimeout = 30 * time.Second

type discoverFlags struct {
	query    string
	types    []string
	anime    bool
	genres   []string
	matchAll bool
	minAge   int
	maxAge   int
	voteMin  float64
	voteMax  float64
	votesMin int
	votesMax int
	yearMin  int
	yearMax  int
	sort     string
	order    string
	pages    int
}

func newDiscoverCmd() *cobra.Command {
	var fl discoverFlags
	cmd := &cobra.Command{
		Use:   "discover [flags]",
		Short: "List titles matching filters, page by page",
		Long: `List titles matching filters. Pages are loaded one after another
until --pages is reached or the catalog runs out.

Examples:
  nextep discover --type tv --genres 18,80 --match-all
  nextep discover --anime --sort vote_average --pages 3
  nextep discover --year-min 1990 --year-max 1999 --min-age 14`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDiscoverCmd(cmd, &fl)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&fl.query, "query", "q", "", "Text query (2+ characters switches to search)")
	flags.StringSliceVar(&fl.types, "type", nil, "Media types: movie, tv")
	flags.BoolVar(&fl.anime, "anime", false, "Only Japanese animation")
	flags.StringSliceVar(&fl.genres, "genres", nil, "Genre ids")
	flags.BoolVar(&fl.matchAll, "match-all", false, "Require every genre instead of any")
	flags.IntVar(&fl.minAge, "min-age", 0, "Minimum age rating (10, 12, 14, 16, 18)")
	flags.IntVar(&fl.maxAge, "max-age", 0, "Maximum age rating (10, 12, 14, 16, 18)")
	flags.Float64Var(&fl.voteMin, "vote-min", 0, "Minimum vote average")
	flags.Float64Var(&fl.voteMax, "vote-max", discover.MaxVoteAverage, "Maximum vote average")
	flags.IntVar(&fl.votesMin, "votes-min", 0, "Minimum vote count")
	flags.IntVar(&fl.votesMax, "votes-max", 0, "Maximum vote count (default: unbounded)")
	flags.IntVar(&fl.yearMin, "year-min", 0, "Earliest release year")
	flags.IntVar(&fl.yearMax, "year-max", 0, "Latest release year")
	flags.StringVar(&fl.sort, "sort", string(discover.SortPopularity), "Sort field")
	flags.StringVar(&fl.order, "order", string(discover.Desc), "Sort direction: asc, desc")
	flags.IntVar(&fl.pages, "pages", 1, "Number of pages to load")
	return cmd
}

func (fl *discoverFlags) filters(l discover.Limits) (discover.FilterState, error) {
	f := discover.Defaults(l)
	f.Query = fl.query
	if len(fl.types) > 0 {
		f.MediaTypes = nil
		for _, raw := range fl.types {
			k, err := media.ParseKind(strings.TrimSpace(raw))
			if err != nil {
				return f, err
			}
			f.MediaTypes = append(f.MediaTypes, k)
		}
	}
	f.Anime = fl.anime
	f.GenreIDs = fl.genres
	f.MatchAllGenres = fl.matchAll
	f.MinAgeRating = discover.AgeRating(fl.minAge)
	f.MaxAgeRating = discover.AgeRating(fl.maxAge)
	f.VoteAverage = discover.FloatRange{Min: fl.voteMin, Max: fl.voteMax}
	f.VoteCount.Min = fl.votesMin
	if fl.votesMax > 0 {
		f.VoteCount.Max = fl.votesMax
	}
	if fl.yearMin > 0 {
		f.ReleaseYear.Min = fl.yearMin
	}
	if fl.yearMax > 0 {
		f.ReleaseYear.Max = fl.yearMax
	}
	f.SortField = discover.SortField(fl.sort)
	f.SortDirection = discover.SortDirection(strings.ToLower(fl.order))
	return f, f.Validate(l)
}

// runDiscoverCmd drives a browse controller the way the web client does:
// one filter change, then a load-more per extra page.
func runDiscoverCmd(cmd *cobra.Command, fl *discoverFlags) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}
	f, err := fl.filters(a.builder.Limits())
	if err != nil {
		return err
	}

	ctrl, err := browse.New(a.catalog, a.builder,
		browse.WithDebounce(a.debounce),
		browse.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	before := ctrl.Snapshot().Version
	if err := ctrl.SetFilters(ctx, f); err != nil {
		return err
	}
	snap, err := settle(ctx, ctrl, before)
	if err != nil {
		return err
	}
	for loaded := 1; loaded < fl.pages && snap.HasMore; loaded++ {
		v := snap.Version
		if err := ctrl.SentinelVisible(ctx); err != nil {
			return err
		}
		if snap, err = settle(ctx, ctrl, v); err != nil {
			return err
		}
	}

	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if snap.Error != "" {
		return fmt.Errorf("search failed: %s", snap.Error)
	}

	out := cmd.OutOrStdout()
	if a.json {
		return printJSON(out, snap)
	}
	if len(snap.Items) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	fmt.Fprintf(out, "%s: %d titles, page %d of %d\n\n", snap.Mode, len(snap.Items), snap.Page, snap.TotalPages)
	return printItems(out, snap.Items, 1)
}

func settle(ctx context.Context, ctrl *browse.Controller, version uint64) (browse.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, settleTimeout)
	defer cancel()
	return ctrl.AwaitSettled(ctx, version)
}
