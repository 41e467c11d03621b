package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/handsomefox/nextep/internal/discover"
)

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>...",
		Short: "Search movies and series by title",
		Long: `Search movies and series by title.

Examples:
  nextep search "Cidade de Deus"
  nextep search --json breaking bad`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	a, err := appFrom(cmd)
	if err != nil {
		return err
	}

	f := discover.Defaults(a.builder.Limits())
	f.Query = strings.Join(args, " ")
	q, ok := f.SearchText()
	if !ok {
		return errors.New("query must be at least 2 characters")
	}

	page, err := a.catalog.Fetch(cmd.Context(), a.builder.Build(&f, 1))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if a.json {
		return printJSON(out, page)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(out, "No results")
		return nil
	}
	fmt.Fprintf(out, "Found %d results for %q:\n\n", len(page.Items), q)
	return printItems(out, page.Items, 1)
}
