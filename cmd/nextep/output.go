package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/handsomefox/nextep/internal/media"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

const maxTitleLen = 48

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// printItems writes a numbered table. start is the number of the first row.
func printItems(w io.Writer, items []media.Item, start int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tTYPE\tYEAR\tRATING\tVOTES")
	for i := range items {
		it := &items[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%d\n",
			start+i, truncate(it.Title, maxTitleLen), it.Kind, dash(it.Year()), it.VoteAverage, it.VoteCount)
	}
	return tw.Flush()
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
