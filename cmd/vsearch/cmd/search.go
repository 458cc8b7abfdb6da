package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectorcore/hnswengine/internal/segment"
)

func newSearchCmd() *cobra.Command {
	var (
		queryStr string
		top      int
		ef       int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run a top-K query against the segment at --dir",
		Long: `search loads the segment at --dir and runs a single top-K query
against it, printing each hit's external ID and score.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, queryStr, top, ef)
		},
	}

	cmd.Flags().StringVar(&queryStr, "query", "", "comma-separated query vector, e.g. 0.1,0.2,0.3")
	cmd.Flags().IntVar(&top, "top", 10, "number of results to return")
	cmd.Flags().IntVar(&ef, "ef", 0, "override the segment's configured ef for this query (0 uses the default)")
	cmd.MarkFlagRequired("query")

	return cmd
}

func runSearch(cmd *cobra.Command, queryStr string, top, ef int) error {
	out := cmd.OutOrStdout()
	st := stylesFor(os.Stdout)

	query, err := parseVector(queryStr)
	if err != nil {
		return fmt.Errorf("parse --query: %w", err)
	}

	seg, err := segment.Load(segmentDir)
	if err != nil {
		return fmt.Errorf("load segment at %s: %w", segmentDir, err)
	}

	hits, err := seg.Search(query, top, segment.SearchParams{Ef: ef}, nil)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(hits) == 0 {
		fmt.Fprintln(out, st.Warning.Render("no results"))
		return nil
	}

	fmt.Fprintln(out, st.Header.Render(fmt.Sprintf("top %d results", len(hits))))
	for i, h := range hits {
		fmt.Fprintf(out, "%s %s\n",
			st.Label.Render(fmt.Sprintf("%2d.", i+1)),
			fmt.Sprintf("id=%d score=%.6f", h.ID, h.Score))
	}
	return nil
}

// parseVector accepts either a bare comma-separated list of floats or a
// JSON array, so a query can be pasted straight out of the build file's
// "vector" field.
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty vector")
	}

	if strings.HasPrefix(s, "[") {
		var v []float32
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return nil, err
		}
		return v, nil
	}

	parts := strings.Split(s, ",")
	v := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("component %d (%q): %w", i, p, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
