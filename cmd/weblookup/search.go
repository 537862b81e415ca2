package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/weblookup/internal/app"
	"github.com/hyperifyio/weblookup/internal/search"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Query all configured search providers and print merged results",
		Long: `Search sends the query to every configured provider at once. A provider that
fails is skipped; results are listed in provider order with duplicate URLs
removed.

Examples:
  weblookup search golang generics
  weblookup search --providers duckduckgo,mojeek --max-results 5 "http 429"
  weblookup search --search.file results.json --json kubernetes`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			if len(a.Search.Providers) == 0 {
				return errors.New("no search providers configured")
			}
			results, err := a.Search.Search(cmd.Context(), joinArgs(args), a.SearchOptions())
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			return writeResults(cmd.OutOrStdout(), results)
		},
	}
	f := cmd.Flags()
	f.StringSlice("providers", nil, "Providers in merge order (file, searxng, mojeek, tavily, searchapi, google, duckduckgo)")
	f.Int("max-results", search.DefaultMaxResults, "Maximum results requested from each provider")
	f.String("searx.url", "", "SearxNG base URL")
	f.String("search.file", "", "Path to JSON file for the offline file provider")
	f.Bool("duckduckgo", false, "Include DuckDuckGo in the default provider order")
	f.String("duckduckgo.region", "", "DuckDuckGo region, e.g. us-en")
	return cmd
}

func writeResults(w io.Writer, results []search.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no results")
		return err
	}
	for i, r := range results {
		if _, err := fmt.Fprintf(w, "%d. %s\n   %s [%s]\n", i+1, r.Title, r.URL, r.Source); err != nil {
			return err
		}
		if r.Description != "" {
			if _, err := fmt.Fprintf(w, "   %s\n", r.Description); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
