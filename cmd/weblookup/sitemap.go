package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/weblookup/internal/app"
	"github.com/hyperifyio/weblookup/internal/sitemap"
)

func newSitemapCmd(opts *rootOptions) *cobra.Command {
	var (
		discover bool
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "sitemap <url>",
		Short: "Stream the entries of a sitemap, following sitemap indexes",
		Long: `Sitemap prints every URL reachable from a sitemap or sitemap index. Gzipped
sitemaps are supported. Documents that cannot be fetched or parsed are
skipped.

With --discover, <url> names a site instead: the sitemaps listed in its
robots.txt are read, or /sitemap.xml when there are none.

With --json, entries are written as one JSON object per line.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			var entries iter.Seq2[sitemap.Entry, error]
			if discover {
				entries = a.Explorer.Entries(cmd.Context(), args[0])
			} else {
				entries = a.Explorer.Sitemaps.Stream(cmd.Context(), args[0])
			}
			return writeEntries(cmd.OutOrStdout(), entries, limit, opts.jsonOut)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&discover, "discover", false, "Treat <url> as a site and discover its sitemaps via robots.txt")
	f.IntVarP(&limit, "limit", "n", 0, "Stop after this many entries (0 = all)")
	f.Int("max-depth", sitemap.DefaultMaxDepth, "Deepest sitemap index level to follow (0 reads the given document only)")
	return cmd
}

func writeEntries(w io.Writer, entries iter.Seq2[sitemap.Entry, error], limit int, asJSON bool) error {
	enc := json.NewEncoder(w)
	n := 0
	for e, err := range entries {
		if err != nil {
			return err
		}
		if asJSON {
			if err := enc.Encode(e); err != nil {
				return err
			}
		} else if _, err := fmt.Fprintln(w, formatEntry(e)); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}

func formatEntry(e sitemap.Entry) string {
	s := e.URL
	if e.LastModified != nil {
		s += "\t" + e.LastModified.UTC().Format(time.RFC3339)
	}
	if e.ChangeFrequency != "" {
		s += "\t" + e.ChangeFrequency
	}
	if e.Priority != nil {
		s += fmt.Sprintf("\t%.1f", *e.Priority)
	}
	return s
}
