package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/weblookup/internal/app"
	"github.com/hyperifyio/weblookup/internal/robots"
)

type robotsReport struct {
	Rules      []robotsRule `json:"rules"`
	Sitemaps   []string     `json:"sitemaps"`
	CrawlDelay *float64     `json:"crawlDelaySeconds,omitempty"`
	Path       string       `json:"path,omitempty"`
	Agent      string       `json:"agent,omitempty"`
	Allowed    *bool        `json:"allowed,omitempty"`
}

type robotsRule struct {
	UserAgent string `json:"userAgent"`
	Kind      string `json:"kind"`
	Path      string `json:"path"`
}

func newRobotsCmd(opts *rootOptions) *cobra.Command {
	var agent string
	cmd := &cobra.Command{
		Use:   "robots <url> [path]",
		Short: "Fetch a site's robots.txt and optionally check a path",
		Long: `Robots fetches /robots.txt of the site <url> belongs to and prints its rules,
sitemaps and crawl delay. With [path], it also reports whether --agent may
fetch that path.

A missing robots.txt (404) allows everything; other errors disallow
everything.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(opts.cfg)
			if err != nil {
				return err
			}
			policy, err := a.Explorer.Policy(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			rep := newRobotsReport(policy)
			if len(args) == 2 {
				allowed := policy.IsAllowed(args[1], agent)
				rep.Path, rep.Agent, rep.Allowed = args[1], agent, &allowed
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), rep)
			}
			return writeRobots(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVarP(&agent, "agent", "a", "*", "User agent to evaluate rules for")
	return cmd
}

func newRobotsReport(p robots.Policy) robotsReport {
	rep := robotsReport{Rules: make([]robotsRule, 0, len(p.Rules)), Sitemaps: p.Sitemaps}
	if rep.Sitemaps == nil {
		rep.Sitemaps = []string{}
	}
	for _, r := range p.Rules {
		rep.Rules = append(rep.Rules, robotsRule{UserAgent: r.UserAgent, Kind: r.Kind.String(), Path: r.Path})
	}
	if p.CrawlDelay != nil {
		s := p.CrawlDelay.Seconds()
		rep.CrawlDelay = &s
	}
	return rep
}

func writeRobots(w io.Writer, rep robotsReport) error {
	var b strings.Builder
	for _, r := range rep.Rules {
		fmt.Fprintf(&b, "%s\t%s\t%s\n", r.UserAgent, r.Kind, r.Path)
	}
	for _, s := range rep.Sitemaps {
		fmt.Fprintf(&b, "sitemap\t%s\n", s)
	}
	if rep.CrawlDelay != nil {
		fmt.Fprintf(&b, "crawl-delay\t%gs\n", *rep.CrawlDelay)
	}
	if rep.Allowed != nil {
		verdict := "disallowed"
		if *rep.Allowed {
			verdict = "allowed"
		}
		fmt.Fprintf(&b, "%s for %s: %s\n", rep.Path, rep.Agent, verdict)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
