package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/weblookup/internal/app"
	"github.com/hyperifyio/weblookup/internal/metrics"
)

// rootOptions carries values shared by all subcommands.
type rootOptions struct {
	configPath string
	envFiles   []string
	verbose    bool
	jsonOut    bool

	cfg app.Config
}

// NewRootCmd creates the root command for weblookup.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "weblookup",
		Short: "Multi-provider web search and site exploration",
		Long: `weblookup sends one query to several web search providers concurrently and
merges the answers into a single deduplicated list. It also reads a site's
robots.txt and walks its sitemaps.

Configuration is read from flags, then environment variables, then a YAML or
JSON config file (default: $XDG_CONFIG_HOME/weblookup/config.yaml).`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.prepare(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to YAML/JSON config file")
	pf.StringSliceVar(&opts.envFiles, "env-file", []string{".env"}, "Dotenv files to load before reading the environment")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.BoolVar(&opts.jsonOut, "json", false, "Write JSON instead of text")
	pf.String("metrics.addr", "", "Serve Prometheus metrics on this address, e.g. :9090")
	pf.String("http.userAgent", "", "User-Agent for outbound requests")
	pf.Duration("http.timeout", 0, "Timeout per HTTP attempt, excluding 429 backoff waits (0 keeps the configured default)")
	pf.Int("http.maxRetries", 0, "Retries after a 429 response per request")
	pf.Int("http.maxConcurrent", 0, "Maximum concurrent robots/sitemap requests (0 = unlimited)")
	pf.Float64("http.rps", 0, "Client-side request rate limit for robots/sitemap requests (0 = unlimited)")

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newRobotsCmd(opts))
	cmd.AddCommand(newSitemapCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func setupLogging(w io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// prepare resolves configuration with precedence flags > env > file > defaults.
func (o *rootOptions) prepare(cmd *cobra.Command) error {
	setupLogging(cmd.ErrOrStderr(), o.verbose)

	if err := app.LoadEnvFiles(o.envFiles...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}

	cfg := app.DefaultConfig()
	path := o.configPath
	if path == "" {
		path = app.DefaultConfigPath()
	}
	if path != "" {
		fc, err := app.LoadConfigFile(path)
		switch {
		case err == nil:
			app.ApplyFileConfig(&cfg, fc)
			log.Debug().Str("path", path).Msg("config file loaded")
		case errors.Is(err, os.ErrNotExist) && o.configPath == "":
		default:
			return fmt.Errorf("load config: %w", err)
		}
	}
	app.ApplyEnvOverrides(&cfg)
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}
	if o.verbose {
		cfg.Verbose = true
	}
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return err
	}
	o.cfg = cfg

	if cfg.MetricsAddr != "" {
		serveMetrics(cmd.Context(), cfg.MetricsAddr)
	}
	return nil
}

// applyFlags copies explicitly set flags into cfg.
func applyFlags(cmd *cobra.Command, cfg *app.Config) error {
	fs := cmd.Flags()
	var err error
	str := func(name string, dst *string) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetString(name)
		}
	}
	num := func(name string, dst *int) {
		if err == nil && fs.Changed(name) {
			*dst, err = fs.GetInt(name)
		}
	}
	str("metrics.addr", &cfg.MetricsAddr)
	str("http.userAgent", &cfg.UserAgent)
	num("http.maxRetries", &cfg.MaxRetries)
	num("http.maxConcurrent", &cfg.MaxConcurrent)
	if err == nil && fs.Changed("http.timeout") {
		cfg.HTTPTimeout, err = fs.GetDuration("http.timeout")
	}
	if err == nil && fs.Changed("http.rps") {
		cfg.RequestsPerSecond, err = fs.GetFloat64("http.rps")
	}

	// Subcommand specific flags; lookups are no-ops where a flag is absent.
	if fs.Lookup("providers") != nil && fs.Changed("providers") {
		var v []string
		if v, err = fs.GetStringSlice("providers"); err == nil {
			cfg.Providers = v
		}
	}
	num("max-results", &cfg.MaxResultsPerProvider)
	num("max-depth", &cfg.SitemapMaxDepth)
	str("searx.url", &cfg.SearxURL)
	str("search.file", &cfg.FileSearchPath)
	str("duckduckgo.region", &cfg.DuckDuckGoRegion)
	if err == nil && fs.Lookup("duckduckgo") != nil && fs.Changed("duckduckgo") {
		cfg.DuckDuckGo, err = fs.GetBool("duckduckgo")
	}
	return err
}

func serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{Addr: addr, Handler: metricsMux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	if ctx != nil {
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
