package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/FranksOps/stockists/internal/config"
	"github.com/FranksOps/stockists/internal/logging"
	"github.com/FranksOps/stockists/internal/metrics"
	"github.com/FranksOps/stockists/internal/pipeline"
	"github.com/FranksOps/stockists/internal/report"
	"github.com/FranksOps/stockists/internal/results"
	"github.com/FranksOps/stockists/internal/serp"
	"github.com/FranksOps/stockists/internal/storage"
	"github.com/FranksOps/stockists/pkg/ratelimit"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	fs      afero.Fs
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:           "stockists",
		Short:         "Find the top stockist link for each brand via ValueSERP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runLookup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, toml or json)")
	pf.String("base-dir", "", "directory holding the brand list and output")
	pf.String("input", config.DefaultInputFile, "brand list file name")
	pf.String("output", config.DefaultOutputFile, "output file name")
	pf.String("backend", config.BackendCSV, "output backend: csv, json, sqlite or postgres")
	pf.String("dsn", "", "database DSN for the sqlite and postgres backends")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")

	f := root.Flags()
	f.String("api-key", "", "ValueSERP API key (or STOCKISTS_API_KEY)")
	f.String("google-domain", config.DefaultGoogleDomain, "Google domain to search")
	f.String("country", config.DefaultCountry, "country code (gl)")
	f.String("language", config.DefaultLanguage, "interface language (hl)")
	f.Duration("delay", config.DefaultDelay, "pause between search requests")
	f.Float64("jitter", 0, "random extra pause as a fraction of delay")
	f.Duration("timeout", config.DefaultTimeout, "per-request timeout")
	f.String("tls-profile", "go", "TLS fingerprint: go, chrome, firefox or safari")
	f.String("proxy", "", "proxy URL for search requests")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	f.String("report", "text", "summary format: text or json")

	bind := map[string]string{
		"base_dir":       "base-dir",
		"input_file":     "input",
		"output_file":    "output",
		"backend":        "backend",
		"dsn":            "dsn",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}
	for key, name := range bind {
		_ = a.v.BindPFlag(key, pf.Lookup(name))
	}
	bind = map[string]string{
		"api_key":       "api-key",
		"google_domain": "google-domain",
		"country":       "country",
		"language":      "language",
		"delay":         "delay",
		"jitter":        "jitter",
		"timeout":       "timeout",
		"tls_profile":   "tls-profile",
		"proxy_url":     "proxy",
		"metrics_port":  "metrics-port",
		"report":        "report",
	}
	for key, name := range bind {
		_ = a.v.BindPFlag(key, f.Lookup(name))
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Search every brand and write the cleaned links (default)",
		Args:  cobra.NoArgs,
		RunE:  a.runLookup,
	}
	run.Flags().AddFlagSet(f)

	root.AddCommand(run, a.showCmd())
	return root
}

func (a *app) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (a *app) runLookup(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := a.load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}
	fmt.Fprintf(out, "Working directory: %s\n", wd)
	fmt.Fprintf(out, "Using Google domain: %s, country: %s, language: %s\n", cfg.GoogleDomain, cfg.Country, cfg.Language)

	if cfg.MetricsPort > 0 {
		srv := metrics.Start(cfg.MetricsPort, logger)
		defer func() { _ = srv.Stop(context.WithoutCancel(ctx)) }()
	}

	provider, err := serp.New(cfg, logger)
	if err != nil {
		return err
	}

	backend, output, err := openBackend(ctx, a.fs, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	p := &pipeline.Pipeline{
		Config:   cfg,
		FS:       a.fs,
		Provider: provider,
		Backend:  backend,
		Pacer:    ratelimit.NewPacer(ratelimit.Fixed(cfg.Delay), cfg.Jitter),
		Logger:   logger,
		Progress: out,
		Output:   output,
	}

	summary, err := p.Run(ctx)
	if err != nil {
		if summary.SaveError != "" {
			_ = report.Write(out, cfg.Report, summary)
		}
		return err
	}
	return report.Write(out, cfg.Report, summary)
}

func (a *app) showCmd() *cobra.Command {
	var filter storage.Filter

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print stored stockist links as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := a.load()
			if err != nil {
				return err
			}

			backend, _, err := openBackend(cmd.Context(), a.fs, cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			records, err := backend.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.Write(results.Columns); err != nil {
				return err
			}
			for _, r := range records {
				if err := w.Write(r.Row()); err != nil {
					return err
				}
			}
			w.Flush()
			return w.Error()
		},
	}

	cmd.Flags().StringVar(&filter.Query, "query", "", "only rows for this exact query")
	cmd.Flags().StringVar(&filter.URL, "url", "", "only rows for this exact url")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows to print (0 for all)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "rows to skip")
	return cmd
}
