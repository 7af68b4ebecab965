package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	twitter "github.com/anatolykoptev/go-twitter-scrape"
	"github.com/anatolykoptev/go-twitter-scrape/captcha"
	"github.com/anatolykoptev/go-twitter-scrape/metrics"
	"github.com/anatolykoptev/go-twitter-scrape/store"
)

var flags struct {
	config      string
	db          string
	accounts    string
	metricsAddr string
	logFormat   string
	logLevel    string
}

// app holds what PersistentPreRunE sets up for the subcommands.
var app struct {
	cfg    Config
	client *twitter.Client
	store  *store.Store
}

var rootCmd = &cobra.Command{
	Use:           "twscrape",
	Short:         "twscrape scrapes tweets and profiles from the legacy Twitter web frontend.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := setupLogging(flags.logFormat, flags.logLevel); err != nil {
			return err
		}

		cfg, err := readConfig(flags.config)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		app.cfg = cfg

		if flags.metricsAddr != "" {
			serveMetrics(flags.metricsAddr)
		}

		client, err := newClient(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		app.client = client

		if flags.db != "" {
			s, err := store.Open(flags.db)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			app.store = s
		}
		return nil
	},
	PersistentPostRunE: func(*cobra.Command, []string) error {
		if app.store != nil {
			return app.store.Close()
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "twscrape.yaml", "The YAML configuration file.")
	pf.StringVar(&flags.db, "db", "", "A SQLite database to store tweets and cursors in.")
	pf.StringVar(&flags.accounts, "accounts", "", "Extra accounts as user:pass[:auth_token:ct0[:totp]],...")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json.")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn or error.")
}

// ExecuteContext runs the CLI and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(format, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "text":
		h = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		h = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.String("addr", addr), slog.Any("error", err))
		}
	}()
	slog.Info("serving metrics", slog.String("addr", addr))
}

func newClient(ctx context.Context, cfg Config) (*twitter.Client, error) {
	accounts := append(cfg.accounts(), twitter.ParseAccounts(flags.accounts)...)

	ccfg := twitter.ClientConfig{
		BaseURL:      cfg.BaseURL,
		Accounts:     accounts,
		DefaultProxy: cfg.Proxy,
		SessionDir:   cfg.SessionDir,
		SessionTTL:   cfg.SessionTTL,
		MetricsHook:  metrics.Hook,
		PageHook:     metrics.ObservePage,
	}
	if cfg.CapsolverKey != "" {
		ccfg.CaptchaSolver = captcha.NewCapsolver(cfg.CapsolverKey)
	}

	client, err := twitter.NewClient(ctx, ccfg)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}
