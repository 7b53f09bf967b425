package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"pricequote/internal/alphavantage"
	"pricequote/internal/api"
	"pricequote/internal/cache"
	"pricequote/internal/chain"
	"pricequote/internal/coingecko"
	"pricequote/internal/config"
	"pricequote/internal/coordinator"
	"pricequote/internal/fetcher"
	"pricequote/internal/ratelimit"
	"pricequote/internal/service"
	"pricequote/internal/yahoo"
)

const usage = `usage:
  pricequote [serve]                 serve GET /api/quote
  pricequote quote [type:]SYMBOL...  look up symbols once, e.g. AAPL crypto:BTC`

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	// Create context with cancellation for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(cfg)

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		err = serve(ctx, cfg, app)
	case "quote":
		err = quote(ctx, cfg, app, os.Args[2:])
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

// app bundles the wired components shared by both commands
type app struct {
	chain   *chain.Chain
	service *service.Service
}

// newApp builds the provider chain, cache and service from configuration.
// Provider order per asset class:
//
//	stock:  yahoo-quote, yahoo-summary, yahoo-chart, alphavantage
//	crypto: coingecko
func newApp(cfg *config.Config) *app {
	opts := fetcher.ClientOptions{
		Timeout:    cfg.HTTPTimeout,
		RetryCount: cfg.HTTPRetryCount,
		UserAgent:  cfg.HTTPUserAgent,
	}

	limiter := ratelimit.New(map[ratelimit.API]rate.Limit{
		ratelimit.APIYahoo:        limitFor(cfg.YahooRPS),
		ratelimit.APIAlphaVantage: limitFor(cfg.AlphavantageRPS),
		ratelimit.APICoinGecko:    limitFor(cfg.CoingeckoRPS),
	})
	wait := cfg.HTTPTimeout

	c := chain.New().
		Register(fetcher.Stock,
			limiter.Source(ratelimit.APIYahoo, wait, yahoo.NewQuoteClient(cfg.YahooQuery2BaseURL, opts)),
			limiter.Source(ratelimit.APIYahoo, wait, yahoo.NewSummaryClient(cfg.YahooQuery1BaseURL, opts)),
			limiter.Source(ratelimit.APIYahoo, wait, yahoo.NewChartClient(cfg.YahooQuery1BaseURL, opts)),
			limiter.Source(ratelimit.APIAlphaVantage, wait,
				alphavantage.NewStockClient(cfg.AlphavantageAPIKey, cfg.AlphavantageBaseURL, opts)),
		).
		Register(fetcher.Crypto,
			limiter.Source(ratelimit.APICoinGecko, wait,
				coingecko.NewPriceClient(cfg.CoingeckoBaseURL, cfg.CoingeckoAPIKey, opts)),
		)

	if cfg.AlphavantageAPIKey == "" {
		slog.Info("ALPHAVANTAGE_API_KEY not set; alphavantage fallback disabled")
	}

	priceCache := cache.New(cfg.CacheTTL, cache.WithMaxEntries(cfg.CacheMaxEntries))

	return &app{
		chain:   c,
		service: service.New(priceCache, c),
	}
}

func (a *app) handler() http.Handler {
	return api.NewHandler(a.service, a.chain)
}

func serve(ctx context.Context, cfg *config.Config, a *app) error {
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening",
			"addr", cfg.ServerAddr,
			"stock_providers", strings.Join(a.chain.Order(fetcher.Stock), ","),
			"crypto_providers", strings.Join(a.chain.Order(fetcher.Crypto), ","),
			"cache_ttl", cfg.CacheTTL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func quote(ctx context.Context, cfg *config.Config, a *app, args []string) error {
	items := make([]coordinator.Item, 0, len(args))
	for _, arg := range args {
		items = append(items, coordinator.ParseItem(arg))
	}
	if len(items) == 0 {
		for _, w := range cfg.Watchlist {
			items = append(items, coordinator.Item{Symbol: w.Symbol, Type: w.Type})
		}
	}

	coord := coordinator.New(a.service, cfg.BatchPause, os.Stdout)
	_, err := coord.Run(ctx, items)
	return err
}

// limitFor converts requests per second into a limit; zero means unlimited
func limitFor(rps float64) rate.Limit {
	if rps <= 0 {
		return rate.Inf
	}
	return rate.Limit(rps)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
