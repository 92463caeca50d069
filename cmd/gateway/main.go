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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"currency-gateway/internal"
	apimw "currency-gateway/internal/api/http/middleware"
	rateshttp "currency-gateway/internal/api/http/rates"
	"currency-gateway/internal/cache"
	"currency-gateway/internal/filter"
	"currency-gateway/internal/gateway"
	"currency-gateway/internal/metrics"
	"currency-gateway/internal/provider"
	"currency-gateway/internal/provider/fixer"
	"currency-gateway/internal/provider/frankfurter"
	"currency-gateway/internal/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	m := metrics.New(prometheus.DefaultRegisterer)
	currencyFilter := filter.New(cfg.ExcludedCodes()...)
	rateCache := cache.New(time.Now, logger, m)

	newClient := func(id internal.ProviderIdentity) *upstream.Client {
		ucfg := upstream.Config{
			Timeout: cfg.Upstream.Timeout,
			Retry: upstream.RetryConfig{
				MaxRetries: cfg.Upstream.RetryMax,
				BaseDelay:  cfg.Upstream.RetryBaseDelay,
			},
			Breaker: upstream.BreakerConfig{
				FailureRatio:   cfg.Upstream.BreakerFailureRatio,
				MinThroughput:  cfg.Upstream.BreakerMinThroughput,
				SamplingWindow: cfg.Upstream.BreakerSamplingWindow,
				BreakDuration:  cfg.Upstream.BreakerBreakDuration,
				OnStateChange: func(from, to upstream.BreakerState) {
					logger.Warn("circuit breaker state change", "provider", id, "from", from, "to", to)
					m.BreakerState.WithLabelValues(id.String()).Set(float64(to))
				},
			},
		}
		return upstream.New(ucfg, logger, m)
	}

	frank := frankfurter.New(newClient(internal.ProviderFrankfurter), currencyFilter, logger)
	frank.BaseURL = cfg.Providers.FrankfurterURL

	fix := fixer.New(newClient(internal.ProviderFixer), cfg.Providers.FixerAPIKey, currencyFilter, logger)
	fix.BaseURL = cfg.Providers.FixerURL

	var registry *provider.Registry
	switch internal.ParseProviderIdentity(cfg.Providers.Default) {
	case internal.ProviderFixer:
		registry = provider.NewRegistry(fix, frank)
	default:
		registry = provider.NewRegistry(frank, fix)
	}

	gw := gateway.New(registry, rateCache, currencyFilter, cfg.Cache.TTL, logger, m)

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(apimw.TraceID)
	router.Use(apimw.Logger(logger))
	router.Use(chimiddleware.Recoverer)

	router.Handle("/metrics", promhttp.Handler())
	rateshttp.New(gw, logger).Register(router)

	g, gctx := errgroup.WithContext(ctx)

	scheduler := cron.New()
	defaultProvider := internal.ParseProviderIdentity(cfg.Providers.Default)
	_, err = scheduler.AddFunc(cfg.Refresh.CronSpec, func() {
		if removed := rateCache.ClearExpired(); removed > 0 {
			logger.Info("cleared expired cache entries", "count", removed)
		}
		for _, base := range cfg.RefreshBases() {
			if _, err := gw.GetLatest(gctx, base, defaultProvider); err != nil {
				logger.Error("warm refresh failed", "base", base, "error", err)
			}
		}
	})
	if err != nil {
		return fmt.Errorf("add cron func: %w", err)
	}

	g.Go(func() error {
		return runCron(gctx, scheduler)
	})

	g.Go(func() error {
		return serveHTTP(gctx, ":"+cfg.HTTPServer.Port, router, cfg.HTTPServer)
	})

	logger.Info("running", "port", cfg.HTTPServer.Port, "defaultProvider", cfg.Providers.Default)
	return g.Wait()
}

func runCron(ctx context.Context, c *cron.Cron) error {
	c.Start()
	defer func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	return nil
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, cfg HTTPServerConfig) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	slog.Info("HTTP listening", "addr", addr)
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
