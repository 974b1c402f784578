package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/wowedo/searchsync/internal/cache/redisstore"
	"github.com/wowedo/searchsync/internal/config"
	"github.com/wowedo/searchsync/internal/gateway"
	"github.com/wowedo/searchsync/internal/health"
	"github.com/wowedo/searchsync/internal/invalidation/kafkaconsumer"
	"github.com/wowedo/searchsync/internal/logger"
	"github.com/wowedo/searchsync/internal/metrics"
	"github.com/wowedo/searchsync/internal/observability"
	"github.com/wowedo/searchsync/internal/session"
	"github.com/wowedo/searchsync/internal/upstream"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		SampleN:   envInt("LOG_SAMPLE_N", 0),
		Component: "searchsyncd",
	}, os.Stdout)

	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)
	appLog.Info("starting searchsyncd",
		"addr", cfg.Addr,
		"version", Version,
		"upstream", cfg.UpstreamBaseURL,
		"cache", cfg.CacheEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		store        *redisstore.Client
		clientOpts   []upstream.Option
		readyPingers []health.Pinger
	)
	if cfg.CacheEnabled {
		var err error
		store, err = redisstore.New(ctx, cfg.RedisAddr,
			redisstore.WithReadTimeout(cfg.CacheOpTimeout),
			redisstore.WithWriteTimeout(cfg.CacheOpTimeout))
		if err != nil {
			appLog.Error("redis unavailable", "addr", cfg.RedisAddr, "err", err)
			return 1
		}
		defer func() { _ = store.Close() }()
		clientOpts = append(clientOpts, upstream.WithCache(store, cfg.CacheTTLSearch, cfg.CacheTTLEvents))
		readyPingers = append(readyPingers, store)
	}

	client, err := upstream.New(appLog, upstream.NewOutbound(), cfg.UpstreamBaseURL, clientOpts...)
	if err != nil {
		appLog.Error("upstream client setup failed", "err", err)
		return 1
	}

	if cfg.Invalidation.Enabled {
		if store == nil {
			appLog.Warn("invalidation enabled without cache, skipping consumer")
		} else {
			kcfg := kafkaconsumer.FromEnv()
			if cfg.Invalidation.Brokers != "" {
				kcfg.Brokers = splitCSV(cfg.Invalidation.Brokers)
			}
			if cfg.Invalidation.Topic != "" {
				kcfg.Topic = cfg.Invalidation.Topic
			}
			if cfg.Invalidation.GroupID != "" {
				kcfg.GroupID = cfg.Invalidation.GroupID
			}
			consumer := kafkaconsumer.New(kcfg, appLog, store)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					appLog.Error("invalidation consumer exited", "err", err)
				}
			}()
		}
	}

	if cfg.MetricsEnabled {
		ms := metrics.NewServer(metrics.Config{
			Enabled: true,
			Addr:    cfg.MetricsAddr,
			Path:    cfg.MetricsPath,
		}, appLog)
		go func() {
			if err := ms.Run(ctx); err != nil {
				appLog.Error("metrics server exited", "err", err)
			}
		}()
	}

	registry := gateway.NewRegistry(appLog, client, session.Config{
		AutocompleteDebounce: cfg.AutocompleteDebounce,
		SuggestionCacheSize:  cfg.AutocompleteCacheSize,
	}, cfg.SessionIdleTimeout)
	go registry.RunReaper(ctx, 0)

	srv := gateway.New(gateway.Options{
		Logger:       appLog,
		Registry:     registry,
		ReadyPingers: readyPingers,
		MountMetrics: !cfg.MetricsEnabled,
	})

	if err := srv.Run(ctx, cfg.Addr); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
