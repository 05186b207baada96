package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"outage_bot/internal/bot"
	"outage_bot/internal/config"
	"outage_bot/internal/crawler"
	"outage_bot/internal/fetcher"
	"outage_bot/internal/filter"
	"outage_bot/internal/metrics"
	"outage_bot/internal/scheduler"
	"outage_bot/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Error("load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log, closeLog := newLogger(cfg)
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(ctx, cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	rec := metrics.Noop()
	if cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus()
		rec = prom
		srv := serveMetrics(cfg.MetricsAddr, prom.Handler(), log)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	opts := []fetcher.Option{
		fetcher.WithRetry(cfg.FetchRetries, cfg.FetchBackoff),
		fetcher.WithTimeout(cfg.FetchTimeout),
		fetcher.WithMetrics(rec),
		fetcher.WithLogger(log),
	}
	if cfg.PageCacheTTL > 0 {
		opts = append(opts, fetcher.WithCache(fetcher.DefaultCacheSize, cfg.PageCacheTTL))
	}
	pages := fetcher.New(&http.Client{Timeout: cfg.FetchTimeout}, opts...)
	crawl := crawler.New(pages, cfg.PageURL, log)

	b, err := bot.New(store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	engine := filter.New(store, b, cfg.SectionOrder, rec, log)
	sched := scheduler.New(store, crawl, engine, rec, log)
	sched.SetTickInterval(cfg.CrawlInterval)
	b.SetChecker(sched)

	log.Info("starting bot",
		"page_url", cfg.PageURL,
		"interval", cfg.CrawlInterval,
		"order", cfg.SectionOrder,
	)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

// newLogger writes to stderr and, when LOG_DIR is set, to a rotated file.
func newLogger(cfg *config.Config) (*slog.Logger, func()) {
	var lvl slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogDir != "" {
		file := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, "bot.log"),
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
		}
		w = io.MultiWriter(os.Stderr, file)
		closeFn = func() { _ = file.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), closeFn
}

func serveMetrics(addr string, h http.Handler, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", "error", err)
		}
	}()
	return srv
}
