package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tooba/internal/catalog"
	"tooba/internal/config"
	"tooba/internal/match"
	"tooba/internal/server"
	"tooba/internal/watch"
	"tooba/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.RootPath, "root", cfg.RootPath, "library root containing one directory per show")
	flag.StringVar(&cfg.Port, "port", cfg.Port, "listen port")
	flag.Parse()
	if cfg.RootPath == "" && flag.NArg() > 0 {
		cfg.RootPath = flag.Arg(0)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	m := match.New(cfg.VideoExtensions, cfg.ThumbExtension, cfg.MatchThreshold)
	scanner := catalog.NewScanner(os.DirFS(cfg.RootPath), cfg.RootPath, m, log)
	cache := catalog.NewCache(scanner, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.WarmScan {
		go func() {
			if _, err := cache.Catalog(ctx); err != nil {
				log.Error().Err(err).Msg("warm scan failed")
			}
		}()
	}

	if cfg.Watch {
		w, err := watch.New(cfg.RootPath, cfg.WatchDebounce, m, cache.Invalidate, log)
		if err != nil {
			log.Fatal().Err(err).Msg("start watcher")
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error().Err(err).Msg("watcher stopped")
			}
		}()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(cache, log).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("root", cfg.RootPath).Bool("watch", cfg.Watch).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		_ = srv.Close()
	}
	log.Info().Msg("server stopped")
}
