package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"improvit/internal/api"
	"improvit/internal/cfg"
	"improvit/internal/metrics"
	"improvit/internal/ml"
	"improvit/internal/predict"
	"improvit/internal/remote"
	"improvit/internal/storage"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	setLogLevel(c.LogLevel)

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store := initializeStorage(c)
	if store == nil {
		log.Fatal().Msg("student storage is required, set DATA_PATH or system.dataPath")
	}
	defer store.Close()

	engine := ml.NewEngine(c.ModelDir, mw)
	if !engine.Ready() {
		log.Warn().Str("dir", c.ModelDir).Msg("no model artifacts loaded, degenerate predictions until retrain")
	}

	var scorer predict.RemoteScorer
	if c.RemoteScoringURL != "" {
		scorer = remote.New(c.RemoteScoringURL, c.RemoteTimeout)
		log.Info().Str("url", c.RemoteScoringURL).Msg("remote scoring tier enabled")
	}

	hub := api.NewEventHub()
	svc := predict.New(store, engine, scorer, hub, mw, c.BatchConcurrency)
	server := api.NewServer(c.Port, svc, store, hub, promhttp.Handler())

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("api server failed")
		}
	}()

	waitForShutdown(server)
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		log.Warn().Str("level", level).Msg("unknown log level, using info")
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// initializeStorage opens the student database if DATA_PATH is configured.
func initializeStorage(c cfg.Settings) *storage.Store {
	if c.DataPath == "" {
		return nil
	}
	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Warn().Err(err).Msg("storage initialization failed")
		return nil
	}
	return store
}

func waitForShutdown(server *api.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutdown signal received, shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
