package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Depado/ginprom"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rm-hull/blurr/internal"
	"github.com/rm-hull/blurr/internal/api"
	"github.com/rm-hull/blurr/internal/config"
	"github.com/rm-hull/blurr/internal/dispatch"
	"github.com/rs/zerolog/log"
	healthcheck "github.com/tavsec/gin-healthcheck"
	"github.com/tavsec/gin-healthcheck/checks"
	hc_config "github.com/tavsec/gin-healthcheck/config"
)

func ApiServer(cfg *config.Config) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dispatcher, err := dispatch.New(cfg.Workers, cfg.QueueSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create dispatcher")
	}
	dispatcher.StartWorkers()

	if err := os.MkdirAll(cfg.OutboxDir, 0755); err != nil {
		log.Fatal().Err(err).Str("outbox", cfg.OutboxDir).Msg("failed to create outbox")
	}

	sched, err := internal.NewScheduler(ctx, cfg, cfg.Engine(), dispatcher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start inbox watcher")
	}

	r := gin.New()

	prometheus := ginprom.New(
		ginprom.Engine(r),
		ginprom.Path("/metrics"),
		ginprom.Ignore("/healthz"),
	)

	r.Use(
		gin.Recovery(),
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		prometheus.Instrument(),
	)

	if cfg.Debug {
		log.Warn().Msg("pprof endpoints are enabled and exposed. Do not run with this flag in production.")
		pprof.Register(r)
	}

	err = healthcheck.New(r, hc_config.DefaultConfig(), []checks.Check{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize healthcheck")
	}

	api.Register(r, cfg, dispatcher)
	r.Static("/v1/outbox", cfg.OutboxDir)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("starting HTTP API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Int("port", cfg.Port).Msg("HTTP API server failed to start")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shutdown HTTP server cleanly")
	}

	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			log.Error().Err(err).Msg("failed to shutdown scheduler")
		}
	}
	dispatcher.Shutdown()
}
