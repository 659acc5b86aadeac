package internal

import (
	"context"
	"fmt"

	"github.com/go-co-op/gocron/v2"
	"github.com/rm-hull/blurr/internal/blur"
	"github.com/rm-hull/blurr/internal/config"
	"github.com/rm-hull/blurr/internal/dispatch"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewScheduler watches the configured inbox. It returns a nil scheduler when
// no inbox is configured.
func NewScheduler(ctx context.Context, cfg *config.Config, engine blur.Engine, dispatcher *dispatch.Dispatcher) (gocron.Scheduler, error) {
	if cfg.InboxDir == "" {
		log.Info().Msg("no inbox configured, watcher disabled")
		return nil, nil
	}

	processor, err := NewInboxProcessor(cfg.InboxDir, cfg.OutboxDir, engine, dispatcher)
	if err != nil {
		return nil, fmt.Errorf("initial run of job failed: %w", err)
	}
	processInbox(ctx, processor)

	scheduler, err := gocron.NewScheduler(gocron.WithLogger(gocronLogger{}))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(cfg.WatchInterval),
		gocron.NewTask(processInbox, ctx, processor),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	scheduler.Start()
	log.Info().Str("inbox", cfg.InboxDir).Dur("interval", cfg.WatchInterval).Msg("watching inbox")
	return scheduler, nil
}

func processInbox(ctx context.Context, processor *InboxProcessor) {
	for _, err := range processor.Run(ctx) {
		log.Error().Err(err).Msg("inbox processing failed")
	}
}

// gocronLogger forwards scheduler diagnostics to zerolog.
type gocronLogger struct{}

func (gocronLogger) Debug(msg string, args ...any) { event(zerolog.DebugLevel, msg, args) }
func (gocronLogger) Info(msg string, args ...any)  { event(zerolog.InfoLevel, msg, args) }
func (gocronLogger) Warn(msg string, args ...any)  { event(zerolog.WarnLevel, msg, args) }
func (gocronLogger) Error(msg string, args ...any) { event(zerolog.ErrorLevel, msg, args) }

func event(level zerolog.Level, msg string, args []any) {
	log.WithLevel(level).Str("component", "gocron").Fields(args).Msg(msg)
}
