package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-club-subscription/internal/usecase"
)

// ReminderWorker periodically fires due pre-expiry reminders.
type ReminderWorker struct {
	interval time.Duration
	subUC    *usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, subUC *usecase.SubscriptionUseCase, logger *zerolog.Logger) *ReminderWorker {
	remLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval: interval,
		subUC:    subUC,
		log:      &remLog,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting reminder worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *ReminderWorker) runCheck(ctx context.Context) {
	sent, err := w.subUC.RemindSweep(ctx, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("reminder sweep error")
	}
	if sent > 0 {
		w.log.Info().Int("count", sent).Msg("reminders sent")
	}
}
