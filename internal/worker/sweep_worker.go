package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/certready/certready-backend/internal/model"
)

// Sweeper is the auto-closure operation the worker schedules.
type Sweeper interface {
	SweepExpired(ctx context.Context) (*model.SweepResult, error)
}

// SweepWorker runs the expired-session sweep on a fixed interval. One pass
// runs immediately at startup so a restart never extends a closed window.
type SweepWorker struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger
}

// NewSweepWorker creates a new SweepWorker.
func NewSweepWorker(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *SweepWorker {
	return &SweepWorker{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("component", "sweep_worker").Logger(),
	}
}

// Start begins the sweep loop. Call in a goroutine.
func (w *SweepWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("SweepWorker started")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SweepWorker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *SweepWorker) runOnce(ctx context.Context) {
	result, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("Sweep failed")
		return
	}
	w.log.Info().
		Int("processed", result.ProcessedCount).
		Int("closed", result.ClosedCount).
		Msg("Sweep pass complete")
}
