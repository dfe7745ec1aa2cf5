package worker

import (
	"context"
	"errors"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/model"
	"github.com/aliskhannn/notification-dispatcher/internal/service/dispatch"
)

//go:generate mockgen -source=poller.go -destination=../mocks/worker/mock.go -package=mocks
type dispatcher interface {
	Run(ctx context.Context) (*model.Report, error)
}

// Poller triggers dispatch runs on a fixed interval.
type Poller struct {
	dispatcher dispatcher
	interval   time.Duration
}

func NewPoller(d dispatcher, interval time.Duration) *Poller {
	return &Poller{
		dispatcher: d,
		interval:   interval,
	}
}

// Run blocks until ctx is cancelled, triggering one run per tick. A run in
// progress is finished before Run returns.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	zlog.Logger.Info().Dur("interval", p.interval).Msg("poller started")

	for {
		select {
		case <-ctx.Done():
			zlog.Logger.Info().Msg("poller stopped")
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

// tick runs one cycle detached from ctx cancellation, so a shutdown signal
// never interrupts a row between delivery and its status flip.
func (p *Poller) tick(ctx context.Context) {
	report, err := p.dispatcher.Run(context.WithoutCancel(ctx))
	if err != nil {
		if errors.Is(err, dispatch.ErrRunInProgress) {
			zlog.Logger.Debug().Msg("previous run still in progress, skipping tick")
			return
		}

		zlog.Logger.Error().Err(err).Msg("scheduled dispatch run failed")
		return
	}

	if report.Idle() {
		return
	}

	zlog.Logger.Info().
		Str("run_id", report.RunID.String()).
		Int("processed", report.Processed).
		Int("errors", len(report.Errors)).
		Msg("scheduled dispatch run finished")
}
