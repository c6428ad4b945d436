package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-dms/meridian-dms/internal/shared"
	"github.com/meridian-dms/meridian-dms/internal/vanstock"
)

// TaskVanstockSweep prunes expired adjustment requests past retention.
const TaskVanstockSweep = "vanstock:sweep_expired"

// NewVanstockSweepTask builds the sweep task. It carries no payload;
// retention comes from worker configuration.
func NewVanstockSweepTask() *asynq.Task {
	return asynq.NewTask(TaskVanstockSweep, nil)
}

// VanstockSweeper handles the periodic sweep.
type VanstockSweeper struct {
	logger      *slog.Logger
	service     *vanstock.Service
	idempotency *shared.IdempotencyStore
	retention   time.Duration
}

func NewVanstockSweeper(logger *slog.Logger, service *vanstock.Service, idem *shared.IdempotencyStore, retention time.Duration) *VanstockSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &VanstockSweeper{logger: logger, service: service, idempotency: idem, retention: retention}
}

// ProcessTask removes expired requests whose window closed more than
// the retention period ago, along with idempotency keys of the same age.
func (s *VanstockSweeper) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	removed, err := s.service.SweepExpired(ctx, s.retention)
	if err != nil {
		s.logger.Error("vanstock sweep failed", slog.Any("error", err))
		return err
	}
	if removed > 0 {
		s.logger.Info("vanstock sweep removed expired requests", slog.Int64("removed", removed))
	}
	if s.idempotency != nil {
		if err := s.idempotency.Cleanup(ctx, s.retention); err != nil {
			s.logger.Error("idempotency cleanup failed", slog.Any("error", err))
			return err
		}
	}
	return nil
}
