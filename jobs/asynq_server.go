package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ServerParams collects the worker's dependencies.
type ServerParams struct {
	Logger    *slog.Logger
	RedisAddr string
	Sweeper   *VanstockSweeper
}

// Server wraps the asynq server and its periodic scheduler.
type Server struct {
	logger    *slog.Logger
	srv       *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewServer wires task handlers and the periodic schedule.
func NewServer(p ServerParams) *Server {
	redis := asynq.RedisClientOpt{Addr: p.RedisAddr}

	srv := asynq.NewServer(redis, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	mux.Handle(TaskVanstockSweep, p.Sweeper)

	scheduler := asynq.NewScheduler(redis, nil)

	return &Server{logger: p.Logger, srv: srv, scheduler: scheduler, mux: mux}
}

// Run starts the scheduler and blocks serving tasks until Shutdown.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.scheduler.Register("*/30 * * * *", NewVanstockSweepTask()); err != nil {
		return err
	}
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	s.logger.Info("worker started")
	return s.srv.Run(s.mux)
}

// Shutdown stops the scheduler and drains in-flight tasks.
func (s *Server) Shutdown() {
	s.scheduler.Shutdown()
	s.srv.Shutdown()
	s.logger.Info("worker stopped")
}
