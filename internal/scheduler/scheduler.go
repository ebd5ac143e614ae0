package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"IndexWatch/internal/model"
	"IndexWatch/internal/orchestrator"
)

// Scheduler periodically sweeps every configured index so expired cache
// entries are rebuilt before the UI asks for them.
type Scheduler struct {
	Cron         *cron.Cron
	Orchestrator *orchestrator.Orchestrator
	Descriptors  []model.IndexDescriptor
	Ctx          context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, orch *orchestrator.Orchestrator, descriptors []model.IndexDescriptor) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(cron.WithSeconds()),
		Orchestrator: orch,
		Descriptors:  descriptors,
		Ctx:          ctx,
	}
}

// Register adds the refresh sweep under the given cron spec.
func (s *Scheduler) Register(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshAll); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a sweep immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.refreshAll()
}

// refreshAll walks the indices sequentially; they share no mutable state, so
// a failure on one never blocks the rest.
func (s *Scheduler) refreshAll() {
	for _, d := range s.Descriptors {
		select {
		case <-s.Ctx.Done():
			return
		default:
		}
		if _, err := s.Orchestrator.GetMetrics(d.Name, d.Code); err != nil {
			log.Printf("[WARN] refresh %s: %v", d.Name, err)
		}
	}
	log.Printf("[INFO] refresh sweep finished: %d indices", len(s.Descriptors))
}
