package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const pruneSpec = "0 */15 * * * *"

type SessionPruner interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Scheduler runs periodic maintenance inside the serve process.
type Scheduler struct {
	cron     *cron.Cron
	sessions SessionPruner
	log      zerolog.Logger
}

func NewScheduler(sessions SessionPruner, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:     c,
		sessions: sessions,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(pruneSpec, s.pruneSessions); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) pruneSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.PruneSessions(ctx); err != nil {
		s.log.Error().Err(err).Msg("prune expired sessions failed")
	}
}

func (s *Scheduler) PruneSessions(ctx context.Context) (int64, error) {
	removed, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("expired sessions pruned")
	}
	return removed, nil
}
