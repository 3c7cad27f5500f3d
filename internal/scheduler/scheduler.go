package scheduler

import (
	"context"

	"github.com/pkg/errors"
	cronv3 "github.com/robfig/cron/v3"

	"github.com/jon-lip/G2SMS-Public/internal/logger"
)

// Job is one scheduled pass. Its context is canceled when Stop gives up
// waiting.
type Job func(ctx context.Context)

type Scheduler struct {
	cron   *cronv3.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

// New registers job under spec, a standard five field cron expression or a
// descriptor such as "@every 5m". A run that is still in progress when the
// next one is due causes that next run to be skipped.
func New(spec string, job Job) (*Scheduler, error) {
	cl := cronLogger{log: logger.GetLogger()}
	c := cronv3.New(
		cronv3.WithLogger(cl),
		cronv3.WithChain(
			cronv3.Recover(cl),
			cronv3.SkipIfStillRunning(cl),
		),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, ctx: ctx, cancel: cancel}

	if _, err := c.AddFunc(spec, func() { job(s.ctx) }); err != nil {
		cancel()
		return nil, errors.Wrapf(err, "invalid schedule %q", spec)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for a running job to finish. If ctx ends
// first the job's context is canceled and ctx's error is returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}
