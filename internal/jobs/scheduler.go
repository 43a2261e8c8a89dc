// File: internal/jobs/scheduler.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"ordena_backend/internal/platform/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	runTimeout  = 5 * time.Minute
	stopTimeout = 10 * time.Second
)

// Job is a unit of background work run on a cron schedule.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs registered jobs on a single cron instance. A run that is
// still in progress when its next tick arrives causes that tick to be skipped.
type Scheduler struct {
	cron    *cron.Cron
	metrics metrics.Recorder
	logger  *zap.Logger
}

func NewScheduler(recorder metrics.Recorder, logger *zap.Logger) *Scheduler {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	cl := NewCronLogger(logger.Named("cron"))
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		metrics: recorder,
		logger:  logger.Named("jobs"),
	}
}

// Register schedules job at spec. An empty spec leaves the job disabled.
func (s *Scheduler) Register(spec string, job Job) error {
	if spec == "" {
		s.logger.Warn("Job schedule not defined, job will not run", zap.String("job", job.Name()))
		return nil
	}
	id, err := s.cron.AddFunc(spec, func() { s.RunNow(job) })
	if err != nil {
		s.logger.Error("Failed to schedule job", zap.String("job", job.Name()), zap.String("spec", spec), zap.Error(err))
		return fmt.Errorf("scheduling %s: %w", job.Name(), err)
	}
	s.logger.Info("Job scheduled", zap.String("job", job.Name()), zap.String("spec", spec), zap.Int("entry", int(id)))
	return nil
}

// RunNow executes job once with the run timeout and records the outcome.
func (s *Scheduler) RunNow(job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	start := time.Now()
	s.logger.Info("Starting job run", zap.String("job", job.Name()))
	err := job.Run(ctx)
	s.metrics.RecordJobRun(job.Name(), err)
	if err != nil {
		s.logger.Error("Job run failed", zap.String("job", job.Name()), zap.Error(err))
		return err
	}
	s.logger.Info("Job run completed", zap.String("job", job.Name()), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running jobs to finish, giving up after stopTimeout.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping job scheduler...")
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Job scheduler stopped gracefully.")
	case <-time.After(stopTimeout):
		s.logger.Warn("Job scheduler stop timed out.")
	}
}

// cronLogger adapts zap.Logger to cron.Logger.
type cronLogger struct {
	zl *zap.Logger
}

func NewCronLogger(zl *zap.Logger) cron.Logger {
	return &cronLogger{zl: zl}
}

// Info is used by cron for routine scheduling messages, so it logs at debug.
func (cl *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	cl.zl.Debug(msg, fields(keysAndValues)...)
}

func (cl *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	cl.zl.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			out = append(out, zap.Any(key, keysAndValues[i+1]))
		} else {
			out = append(out, zap.Any(key, "MISSING_VALUE"))
		}
	}
	return out
}
