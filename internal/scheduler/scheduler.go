package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hisaab/internal/clock"
	invoicedomain "github.com/smallbiznis/hisaab/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/hisaab/internal/observability/metrics"
	reminderdomain "github.com/smallbiznis/hisaab/internal/reminder/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobMarkOverdue  = "mark_overdue"
	JobDueReminders = "due_reminders"
)

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type overdueMarker interface {
	MarkOverdue(ctx context.Context) (int64, error)
}

type dueLister interface {
	ListDueAll(ctx context.Context, limit int) ([]reminderdomain.Reminder, error)
}

type Params struct {
	fx.In

	Log         *zap.Logger
	InvoiceSvc  invoicedomain.Service
	ReminderSvc reminderdomain.Service
	GenID       *snowflake.Node
	Clock       clock.Clock
	Config      Config `optional:"true"`
}

// Scheduler keeps stored invoice status close to the derived one and
// surfaces reminders that are waiting on the operator. It never sends.
type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	metrics   *obsmetrics.SchedulerMetrics
	invoices  overdueMarker
	reminders dueLister
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.InvoiceSvc == nil || p.ReminderSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		metrics:   obsmetrics.Scheduler(),
		invoices:  p.InvoiceSvc,
		reminders: p.ReminderSvc,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// a deadline is a soft timeout; the next tick picks the work up again
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		s.metrics.IncJobTimeout(name)
	}
	s.metrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name      string
		BatchSize int
		Run       func(context.Context) error
	}{
		{JobMarkOverdue, 0, s.MarkOverdueJob},
		{JobDueReminders, s.cfg.DueBatchSize, s.DueRemindersJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.BatchSize, s.cfg.JobTimeout, job.Run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)

	for {
		if lag := s.clock.Now().Sub(nextRun); lag > 0 {
			s.metrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// MarkOverdueJob persists the overdue status. Reads derive it anyway, so a
// missed tick only costs query efficiency.
func (s *Scheduler) MarkOverdueJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobMarkOverdue, 0)

	updated, err := s.invoices.MarkOverdue(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.mark_overdue.failed", JobMarkOverdue, 0, err)
		return err
	}
	run.AddProcessed(int(updated))
	s.metrics.AddBatchProcessed(JobMarkOverdue, "invoices", int(updated))
	return nil
}

// DueRemindersJob logs pending reminders whose time has come. Sending stays a
// manual action.
func (s *Scheduler) DueRemindersJob(ctx context.Context) error {
	ctx, run, _ := s.ensureJobRun(ctx, JobDueReminders, s.cfg.DueBatchSize)

	due, err := s.reminders.ListDueAll(ctx, s.cfg.DueBatchSize)
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.due_reminders.failed", JobDueReminders, 0, err)
		return err
	}
	now := s.clock.Now()
	for _, r := range due {
		s.logReminderDue(ctx, r, now)
	}
	run.AddProcessed(len(due))
	s.metrics.AddBatchProcessed(JobDueReminders, "reminders", len(due))
	return nil
}
