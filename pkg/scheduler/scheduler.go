package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"restockbot/pkg/config"
	"restockbot/pkg/logger"
	"restockbot/pkg/purchase"
	"restockbot/pkg/tracker"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job statuses
const (
	JobStatusScheduled = "scheduled"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

var ErrJobNotFound = fmt.Errorf("job not found")

// Notifier receives the rendered summary report.
type Notifier interface {
	Notify(title string, lines ...string)
}

// ScheduledJob represents a scheduled job
type ScheduledJob struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Cron    string    `json:"cron"`
	NextRun time.Time `json:"next_run"`
	LastRun time.Time `json:"last_run"`
	Status  string    `json:"status"`
	EntryID cron.EntryID `json:"-"`

	run func() error
}

// ReportScheduler periodically pushes an activity summary to the operator,
// so a bot that found nothing for days is still visibly alive.
type ReportScheduler struct {
	cron      *cron.Cron
	config    *config.SchedulerConfig
	registry  *tracker.Registry
	purchases *purchase.Orchestrator
	notifier  Notifier

	jobs      map[string]*ScheduledJob
	jobsMutex sync.RWMutex
}

func NewReportScheduler(cfg *config.SchedulerConfig, registry *tracker.Registry, purchases *purchase.Orchestrator, notifier Notifier) (*ReportScheduler, error) {
	logger.Info("Initializing report scheduler")

	s := &ReportScheduler{
		cron: cron.New(
			cron.WithChain(cron.Recover(cron.DefaultLogger)),
		),
		config:    cfg,
		registry:  registry,
		purchases: purchases,
		notifier:  notifier,
		jobs:      make(map[string]*ScheduledJob),
	}

	spec := cfg.SummaryCron
	if spec == "" {
		spec = "0 9 * * *"
	}
	if err := s.AddJob(&ScheduledJob{
		Name: "daily_summary_report",
		Cron: spec,
		run:  s.sendSummaryReport,
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule summary report: %w", err)
	}

	return s, nil
}

// Start starts the scheduler and blocks until the context is cancelled.
func (s *ReportScheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Info("Report scheduler disabled")
		return nil
	}

	logger.Info("Starting report scheduler")
	s.cron.Start()

	s.jobsMutex.Lock()
	for _, job := range s.jobs {
		if err := s.updateJobNextRunTime(job); err != nil {
			logger.Warn("Failed to update next run time after start",
				zap.String("job_name", job.Name),
				zap.Error(err))
		}
	}
	s.jobsMutex.Unlock()

	s.logScheduledJobs()

	<-ctx.Done()
	logger.Info("Report scheduler context cancelled")
	return nil
}

// Shutdown gracefully shuts down the scheduler.
func (s *ReportScheduler) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down report scheduler")

	cronCtx := s.cron.Stop()

	select {
	case <-cronCtx.Done():
		logger.Info("All scheduled jobs completed")
	case <-ctx.Done():
		logger.Warn("Scheduler shutdown timeout, some jobs may still be running")
	}

	return nil
}

// AddJob adds a new scheduled job
func (s *ReportScheduler) AddJob(job *ScheduledJob) error {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	entryID, err := s.cron.AddFunc(job.Cron, s.createJobFunction(job))
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	job.EntryID = entryID
	job.Status = JobStatusScheduled

	if err := s.updateJobNextRunTime(job); err != nil {
		logger.Warn("Failed to update next run time", zap.String("job_name", job.Name), zap.Error(err))
	}

	s.jobs[job.ID] = job

	logger.Info("Added scheduled job",
		zap.String("job_id", job.ID),
		zap.String("job_name", job.Name),
		zap.String("cron", job.Cron),
		zap.Time("next_run", job.NextRun),
	)

	return nil
}

// GetJobs returns all scheduled jobs
func (s *ReportScheduler) GetJobs() []*ScheduledJob {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	jobs := make([]*ScheduledJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		s.updateJobNextRunTime(job)
		jobs = append(jobs, job)
	}

	return jobs
}

// GetStatus returns scheduler status
func (s *ReportScheduler) GetStatus() map[string]interface{} {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	return map[string]interface{}{
		"running":   s.config.Enabled,
		"job_count": len(s.jobs),
		"entries":   len(s.cron.Entries()),
		"timestamp": time.Now().UTC(),
	}
}

// sendSummaryReport renders a per-tracker activity digest and pushes it to
// the operator.
func (s *ReportScheduler) sendSummaryReport() error {
	stats := s.registry.Snapshot()
	purchases := s.purchases.Snapshot()

	lines := make([]string, 0, len(stats)+2)
	for _, st := range stats {
		state := "running"
		if st.Stopped {
			state = "stopped"
		}
		lines = append(lines, fmt.Sprintf("%s: %d polls, %d failures, %d new items, %d matches (%s)",
			st.Name, st.Cycles, st.Failures, st.NewItems, st.Matches, state))
	}
	lines = append(lines, fmt.Sprintf("Purchases: %d attempted, %d completed",
		purchases.Attempts, purchases.Successes))
	lines = append(lines, fmt.Sprintf("As of %s", time.Now().Format("2006-01-02 15:04:05")))

	s.notifier.Notify("Daily tracker summary:", lines...)
	return nil
}

// createJobFunction creates a function to execute for a scheduled job
func (s *ReportScheduler) createJobFunction(job *ScheduledJob) func() {
	return func() {
		logger.Info("Executing scheduled job",
			zap.String("job_id", job.ID),
			zap.String("job_name", job.Name))

		s.updateJobStatus(job, JobStatusRunning)
		s.updateJobLastRun(job, time.Now())

		if err := job.run(); err != nil {
			logger.Error("Scheduled job failed", zap.String("job_name", job.Name), zap.Error(err))
			s.updateJobStatus(job, JobStatusFailed)
			return
		}

		logger.Info("Scheduled job completed successfully", zap.String("job_name", job.Name))
		s.updateJobStatus(job, JobStatusCompleted)
	}
}

// logScheduledJobs logs information about all scheduled jobs
func (s *ReportScheduler) logScheduledJobs() {
	s.jobsMutex.RLock()
	defer s.jobsMutex.RUnlock()

	if len(s.jobs) == 0 {
		logger.Info("No scheduled jobs configured")
		return
	}

	logger.Info("Active scheduled jobs:")
	for _, job := range s.jobs {
		logger.Info("Scheduled job",
			zap.String("job_name", job.Name),
			zap.String("cron", job.Cron),
			zap.Time("next_run", job.NextRun),
			zap.String("status", job.Status),
		)
	}
}

// updateJobNextRunTime updates the next run time for a job
func (s *ReportScheduler) updateJobNextRunTime(job *ScheduledJob) error {
	for _, entry := range s.cron.Entries() {
		if entry.ID == job.EntryID {
			job.NextRun = entry.Next
			return nil
		}
	}

	if schedule, err := cron.ParseStandard(job.Cron); err == nil {
		job.NextRun = schedule.Next(time.Now())
		return nil
	} else {
		return fmt.Errorf("failed to parse cron expression %s: %w", job.Cron, err)
	}
}

func (s *ReportScheduler) updateJobStatus(job *ScheduledJob, status string) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	job.Status = status
}

func (s *ReportScheduler) updateJobLastRun(job *ScheduledJob, lastRun time.Time) {
	s.jobsMutex.Lock()
	defer s.jobsMutex.Unlock()
	job.LastRun = lastRun
}
