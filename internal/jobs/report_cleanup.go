// File: internal/jobs/report_cleanup.go
package jobs

import (
	"context"
)

type OrphanCleaner interface {
	CleanupOrphans(ctx context.Context) (int64, error)
}

// ReportCleanupJob deletes reports whose order or product is gone.
type ReportCleanupJob struct {
	reports OrphanCleaner
}

func NewReportCleanupJob(reports OrphanCleaner) *ReportCleanupJob {
	return &ReportCleanupJob{reports: reports}
}

func (j *ReportCleanupJob) Name() string { return "report_cleanup" }

func (j *ReportCleanupJob) Run(ctx context.Context) error {
	_, err := j.reports.CleanupOrphans(ctx)
	return err
}
