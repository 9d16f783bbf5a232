package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/email"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/store"
)

const reportJobTimeout = 5 * time.Minute

// ReportRunner generates scheduled reports that are due and mails a download
// link to their recipients.
type ReportRunner struct {
	Queries  *store.Queries
	Exporter *reports.Exporter
	Sender   email.EmailSender
	BaseURL  string
	Clock    clockwork.Clock
}

// RegisterReportJob polls for due scheduled reports on cronExpr.
func RegisterReportJob(runner *ReportRunner, cronExpr string) error {
	if runner == nil || runner.Queries == nil || runner.Exporter == nil {
		return fmt.Errorf("report job requires queries and exporter")
	}

	jobName := "scheduled_reports"
	jobLogger := log.With().
		Str("component", "scheduled_reports_job").
		Str("job_name", jobName).
		Str("cron", cronExpr).
		Logger()

	_, err := AddJob(jobName, cronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportJobTimeout)
		defer cancel()
		ctx = jobLogger.WithContext(ctx)

		ran, err := runner.RunDue(ctx)
		if err != nil {
			jobLogger.Error().Err(err).Msg("Failed to run scheduled reports")
			return
		}
		if ran > 0 {
			jobLogger.Info().Int("reports", ran).Msg("Scheduled reports generated")
		}
	})
	if err != nil {
		return fmt.Errorf("add scheduled report job: %w", err)
	}
	return nil
}

// RunDue processes every active report whose next run has passed and returns
// how many were attempted. A failing report is still advanced to its next run.
func (r *ReportRunner) RunDue(ctx context.Context) (int, error) {
	clock := r.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now().UTC()

	due, err := r.Queries.ListDueScheduledReports(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due reports: %w", err)
	}

	logger := log.Ctx(ctx)
	for _, report := range due {
		reportLogger := logger.With().Int64("scheduled_report_id", report.ID).Logger()
		reportCtx := reportLogger.WithContext(ctx)

		r.runOne(reportCtx, report, &reportLogger)

		next := sql.NullTime{}
		if at, err := reports.NextRun(report.CronExpression, now); err != nil {
			reportLogger.Error().Err(err).Msg("Scheduled report has an invalid cron expression")
		} else {
			next = sql.NullTime{Time: at, Valid: true}
		}
		if err := r.Queries.MarkScheduledReportRun(reportCtx, report.ID, now, next); err != nil {
			reportLogger.Error().Err(err).Msg("Failed to advance scheduled report")
		}
	}
	return len(due), nil
}

func (r *ReportRunner) runOne(ctx context.Context, report store.ScheduledReport, logger *zerolog.Logger) {
	opts := reports.DefaultOptions()
	settings, err := r.Queries.GetExportSettings(ctx, report.CreatedBy)
	switch {
	case err == nil:
		opts = reports.OptionsFromSettings(settings)
	case !errors.Is(err, sql.ErrNoRows):
		logger.Warn().Err(err).Msg("Failed to load export settings, using defaults")
	}

	export, err := r.Exporter.Generate(ctx, reports.ExportRequest{
		UserID:            store.ValidInt64(report.CreatedBy),
		ScheduledReportID: store.ValidInt64(report.ID),
		ReportType:        report.ReportType,
		TargetID:          report.TargetID,
		Format:            report.Format,
		Options:           opts,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Scheduled report generation failed")
		return
	}

	recipients := email.CleanRecipients([]string{report.Recipients})
	if r.Sender == nil || len(recipients) == 0 {
		logger.Debug().Msg("Scheduled report stored without email delivery")
		return
	}
	msg := email.BuildReportReadyEmail(email.ReportReadyDetails{
		ReportName:  report.Name,
		ReportType:  report.ReportType,
		Format:      report.Format,
		GeneratedAt: export.CreatedAt,
		DownloadURL: DownloadURL(r.BaseURL, export.PublicID),
		SizeBytes:   export.SizeBytes,
	})
	email.SendDetached(ctx, r.Sender, recipients, msg, logger)
}

// DownloadURL is the authenticated download link for an export.
func DownloadURL(baseURL, publicID string) string {
	return strings.TrimRight(baseURL, "/") + "/api/exports/" + publicID + "/download"
}
