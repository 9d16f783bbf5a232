// internal/store/exports.go
package store

import (
	"context"
	"database/sql"
	"time"
)

const exportSettingsColumns = `user_id, default_format, include_shots, include_events, include_substitutions, anonymize_players, updated_at`

func scanExportSettings(row rowScanner) (ExportSettings, error) {
	var s ExportSettings
	err := row.Scan(
		&s.UserID,
		&s.DefaultFormat,
		&s.IncludeShots,
		&s.IncludeEvents,
		&s.IncludeSubstitutions,
		&s.AnonymizePlayers,
		&s.UpdatedAt,
	)
	return s, err
}

const getExportSettings = `SELECT ` + exportSettingsColumns + ` FROM export_settings WHERE user_id = ?`

func (q *Queries) GetExportSettings(ctx context.Context, userID int64) (ExportSettings, error) {
	return scanExportSettings(q.db.QueryRowContext(ctx, getExportSettings, userID))
}

const upsertExportSettings = `INSERT INTO export_settings (user_id, default_format, include_shots, include_events, include_substitutions, anonymize_players)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    default_format = excluded.default_format,
    include_shots = excluded.include_shots,
    include_events = excluded.include_events,
    include_substitutions = excluded.include_substitutions,
    anonymize_players = excluded.anonymize_players,
    updated_at = CURRENT_TIMESTAMP
RETURNING ` + exportSettingsColumns

func (q *Queries) UpsertExportSettings(ctx context.Context, s ExportSettings) (ExportSettings, error) {
	row := q.db.QueryRowContext(ctx, upsertExportSettings,
		s.UserID,
		s.DefaultFormat,
		s.IncludeShots,
		s.IncludeEvents,
		s.IncludeSubstitutions,
		s.AnonymizePlayers,
	)
	return scanExportSettings(row)
}

// Listing leaves the payload out; downloads go through GetExportByPublicID.
const exportSummaryColumns = `id, public_id, user_id, scheduled_report_id, report_type, target_id, format, status, file_name,
NULL, size_bytes, error_message, created_at, completed_at`

const exportColumns = `id, public_id, user_id, scheduled_report_id, report_type, target_id, format, status, file_name,
content, size_bytes, error_message, created_at, completed_at`

func scanExport(row rowScanner) (Export, error) {
	var e Export
	err := row.Scan(
		&e.ID,
		&e.PublicID,
		&e.UserID,
		&e.ScheduledReportID,
		&e.ReportType,
		&e.TargetID,
		&e.Format,
		&e.Status,
		&e.FileName,
		&e.Content,
		&e.SizeBytes,
		&e.ErrorMessage,
		&e.CreatedAt,
		&e.CompletedAt,
	)
	return e, err
}

type CreateExportParams struct {
	PublicID          string
	UserID            sql.NullInt64
	ScheduledReportID sql.NullInt64
	ReportType        string
	TargetID          int64
	Format            string
}

const createExport = `INSERT INTO exports (public_id, user_id, scheduled_report_id, report_type, target_id, format)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING ` + exportSummaryColumns

func (q *Queries) CreateExport(ctx context.Context, arg CreateExportParams) (Export, error) {
	row := q.db.QueryRowContext(ctx, createExport,
		arg.PublicID,
		arg.UserID,
		arg.ScheduledReportID,
		arg.ReportType,
		arg.TargetID,
		arg.Format,
	)
	return scanExport(row)
}

const completeExport = `UPDATE exports
SET status = 'completed', file_name = ?, content = ?, size_bytes = ?, completed_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + exportSummaryColumns

func (q *Queries) CompleteExport(ctx context.Context, id int64, fileName string, content []byte) (Export, error) {
	return scanExport(q.db.QueryRowContext(ctx, completeExport, fileName, content, int64(len(content)), id))
}

const failExport = `UPDATE exports
SET status = 'failed', error_message = ?, completed_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + exportSummaryColumns

func (q *Queries) FailExport(ctx context.Context, id int64, message string) (Export, error) {
	return scanExport(q.db.QueryRowContext(ctx, failExport, message, id))
}

const getExportByPublicID = `SELECT ` + exportColumns + ` FROM exports WHERE public_id = ?`

func (q *Queries) GetExportByPublicID(ctx context.Context, publicID string) (Export, error) {
	return scanExport(q.db.QueryRowContext(ctx, getExportByPublicID, publicID))
}

const listExports = `SELECT ` + exportSummaryColumns + ` FROM exports
WHERE (?1 IS NULL OR user_id = ?1)
ORDER BY created_at DESC, id DESC
LIMIT ?2`

// ListExports returns export metadata, optionally limited to one owner.
func (q *Queries) ListExports(ctx context.Context, userID sql.NullInt64, limit int64) ([]Export, error) {
	return query(ctx, q.db, listExports, scanExport, userID, limit)
}

const deleteExport = `DELETE FROM exports WHERE public_id = ?`

func (q *Queries) DeleteExport(ctx context.Context, publicID string) error {
	result, err := q.db.ExecContext(ctx, deleteExport, publicID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const scheduledReportColumns = `id, created_by, name, report_type, target_id, format, cron_expression, recipients, is_active,
last_run_at, next_run_at, created_at, updated_at`

func scanScheduledReport(row rowScanner) (ScheduledReport, error) {
	var r ScheduledReport
	err := row.Scan(
		&r.ID,
		&r.CreatedBy,
		&r.Name,
		&r.ReportType,
		&r.TargetID,
		&r.Format,
		&r.CronExpression,
		&r.Recipients,
		&r.IsActive,
		&r.LastRunAt,
		&r.NextRunAt,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	return r, err
}

type ScheduledReportParams struct {
	Name           string
	ReportType     string
	TargetID       int64
	Format         string
	CronExpression string
	Recipients     string
	IsActive       bool
	NextRunAt      sql.NullTime
}

const createScheduledReport = `INSERT INTO scheduled_reports (created_by, name, report_type, target_id, format, cron_expression, recipients, is_active, next_run_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + scheduledReportColumns

func (q *Queries) CreateScheduledReport(ctx context.Context, createdBy int64, arg ScheduledReportParams) (ScheduledReport, error) {
	row := q.db.QueryRowContext(ctx, createScheduledReport,
		createdBy,
		arg.Name,
		arg.ReportType,
		arg.TargetID,
		arg.Format,
		arg.CronExpression,
		arg.Recipients,
		arg.IsActive,
		arg.NextRunAt,
	)
	return scanScheduledReport(row)
}

const getScheduledReport = `SELECT ` + scheduledReportColumns + ` FROM scheduled_reports WHERE id = ?`

func (q *Queries) GetScheduledReport(ctx context.Context, id int64) (ScheduledReport, error) {
	return scanScheduledReport(q.db.QueryRowContext(ctx, getScheduledReport, id))
}

const listScheduledReports = `SELECT ` + scheduledReportColumns + ` FROM scheduled_reports
WHERE (?1 IS NULL OR created_by = ?1)
ORDER BY name, id`

func (q *Queries) ListScheduledReports(ctx context.Context, createdBy sql.NullInt64) ([]ScheduledReport, error) {
	return query(ctx, q.db, listScheduledReports, scanScheduledReport, createdBy)
}

const updateScheduledReport = `UPDATE scheduled_reports
SET name = ?, report_type = ?, target_id = ?, format = ?, cron_expression = ?, recipients = ?, is_active = ?, next_run_at = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING ` + scheduledReportColumns

func (q *Queries) UpdateScheduledReport(ctx context.Context, id int64, arg ScheduledReportParams) (ScheduledReport, error) {
	row := q.db.QueryRowContext(ctx, updateScheduledReport,
		arg.Name,
		arg.ReportType,
		arg.TargetID,
		arg.Format,
		arg.CronExpression,
		arg.Recipients,
		arg.IsActive,
		arg.NextRunAt,
		id,
	)
	return scanScheduledReport(row)
}

const deleteScheduledReport = `DELETE FROM scheduled_reports WHERE id = ?`

func (q *Queries) DeleteScheduledReport(ctx context.Context, id int64) error {
	result, err := q.db.ExecContext(ctx, deleteScheduledReport, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const listDueScheduledReports = `SELECT ` + scheduledReportColumns + ` FROM scheduled_reports
WHERE is_active = 1 AND next_run_at IS NOT NULL AND next_run_at <= ?
ORDER BY next_run_at, id`

func (q *Queries) ListDueScheduledReports(ctx context.Context, now time.Time) ([]ScheduledReport, error) {
	return query(ctx, q.db, listDueScheduledReports, scanScheduledReport, now.UTC())
}

const markScheduledReportRun = `UPDATE scheduled_reports
SET last_run_at = ?, next_run_at = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?`

func (q *Queries) MarkScheduledReportRun(ctx context.Context, id int64, ranAt time.Time, nextRunAt sql.NullTime) error {
	_, err := q.db.ExecContext(ctx, markScheduledReportRun, ranAt.UTC(), nextRunAt, id)
	return err
}
