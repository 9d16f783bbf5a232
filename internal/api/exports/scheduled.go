package exports

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/api/apiutil"
	"github.com/codr1/ShotSpot/internal/api/authz"
	"github.com/codr1/ShotSpot/internal/email"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/store"
)

type scheduledReportRequest struct {
	Name           string   `json:"name" validate:"required,max=200"`
	ReportType     string   `json:"reportType" validate:"required,oneof=game player team competition"`
	TargetID       int64    `json:"targetId" validate:"required,gt=0"`
	Format         string   `json:"format" validate:"omitempty,oneof=csv json"`
	CronExpression string   `json:"cronExpression" validate:"required,max=100"`
	Recipients     []string `json:"recipients" validate:"max=20,dive,email"`
	IsActive       *bool    `json:"isActive"`
}

type ScheduledReportResponse struct {
	ID             int64      `json:"id"`
	CreatedBy      int64      `json:"createdBy"`
	Name           string     `json:"name"`
	ReportType     string     `json:"reportType"`
	TargetID       int64      `json:"targetId"`
	Format         string     `json:"format"`
	CronExpression string     `json:"cronExpression"`
	Recipients     []string   `json:"recipients"`
	IsActive       bool       `json:"isActive"`
	LastRunAt      *time.Time `json:"lastRunAt,omitempty"`
	NextRunAt      *time.Time `json:"nextRunAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func NewScheduledReportResponse(s store.ScheduledReport) ScheduledReportResponse {
	return ScheduledReportResponse{
		ID:             s.ID,
		CreatedBy:      s.CreatedBy,
		Name:           s.Name,
		ReportType:     s.ReportType,
		TargetID:       s.TargetID,
		Format:         s.Format,
		CronExpression: s.CronExpression,
		Recipients:     email.CleanRecipients([]string{s.Recipients}),
		IsActive:       s.IsActive,
		LastRunAt:      store.TimePtr(s.LastRunAt),
		NextRunAt:      store.TimePtr(s.NextRunAt),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// params validates the cron expression and computes the next run. Inactive
// reports have no next run.
func (req scheduledReportRequest) params(now time.Time) (store.ScheduledReportParams, error) {
	expr := strings.TrimSpace(req.CronExpression)
	next, err := reports.NextRun(expr, now)
	if err != nil {
		return store.ScheduledReportParams{}, apiutil.FieldError{Field: "cronExpression", Reason: "must be a five field cron expression"}
	}
	format := req.Format
	if format == "" {
		format = reports.FormatCSV
	}
	active := req.IsActive == nil || *req.IsActive
	nextRun := sql.NullTime{}
	if active {
		nextRun = sql.NullTime{Time: next, Valid: true}
	}
	return store.ScheduledReportParams{
		Name:           strings.TrimSpace(req.Name),
		ReportType:     req.ReportType,
		TargetID:       req.TargetID,
		Format:         format,
		CronExpression: expr,
		Recipients:     strings.Join(email.CleanRecipients(req.Recipients), ","),
		IsActive:       active,
		NextRunAt:      nextRun,
	}, nil
}

// loadOwnedSchedule hides other users' scheduled reports from non-admins.
func loadOwnedSchedule(ctx context.Context, r *http.Request, q *store.Queries, user *authz.AuthUser) (store.ScheduledReport, error) {
	id, err := apiutil.PathID(r, "id", "scheduled report")
	if err != nil {
		return store.ScheduledReport{}, err
	}
	report, err := q.GetScheduledReport(ctx, id)
	if err != nil {
		return store.ScheduledReport{}, err
	}
	if !authz.CanManage(user, report.CreatedBy) {
		return store.ScheduledReport{}, sql.ErrNoRows
	}
	return report, nil
}

func writeScheduledReport(w http.ResponseWriter, r *http.Request, status int, report store.ScheduledReport) {
	if err := apiutil.WriteJSON(w, status, NewScheduledReportResponse(report)); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Int64("scheduled_report_id", report.ID).Msg("Failed to write scheduled report response")
	}
}

// GET /api/scheduled-reports
func HandleListScheduledReports(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}
	owner := store.ValidInt64(user.ID)
	if authz.IsAdmin(user) {
		owner = sql.NullInt64{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	rows, err := db.Queries.ListScheduledReports(ctx, owner)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to list scheduled reports")
		return
	}
	resp := make([]ScheduledReportResponse, 0, len(rows))
	for _, s := range rows {
		resp = append(resp, NewScheduledReportResponse(s))
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, map[string]any{"scheduledReports": resp}); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("Failed to write scheduled reports response")
	}
}

// POST /api/scheduled-reports
func HandleCreateScheduledReport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req scheduledReportRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create scheduled report")
		return
	}
	params, err := req.params(clock.Now())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create scheduled report")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	created, err := db.Queries.CreateScheduledReport(ctx, user.ID, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to create scheduled report")
		return
	}

	logger.Info().Int64("scheduled_report_id", created.ID).Str("cron", created.CronExpression).Msg("Scheduled report created")
	writeScheduledReport(w, r, http.StatusCreated, created)
}

// GET /api/scheduled-reports/{id}
func HandleGetScheduledReport(w http.ResponseWriter, r *http.Request) {
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	report, err := loadOwnedSchedule(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to load scheduled report")
		return
	}
	writeScheduledReport(w, r, http.StatusOK, report)
}

// PUT /api/scheduled-reports/{id}
func HandleUpdateScheduledReport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req scheduledReportRequest
	if err := apiutil.DecodeAndValidate(r, &req); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update scheduled report")
		return
	}
	params, err := req.params(clock.Now())
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update scheduled report")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	current, err := loadOwnedSchedule(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update scheduled report")
		return
	}
	updated, err := db.Queries.UpdateScheduledReport(ctx, current.ID, params)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to update scheduled report")
		return
	}

	logger.Info().Int64("scheduled_report_id", updated.ID).Bool("is_active", updated.IsActive).Msg("Scheduled report updated")
	writeScheduledReport(w, r, http.StatusOK, updated)
}

// DELETE /api/scheduled-reports/{id}. Exports it produced stay available.
func HandleDeleteScheduledReport(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())
	db := loadDB(w, r)
	if db == nil {
		return
	}
	user := requireUser(w, r)
	if user == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), exportsQueryTimeout)
	defer cancel()

	report, err := loadOwnedSchedule(ctx, r, db.Queries, user)
	if err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete scheduled report")
		return
	}
	if err := db.Queries.DeleteScheduledReport(ctx, report.ID); err != nil {
		apiutil.WriteHandlerError(w, r, err, "Failed to delete scheduled report")
		return
	}

	logger.Info().Int64("scheduled_report_id", report.ID).Msg("Scheduled report deleted")
	w.WriteHeader(http.StatusNoContent)
}
