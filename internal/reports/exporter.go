package reports

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/codr1/ShotSpot/internal/store"
)

const publicIDLength = 21

// ExportRequest describes one report to generate and persist.
type ExportRequest struct {
	UserID            sql.NullInt64
	ScheduledReportID sql.NullInt64
	ReportType        string
	TargetID          int64
	Format            string
	Options           Options
}

// Exporter generates reports and stores the rendered bytes as exports.
type Exporter struct {
	q       *store.Queries
	builder *Builder
}

func NewExporter(q *store.Queries, builder *Builder) *Exporter {
	return &Exporter{q: q, builder: builder}
}

// Generate records a pending export, builds and renders the report and marks
// the export completed. A failed build is stored on the export row and also
// returned, with the failed export, so callers can map the cause.
func (e *Exporter) Generate(ctx context.Context, req ExportRequest) (store.Export, error) {
	if !ValidType(req.ReportType) {
		return store.Export{}, fmt.Errorf("%w: %q", ErrUnknownType, req.ReportType)
	}
	if !ValidFormat(req.Format) {
		return store.Export{}, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}

	publicID, err := gonanoid.New(publicIDLength)
	if err != nil {
		return store.Export{}, fmt.Errorf("generate export id: %w", err)
	}

	export, err := e.q.CreateExport(ctx, store.CreateExportParams{
		PublicID:          publicID,
		UserID:            req.UserID,
		ScheduledReportID: req.ScheduledReportID,
		ReportType:        req.ReportType,
		TargetID:          req.TargetID,
		Format:            req.Format,
	})
	if err != nil {
		return store.Export{}, fmt.Errorf("create export: %w", err)
	}

	logger := log.Ctx(ctx).With().
		Str("export_id", export.PublicID).
		Str("report_type", req.ReportType).
		Int64("target_id", req.TargetID).
		Logger()

	content, genErr := e.render(ctx, req)
	if genErr != nil {
		failed, err := e.q.FailExport(ctx, export.ID, failureMessage(genErr))
		if err != nil {
			logger.Error().Err(err).Msg("Failed to record export failure")
			return export, genErr
		}
		logger.Warn().Err(genErr).Msg("Export failed")
		return failed, genErr
	}

	fileName := FileName(req.ReportType, req.TargetID, req.Format, e.builder.clock.Now())
	completed, err := e.q.CompleteExport(ctx, export.ID, fileName, content)
	if err != nil {
		return export, fmt.Errorf("complete export: %w", err)
	}
	logger.Info().Int64("size_bytes", completed.SizeBytes).Msg("Export completed")
	return completed, nil
}

func (e *Exporter) render(ctx context.Context, req ExportRequest) ([]byte, error) {
	report, err := e.builder.Build(ctx, req.ReportType, req.TargetID, req.Options)
	if err != nil {
		return nil, err
	}
	return Render(report, req.Format)
}

func failureMessage(err error) string {
	if errors.Is(err, sql.ErrNoRows) {
		return "report target not found"
	}
	return err.Error()
}

// OptionsFromSettings maps stored export settings to report options.
func OptionsFromSettings(s store.ExportSettings) Options {
	return Options{
		Anonymize:            s.AnonymizePlayers,
		IncludeShots:         s.IncludeShots,
		IncludeEvents:        s.IncludeEvents,
		IncludeSubstitutions: s.IncludeSubstitutions,
	}
}
