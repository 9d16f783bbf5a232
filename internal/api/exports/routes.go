package exports

import (
	"net/http"

	"github.com/codr1/ShotSpot/internal/api/apidoc"
)

type exportList struct {
	Exports []ExportResponse `json:"exports"`
}

type scheduledReportList struct {
	ScheduledReports []ScheduledReportResponse `json:"scheduledReports"`
}

func Routes() []apidoc.Route {
	return []apidoc.Route{
		{Method: http.MethodGet, Path: "/api/exports/settings", Summary: "Export settings", Access: apidoc.Authenticated,
			Handler: HandleGetSettings, Response: SettingsResponse{}},
		{Method: http.MethodPut, Path: "/api/exports/settings", Summary: "Save export settings", Access: apidoc.Authenticated,
			Handler: HandleUpdateSettings, Request: settingsRequest{}, Response: SettingsResponse{}},
		{Method: http.MethodPost, Path: "/api/exports", Summary: "Generate report export", Access: apidoc.Authenticated,
			Handler: HandleCreateExport, Request: exportRequest{}, Response: ExportResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/exports", Summary: "List exports", Access: apidoc.Authenticated,
			Handler: HandleListExports, Response: exportList{}},
		{Method: http.MethodGet, Path: "/api/exports/{public_id}", Summary: "Get export", Access: apidoc.Authenticated,
			Handler: HandleGetExport, Response: ExportResponse{}},
		{Method: http.MethodGet, Path: "/api/exports/{public_id}/download", Summary: "Download export", Access: apidoc.Authenticated,
			Handler: HandleDownloadExport, ContentType: "application/octet-stream"},
		{Method: http.MethodDelete, Path: "/api/exports/{public_id}", Summary: "Delete export", Access: apidoc.Authenticated,
			Handler: HandleDeleteExport, Status: http.StatusNoContent},
		{Method: http.MethodGet, Path: "/api/scheduled-reports", Summary: "List scheduled reports", Access: apidoc.Coach,
			Handler: HandleListScheduledReports, Response: scheduledReportList{}},
		{Method: http.MethodPost, Path: "/api/scheduled-reports", Summary: "Create scheduled report", Access: apidoc.Coach,
			Handler: HandleCreateScheduledReport, Request: scheduledReportRequest{}, Response: ScheduledReportResponse{}, Status: http.StatusCreated},
		{Method: http.MethodGet, Path: "/api/scheduled-reports/{id}", Summary: "Get scheduled report", Access: apidoc.Coach,
			Handler: HandleGetScheduledReport, Response: ScheduledReportResponse{}},
		{Method: http.MethodPut, Path: "/api/scheduled-reports/{id}", Summary: "Update scheduled report", Access: apidoc.Coach,
			Handler: HandleUpdateScheduledReport, Request: scheduledReportRequest{}, Response: ScheduledReportResponse{}},
		{Method: http.MethodDelete, Path: "/api/scheduled-reports/{id}", Summary: "Delete scheduled report", Access: apidoc.Coach,
			Handler: HandleDeleteScheduledReport, Status: http.StatusNoContent},
	}
}
