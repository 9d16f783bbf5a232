package email

import (
	"fmt"
	"strings"
	"time"
)

type ReportReadyDetails struct {
	ReportName  string
	ReportType  string
	Format      string
	GeneratedAt time.Time
	DownloadURL string
	SizeBytes   int64
}

func BuildReportReadyEmail(details ReportReadyDetails) Message {
	name := strings.TrimSpace(details.ReportName)
	if name == "" {
		name = fmt.Sprintf("%s report", details.ReportType)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Your scheduled report \"%s\" is ready.\n\n", name)
	fmt.Fprintf(&body, "Type: %s\n", details.ReportType)
	fmt.Fprintf(&body, "Format: %s\n", strings.ToUpper(details.Format))
	fmt.Fprintf(&body, "Generated: %s\n", details.GeneratedAt.UTC().Format("Monday, Jan 2, 2006 15:04 MST"))
	fmt.Fprintf(&body, "Size: %d bytes\n\n", details.SizeBytes)
	fmt.Fprintf(&body, "Download: %s\n", details.DownloadURL)

	return Message{
		Category: CategoryReport,
		Subject:  fmt.Sprintf("ShotSpot report ready: %s", name),
		Body:     body.String(),
	}
}

type AlertDetails struct {
	Source     string
	Message    string
	Occurrence time.Time
	Suppressed int
	RequestID  string
}

func BuildAlertEmail(details AlertDetails) Message {
	var body strings.Builder
	fmt.Fprintf(&body, "An error was reported by %s.\n\n", details.Source)
	fmt.Fprintf(&body, "Time: %s\n", details.Occurrence.UTC().Format(time.RFC3339))
	if details.RequestID != "" {
		fmt.Fprintf(&body, "Request ID: %s\n", details.RequestID)
	}
	fmt.Fprintf(&body, "Error: %s\n", details.Message)
	if details.Suppressed > 0 {
		fmt.Fprintf(&body, "\n%d similar alerts were suppressed during the cooldown.\n", details.Suppressed)
	}

	return Message{
		Category: CategoryAlert,
		Subject:  fmt.Sprintf("[ShotSpot] %s error", details.Source),
		Body:     body.String(),
	}
}
