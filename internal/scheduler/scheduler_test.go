package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/codr1/ShotSpot/internal/email"
	"github.com/codr1/ShotSpot/internal/reports"
	"github.com/codr1/ShotSpot/internal/store"
	"github.com/codr1/ShotSpot/internal/testutil"
)

type capturedEmail struct {
	recipient, subject, body string
}

type channelSender struct {
	sent chan capturedEmail
}

func (s *channelSender) Send(_ context.Context, recipient string, msg email.Message) error {
	s.sent <- capturedEmail{recipient: recipient, subject: msg.Subject, body: msg.Body}
	return nil
}

func TestAddJobValidation(t *testing.T) {
	svc, err := New()
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	svc.Start()
	t.Cleanup(func() { _ = svc.Stop() })

	if _, err := svc.AddJob(" ", "* * * * *", func() {}); !errors.Is(err, ErrEmptyJobName) {
		t.Fatalf("expected ErrEmptyJobName, got %v", err)
	}
	if _, err := svc.AddJob("job", "", func() {}); !errors.Is(err, ErrEmptyCronExpr) {
		t.Fatalf("expected ErrEmptyCronExpr, got %v", err)
	}
	if _, err := svc.AddJob("job", "not a cron", func() {}); err == nil {
		t.Fatalf("expected invalid cron error")
	}
	if _, err := svc.AddJob("job", "*/5 * * * *", func() {}); err != nil {
		t.Fatalf("add job: %v", err)
	}

	var nilSvc *Service
	if _, err := nilSvc.AddJob("job", "* * * * *", func() {}); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized, got %v", err)
	}
}

func TestRunDueGeneratesEmailsAndAdvances(t *testing.T) {
	database := testutil.NewTestDB(t)
	q := database.Queries
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 16, 8, 0, 30, 0, time.UTC))

	home := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "KC Dijlevallei").ID, "Dijlevallei 1")
	away := testutil.SeedTeam(t, q, testutil.SeedClub(t, q, "Boeckenberg KC").ID, "Boeckenberg 1")
	game := testutil.SeedGame(t, q, home, away)
	coach := testutil.SeedUser(t, q, "coach", "coach")

	due := clock.Now().Add(-time.Minute)
	scheduled, err := q.CreateScheduledReport(ctx, coach.ID, store.ScheduledReportParams{
		Name:           "Weekly game sheet",
		ReportType:     reports.TypeGame,
		TargetID:       game.ID,
		Format:         reports.FormatCSV,
		CronExpression: "0 8 * * 1",
		Recipients:     "Coach@Example.com, staff@example.com",
		IsActive:       true,
		NextRunAt:      sql.NullTime{Time: due, Valid: true},
	})
	if err != nil {
		t.Fatalf("create scheduled report: %v", err)
	}

	sender := &channelSender{sent: make(chan capturedEmail, 4)}
	runner := &ReportRunner{
		Queries:  q,
		Exporter: reports.NewExporter(q, reports.NewBuilder(q, clock)),
		Sender:   sender,
		BaseURL:  "https://shotspot.example.com/",
		Clock:    clock,
	}

	ran, err := runner.RunDue(ctx)
	if err != nil {
		t.Fatalf("run due: %v", err)
	}
	if ran != 1 {
		t.Fatalf("ran: got %d want 1", ran)
	}

	recipients := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case msg := <-sender.sent:
			recipients[msg.recipient] = true
			if !strings.Contains(msg.body, "https://shotspot.example.com/api/exports/") {
				t.Fatalf("missing download link: %s", msg.body)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for email %d", i+1)
		}
	}
	if !recipients["coach@example.com"] || !recipients["staff@example.com"] {
		t.Fatalf("unexpected recipients: %v", recipients)
	}

	updated, err := q.GetScheduledReport(ctx, scheduled.ID)
	if err != nil {
		t.Fatalf("get scheduled report: %v", err)
	}
	wantNext := time.Date(2026, 3, 23, 8, 0, 0, 0, time.UTC)
	if !updated.NextRunAt.Valid || !updated.NextRunAt.Time.Equal(wantNext) {
		t.Fatalf("next run: got %v want %v", updated.NextRunAt, wantNext)
	}

	exports, err := q.ListExports(ctx, store.ValidInt64(coach.ID), 10)
	if err != nil {
		t.Fatalf("list exports: %v", err)
	}
	if len(exports) != 1 || exports[0].Status != "completed" {
		t.Fatalf("unexpected exports: %+v", exports)
	}

	ran, err = runner.RunDue(ctx)
	if err != nil || ran != 0 {
		t.Fatalf("second run: got %d, %v", ran, err)
	}
}

func TestDownloadURL(t *testing.T) {
	if got := DownloadURL("http://localhost:8080/", "abc"); got != "http://localhost:8080/api/exports/abc/download" {
		t.Fatalf("got %q", got)
	}
}
