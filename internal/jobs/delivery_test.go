package jobs

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/household-budget/internal/domain"
	"github.com/dvloznov/household-budget/internal/notionsync"
	"github.com/dvloznov/household-budget/internal/report"
)

// MockReporter is a mock implementation of Reporter for testing
type MockReporter struct {
	SummaryFunc    func(window domain.DateRange) report.Summary
	SendReportFunc func(ctx context.Context, window domain.DateRange) (report.Summary, error)
}

func (m *MockReporter) Summary(window domain.DateRange) report.Summary {
	if m.SummaryFunc != nil {
		return m.SummaryFunc(window)
	}
	return report.Summary{Window: window}
}

func (m *MockReporter) SendReport(ctx context.Context, window domain.DateRange) (report.Summary, error) {
	if m.SendReportFunc != nil {
		return m.SendReportFunc(ctx, window)
	}
	return report.Summary{Window: window}, nil
}

func TestDeliveryJob_Window(t *testing.T) {
	j := &DeliveryJob{Start: "2024-04-01", End: "2024-04-30"}
	w, err := j.Window()
	if err != nil {
		t.Fatalf("Window() error = %v", err)
	}
	if w.Start != (civil.Date{Year: 2024, Month: 4, Day: 1}) || w.End.Day != 30 {
		t.Errorf("Window() = %v", w)
	}

	if w, _ := (&DeliveryJob{}).Window(); !w.IsZero() {
		t.Errorf("empty job window = %v, want open", w)
	}
	if _, err := (&DeliveryJob{End: "30/04/2024"}).Window(); !errors.Is(err, domain.ErrUnparsableDate) {
		t.Errorf("Window() error = %v, want ErrUnparsableDate", err)
	}
}

func TestDeliveryHandler(t *testing.T) {
	ctx := context.Background()

	var sentWindow domain.DateRange
	rep := &MockReporter{SendReportFunc: func(_ context.Context, w domain.DateRange) (report.Summary, error) {
		sentWindow = w
		return report.Summary{}, nil
	}}

	var exportedDryRun bool
	export := func(_ context.Context, _ report.Summary, dryRun bool) (notionsync.ExportResult, error) {
		exportedDryRun = dryRun
		return notionsync.ExportResult{Created: 4}, nil
	}

	h := NewDeliveryHandler(rep, export)

	if err := h(ctx, &DeliveryJob{Type: JobTypeSendReport, Start: "2024-04-01"}); err != nil {
		t.Fatalf("send_report error = %v", err)
	}
	if sentWindow.Start.Day != 1 || sentWindow.End.IsValid() {
		t.Errorf("report window = %v", sentWindow)
	}

	if err := h(ctx, &DeliveryJob{Type: JobTypeExportNotion, DryRun: true}); err != nil {
		t.Fatalf("export_notion error = %v", err)
	}
	if !exportedDryRun {
		t.Error("dry run flag not passed to exporter")
	}

	if err := h(ctx, &DeliveryJob{Type: "bogus"}); err == nil {
		t.Error("unknown job type should fail")
	}
}

func TestDeliveryHandler_Failures(t *testing.T) {
	ctx := context.Background()
	rep := &MockReporter{SendReportFunc: func(context.Context, domain.DateRange) (report.Summary, error) {
		return report.Summary{}, domain.ErrNotificationDeliveryFailed
	}}

	h := NewDeliveryHandler(rep, nil)
	if err := h(ctx, &DeliveryJob{Type: JobTypeSendReport}); !errors.Is(err, domain.ErrNotificationDeliveryFailed) {
		t.Errorf("send_report error = %v", err)
	}
	if err := h(ctx, &DeliveryJob{Type: JobTypeExportNotion}); err == nil {
		t.Error("export without Notion should fail")
	}

	partial := func(context.Context, report.Summary, bool) (notionsync.ExportResult, error) {
		return notionsync.ExportResult{Created: 2, Failed: 1}, nil
	}
	h = NewDeliveryHandler(rep, partial)
	if err := h(ctx, &DeliveryJob{Type: JobTypeExportNotion}); err == nil {
		t.Error("partial export should fail so it is retried")
	}
}
