package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hvmc/store-backend/internal/orders"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// fakeSource filters a fixed row set by the requested range.
type fakeSource struct {
	rows []orders.ExportRow
	err  error
}

func (f *fakeSource) ExportRows(_ context.Context, start, end time.Time) ([]orders.ExportRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var result []orders.ExportRow
	for _, row := range f.rows {
		if !row.CreatedAt.Before(start) && !row.CreatedAt.After(end) {
			result = append(result, row)
		}
	}
	return result, nil
}

// fakeClient records the remote calls the exporter makes.
type fakeClient struct {
	createErr error
	writeErr  error
	shareErr  error

	createdTitle string
	writtenID    string
	writtenRange string
	writtenRows  [][]interface{}
	sharedID     string
	sharedEmail  string
}

func (f *fakeClient) CreateSpreadsheet(_ context.Context, title string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.createdTitle = title
	return "sheet-123", nil
}

func (f *fakeClient) WriteRange(_ context.Context, spreadsheetID, rangeRef string, rows [][]interface{}) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writtenID = spreadsheetID
	f.writtenRange = rangeRef
	f.writtenRows = rows
	return nil
}

func (f *fakeClient) ShareWithWriter(_ context.Context, spreadsheetID, email string) error {
	if f.shareErr != nil {
		return f.shareErr
	}
	f.sharedID = spreadsheetID
	f.sharedEmail = email
	return nil
}

func day(t *testing.T, value string, hour int) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("Bad test date %q: %v", value, err)
	}
	return parsed.Add(time.Duration(hour) * time.Hour)
}

func exportFixture(t *testing.T) *fakeSource {
	return &fakeSource{rows: []orders.ExportRow{
		// Two orders on 2024-01-05: one with 2 items, one with 1
		{OrderID: "order-1", ClientName: "Amine", ClientEmail: "amine@example.com", ClientPhone: "0550", CreatedAt: day(t, "2024-01-05", 9), IsSent: false, ProductName: "Olive Oil", Quantity: 2},
		{OrderID: "order-1", ClientName: "Amine", ClientEmail: "amine@example.com", ClientPhone: "0550", CreatedAt: day(t, "2024-01-05", 9), IsSent: false, ProductName: "Dates", Quantity: 1},
		{OrderID: "order-2", ClientName: "Lina", ClientEmail: "lina@example.com", ClientPhone: "0661", CreatedAt: day(t, "2024-01-05", 17), IsSent: true, ProductName: "Honey", Quantity: 3},
		// One order the next day, must not appear
		{OrderID: "order-3", ClientName: "Samir", ClientEmail: "samir@example.com", ClientPhone: "0770", CreatedAt: day(t, "2024-01-06", 8), IsSent: false, ProductName: "Couscous", Quantity: 5},
	}}
}

func TestExportDayScoping(t *testing.T) {
	client := &fakeClient{}
	exporter := NewExporter(exportFixture(t), testLogger())

	id, err := exporter.Export(context.Background(), client, day(t, "2024-01-05", 0), "")
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if id != "sheet-123" {
		t.Errorf("Unexpected spreadsheet id %q", id)
	}

	if client.createdTitle != "Orders Export - 2024-01-05" {
		t.Errorf("Unexpected title %q", client.createdTitle)
	}
	if client.writtenRange != "A1" {
		t.Errorf("Rows must be written at A1, got %q", client.writtenRange)
	}

	// Header plus exactly 3 data rows, none from 2024-01-06
	if len(client.writtenRows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(client.writtenRows))
	}
	for _, row := range client.writtenRows[1:] {
		if row[0] == "order-3" {
			t.Error("Export leaked an order from the next day")
		}
	}
}

func TestExportRowLayout(t *testing.T) {
	client := &fakeClient{}
	exporter := NewExporter(exportFixture(t), testLogger())

	if _, err := exporter.Export(context.Background(), client, day(t, "2024-01-05", 0), ""); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	header := client.writtenRows[0]
	wantHeader := []interface{}{"Order ID", "Client Name", "Client Email", "Client Phone", "Created At", "Is Sent", "Product", "Quantity"}
	for i := range wantHeader {
		if header[i] != wantHeader[i] {
			t.Errorf("Header column %d: expected %v, got %v", i, wantHeader[i], header[i])
		}
	}

	first := client.writtenRows[1]
	if first[0] != "order-1" || first[1] != "Amine" || first[2] != "amine@example.com" || first[3] != "0550" {
		t.Errorf("Unexpected order columns: %v", first)
	}
	if first[4] != "2024-01-05 09:00" {
		t.Errorf("Unexpected timestamp format: %v", first[4])
	}
	if first[5] != "No" {
		t.Errorf("Sent flag must render as Yes/No, got %v", first[5])
	}
	if first[6] != "Olive Oil" || first[7] != 2 {
		t.Errorf("Unexpected item columns: %v", first)
	}

	sent := client.writtenRows[3]
	if sent[5] != "Yes" {
		t.Errorf("Sent order must render Yes, got %v", sent[5])
	}
}

func TestExportSharing(t *testing.T) {
	client := &fakeClient{}
	exporter := NewExporter(exportFixture(t), testLogger())

	if _, err := exporter.Export(context.Background(), client, day(t, "2024-01-05", 0), "manager@example.com"); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if client.sharedID != "sheet-123" || client.sharedEmail != "manager@example.com" {
		t.Errorf("Spreadsheet was not shared: id=%q email=%q", client.sharedID, client.sharedEmail)
	}

	// The user-credential flow passes no email and must not share
	client = &fakeClient{}
	if _, err := exporter.Export(context.Background(), client, day(t, "2024-01-05", 0), ""); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if client.sharedEmail != "" {
		t.Errorf("Unexpected share with %q", client.sharedEmail)
	}
}

func TestExportEmptyDay(t *testing.T) {
	client := &fakeClient{}
	exporter := NewExporter(exportFixture(t), testLogger())

	if _, err := exporter.Export(context.Background(), client, day(t, "2024-02-01", 0), ""); err != nil {
		t.Fatalf("Export returned error: %v", err)
	}
	if len(client.writtenRows) != 1 {
		t.Errorf("Expected header only for an empty day, got %d rows", len(client.writtenRows))
	}
}

func TestExportRemoteFailures(t *testing.T) {
	exporter := NewExporter(exportFixture(t), testLogger())
	remoteErr := errors.New("quota exceeded")

	if _, err := exporter.Export(context.Background(), &fakeClient{createErr: remoteErr}, day(t, "2024-01-05", 0), ""); !errors.Is(err, remoteErr) {
		t.Errorf("Create failure must propagate, got %v", err)
	}
	if _, err := exporter.Export(context.Background(), &fakeClient{writeErr: remoteErr}, day(t, "2024-01-05", 0), ""); !errors.Is(err, remoteErr) {
		t.Errorf("Write failure must propagate, got %v", err)
	}
	if _, err := exporter.Export(context.Background(), &fakeClient{shareErr: remoteErr}, day(t, "2024-01-05", 0), "x@example.com"); !errors.Is(err, remoteErr) {
		t.Errorf("Share failure must propagate, got %v", err)
	}
}
