// Package sheets exports a day's orders to a newly created Google
// spreadsheet, one row per (order, item) pair.
package sheets

import (
	"context"
	"fmt"
	"time"

	"github.com/hvmc/store-backend/internal/orders"
	"github.com/sirupsen/logrus"
)

// SpreadsheetClient is the remote spreadsheet surface the exporter needs.
type SpreadsheetClient interface {
	CreateSpreadsheet(ctx context.Context, title string) (string, error)
	WriteRange(ctx context.Context, spreadsheetID, rangeRef string, rows [][]interface{}) error
	ShareWithWriter(ctx context.Context, spreadsheetID, email string) error
}

// OrderSource supplies the flattened export rows for a date range.
type OrderSource interface {
	ExportRows(ctx context.Context, start, end time.Time) ([]orders.ExportRow, error)
}

var headerRow = []interface{}{
	"Order ID", "Client Name", "Client Email", "Client Phone",
	"Created At", "Is Sent", "Product", "Quantity",
}

type Exporter struct {
	source OrderSource
	logger *logrus.Logger
}

func NewExporter(source OrderSource, logger *logrus.Logger) *Exporter {
	return &Exporter{
		source: source,
		logger: logger,
	}
}

// Export writes the orders created on day into a new spreadsheet and
// returns its identifier. A zero day means the current date. When
// shareEmail is non-empty the spreadsheet is shared with it as a writer.
// Remote failures propagate to the caller; a created-but-empty
// spreadsheet is an accepted failure mode.
func (e *Exporter) Export(ctx context.Context, client SpreadsheetClient, day time.Time, shareEmail string) (string, error) {
	if day.IsZero() {
		day = time.Now()
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24*time.Hour - time.Nanosecond)

	rows, err := e.source.ExportRows(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("failed to collect orders for export: %w", err)
	}

	sheetData := make([][]interface{}, 0, len(rows)+1)
	sheetData = append(sheetData, headerRow)
	for _, row := range rows {
		sheetData = append(sheetData, []interface{}{
			row.OrderID,
			row.ClientName,
			row.ClientEmail,
			row.ClientPhone,
			row.CreatedAt.Format("2006-01-02 15:04"),
			yesNo(row.IsSent),
			row.ProductName,
			row.Quantity,
		})
	}

	title := fmt.Sprintf("Orders Export - %s", start.Format("2006-01-02"))
	spreadsheetID, err := client.CreateSpreadsheet(ctx, title)
	if err != nil {
		return "", fmt.Errorf("failed to create spreadsheet: %w", err)
	}

	if err := client.WriteRange(ctx, spreadsheetID, "A1", sheetData); err != nil {
		return "", fmt.Errorf("failed to write spreadsheet data: %w", err)
	}

	if shareEmail != "" {
		if err := client.ShareWithWriter(ctx, spreadsheetID, shareEmail); err != nil {
			return "", fmt.Errorf("failed to share spreadsheet: %w", err)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"spreadsheet_id": spreadsheetID,
		"date":           start.Format("2006-01-02"),
		"data_rows":      len(rows),
		"shared_with":    shareEmail,
	}).Info("Orders exported to spreadsheet")

	return spreadsheetID, nil
}

// SpreadsheetURL returns the direct link to a created spreadsheet.
func SpreadsheetURL(spreadsheetID string) string {
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
