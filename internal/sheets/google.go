package sheets

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// googleClient implements SpreadsheetClient over the Sheets and Drive APIs.
type googleClient struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClientFromTokenSource builds a client from a user-authorized OAuth2
// credential.
func NewClientFromTokenSource(ctx context.Context, src oauth2.TokenSource) (SpreadsheetClient, error) {
	sheetsService, err := sheets.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &googleClient{sheets: sheetsService, drive: driveService}, nil
}

// NewServiceAccountClient builds a client from a pre-provisioned service
// account credential file.
func NewServiceAccountClient(ctx context.Context, credentialsFile string) (SpreadsheetClient, error) {
	opts := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope, drive.DriveScope),
	}
	sheetsService, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	driveService, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &googleClient{sheets: sheetsService, drive: driveService}, nil
}

func (g *googleClient) CreateSpreadsheet(ctx context.Context, title string) (string, error) {
	spreadsheet, err := g.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
	}).Fields("spreadsheetId").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	return spreadsheet.SpreadsheetId, nil
}

func (g *googleClient) WriteRange(ctx context.Context, spreadsheetID, rangeRef string, rows [][]interface{}) error {
	_, err := g.sheets.Spreadsheets.Values.Update(spreadsheetID, rangeRef, &sheets.ValueRange{
		Values: rows,
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (g *googleClient) ShareWithWriter(ctx context.Context, spreadsheetID, email string) error {
	_, err := g.drive.Permissions.Create(spreadsheetID, &drive.Permission{
		Type:         "user",
		Role:         "writer",
		EmailAddress: email,
	}).Fields("id").Context(ctx).Do()
	return err
}
