package google

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"reimburse/internal/core"
	"reimburse/internal/log"
	ports "reimburse/internal/sheets"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

var _ ports.ClaimSheet = (*Client)(nil)

// Config selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func NewClient(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing export sheet name")
	}
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}

	var creds goption.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		creds = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		creds = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx, creds, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created",
		"spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}, nil
}

// ExportClaim appends the claim's rows below the existing data, writing the
// header first on an empty sheet.
func (c *Client) ExportClaim(ctx context.Context, claim core.Claim, rows []core.ExportRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("claim %d has no export rows", claim.ID)
	}

	values := claimRows(claim, rows)
	existing, err := c.read(ctx, "A1:A1")
	if err != nil {
		return "", err
	}
	if len(existing) == 0 {
		values = append([][]any{exportHeader}, values...)
	}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", rng, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.InfoContext(ctx, "Exported claim rows",
		log.FieldClaimID, claim.ID, log.FieldCount, len(rows), log.FieldSheetsRef, ref)
	return ref, nil
}

func (c *Client) Exported(ctx context.Context, claim core.Claim) (bool, error) {
	if c.svc == nil {
		return false, errors.New("sheets service not initialized")
	}
	values, err := c.read(ctx, "A:H")
	if err != nil {
		return false, err
	}
	return parseExported(values)[keyOf(claim)], nil
}

func (c *Client) read(ctx context.Context, cells string) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s", c.sheetName, cells)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}
