// Package backend picks the sheet the export worker writes claims to.
package backend

import (
	"context"
	"fmt"

	"reimburse/internal/config"
	"reimburse/internal/log"
	"reimburse/internal/sheets"
	gsheet "reimburse/internal/sheets/google"
	"reimburse/internal/sheets/memory"
)

// SheetType names an export sheet implementation.
type SheetType string

const (
	GoogleSheet SheetType = "google"
	MemorySheet SheetType = "memory"
)

func (t SheetType) String() string {
	return string(t)
}

// IsValid returns true if the sheet type is known.
func (t SheetType) IsValid() bool {
	switch t {
	case GoogleSheet, MemorySheet:
		return true
	default:
		return false
	}
}

// Factory builds export sheets.
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Default(log.ComponentSheets)
	}
	return &Factory{logger: logger}
}

// ClaimSheet returns the sheet selected by cfg.ExportBackend.
func (f *Factory) ClaimSheet(ctx context.Context, cfg *config.Config) (sheets.ClaimSheet, error) {
	t := SheetType(cfg.ExportBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid export backend: %s", t)
	}

	switch t {
	case GoogleSheet:
		client, err := gsheet.NewClient(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleExportSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		return client, nil
	default:
		f.logger.WarnContext(ctx, "Using in-memory export sheet; exported rows are not persisted",
			"backend", t.String())
		return memory.New(), nil
	}
}
