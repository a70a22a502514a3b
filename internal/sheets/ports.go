package sheets

import (
	"context"

	"reimburse/internal/core"
)

// Ports for outbound adapters.
type (
	// ClaimExporter writes a claim's aggregated export rows to a spreadsheet.
	ClaimExporter interface {
		ExportClaim(ctx context.Context, c core.Claim, rows []core.ExportRow) (rowRef string, err error)
	}

	// ExportLedger tells whether a claim was already exported with its
	// current status and submission round, so redelivered events do not
	// duplicate rows while a resubmitted claim is exported again.
	ExportLedger interface {
		Exported(ctx context.Context, c core.Claim) (bool, error)
	}

	ClaimSheet interface {
		ClaimExporter
		ExportLedger
	}
)
