//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"reimburse/internal/core"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ExportClaim(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	cfg := Config{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SheetName:       os.Getenv("GOOGLE_EXPORT_SHEET_NAME"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.SpreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if cfg.CredentialsJSON == "" && cfg.CredentialsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Claims"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewClient(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// A claim id derived from the clock keeps reruns from colliding.
	claim := core.Claim{
		ID:          time.Now().Unix(),
		SubmitDate:  core.DateOf(time.Now()),
		Status:      core.StatusSubmitted,
		Submissions: 1,
	}
	rows := []core.ExportRow{{Date: claim.SubmitDate.String(), ProjectName: "Integration", Category: "test", Total: core.Money{Cents: 123}}}

	ref, err := client.ExportClaim(ctx, claim, rows)
	if err != nil {
		t.Fatalf("ExportClaim failed: %v", err)
	}
	t.Logf("Exported claim %d to %s", claim.ID, ref)

	ok, err := client.Exported(ctx, claim)
	if err != nil {
		t.Fatalf("Exported failed: %v", err)
	}
	if !ok {
		t.Error("expected claim to be reported as exported")
	}
}
