package google

import (
	"context"
	"strings"
	"testing"

	"reimburse/internal/core"
)

func TestNewClient_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing spreadsheet", Config{SheetName: "Claims", CredentialsJSON: "{}"}, "missing spreadsheet id"},
		{"missing sheet", Config{SpreadsheetID: "abc", CredentialsJSON: "{}"}, "missing export sheet name"},
		{"missing credentials", Config{SpreadsheetID: "abc", SheetName: "Claims"}, "missing service account credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(context.Background(), tt.cfg, nil)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_UninitializedService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetName: "Claims"}

	_, err := c.ExportClaim(context.Background(), core.Claim{ID: 1}, []core.ExportRow{{Category: "x"}})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}
	if _, err := c.Exported(context.Background(), core.Claim{ID: 1, Status: core.StatusSubmitted}); err == nil {
		t.Error("expected error from Exported without service")
	}
}
