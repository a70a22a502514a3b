package google

import (
	"testing"

	"reimburse/internal/core"
)

func TestClaimRows(t *testing.T) {
	claim := core.Claim{ID: 12, SubmitDate: core.NewDate(2024, 1, 31), Status: core.StatusSubmitted, Submissions: 2}
	rows := []core.ExportRow{
		{Date: "2024-01-03~2024-01-09", ProjectName: "Summit", Category: "hotel", Total: core.Money{Cents: 30050}},
		{Date: "2024-01-04", ProjectName: core.NoProjectLabel, Category: "meals", Total: core.Money{Cents: 700}},
	}

	got := claimRows(claim, rows)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	want := []any{int64(12), "2024-01-31", "submitted", "2024-01-03~2024-01-09", "Summit", "hotel", "300.50", 2}
	for i, v := range want {
		if got[0][i] != v {
			t.Errorf("row 0 col %d = %v, want %v", i, got[0][i], v)
		}
	}
	if got[1][6] != "7.00" {
		t.Errorf("row 1 amount = %v, want 7.00", got[1][6])
	}
	if len(got[0]) != len(exportHeader) {
		t.Errorf("row width %d does not match header width %d", len(got[0]), len(exportHeader))
	}
}

func TestParseExported(t *testing.T) {
	values := [][]any{
		exportHeader,
		{"12", "2024-01-31", "submitted", "2024-01-03", "Summit", "hotel", "300.50"},
		{"12", "2024-02-10", "submitted", "2024-01-03", "Summit", "hotel", "310.50", "2"},
		{"12", "2024-01-31", "Paid"},
		{"", "", ""},
		{"not-a-claim", "x", "submitted"},
		{"14", "2024-01-31", "submitted", "", "", "", "1.00", "second"},
		{"13"},
	}

	seen := parseExported(values)
	if !seen[exportedKey{12, core.StatusSubmitted, 1}] {
		t.Error("row without a submission cell belongs to the first submission")
	}
	if !seen[exportedKey{12, core.StatusSubmitted, 2}] {
		t.Error("expected second submission of claim 12 to be exported")
	}
	if !seen[exportedKey{12, core.StatusPaid, 1}] {
		t.Error("status column should be case-insensitive")
	}
	if seen[exportedKey{13, core.StatusSubmitted, 1}] || seen[exportedKey{14, core.StatusSubmitted, 1}] {
		t.Error("short rows and bad submission cells must be ignored")
	}
	if len(seen) != 3 {
		t.Errorf("expected 3 keys, got %d: %v", len(seen), seen)
	}
}
