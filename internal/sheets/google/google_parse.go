package google

import (
	"fmt"
	"strconv"
	"strings"

	"reimburse/internal/core"
)

// Column layout of the export sheet, one row per project and category.
var exportHeader = []any{"Claim", "Submit date", "Status", "Expense dates", "Project", "Category", "Amount", "Submission"}

// claimRows converts export rows into sheet values. Amounts are written as
// plain decimal strings so USER_ENTERED parses them as numbers.
func claimRows(c core.Claim, rows []core.ExportRow) [][]any {
	out := make([][]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, []any{
			c.ID,
			c.SubmitDate.String(),
			string(c.Status),
			r.Date,
			r.ProjectName,
			r.Category,
			r.Total.String(),
			c.Submissions,
		})
	}
	return out
}

// exportedKey identifies the claim, status and submission round of one
// sheet row.
type exportedKey struct {
	claimID    int64
	status     core.ClaimStatus
	submission int
}

func keyOf(c core.Claim) exportedKey {
	return exportedKey{claimID: c.ID, status: c.Status, submission: c.Submissions}
}

// parseExported reads the claim, status and submission columns of an export
// sheet, skipping the header and any row that does not start with a claim
// id. Rows without a submission cell belong to the first submission.
func parseExported(values [][]any) map[exportedKey]bool {
	seen := map[exportedKey]bool{}
	for _, row := range values {
		cols := toStrings(row)
		if len(cols) < 3 {
			continue
		}
		id, err := strconv.ParseInt(cols[0], 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		submission := 1
		if len(cols) > 7 && cols[7] != "" {
			n, err := strconv.Atoi(cols[7])
			if err != nil || n < 1 {
				continue
			}
			submission = n
		}
		seen[exportedKey{claimID: id, status: core.ClaimStatus(strings.ToLower(cols[2])), submission: submission}] = true
	}
	return seen
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
