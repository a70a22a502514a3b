package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reimburse/internal/core"
)

// ClaimExportRows aggregates a claim's line items by project name and
// category. Expenses without a project share one group.
func (q *Queries) ClaimExportRows(ctx context.Context, claimID int64) ([]core.ExportRow, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT MIN(e.date), MAX(e.date), COALESCE(p.name, ?), e.category, SUM(li.amount_cents)
		 FROM claim_line_items li
		 JOIN expenses e ON e.id = li.expense_id
		 LEFT JOIN projects p ON p.id = e.project_id
		 WHERE li.claim_id = ?
		 GROUP BY p.name, e.category
		 ORDER BY p.name, e.category`, core.NoProjectLabel, claimID)
	if err != nil {
		return nil, fmt.Errorf("export rows of claim %d: %w", claimID, err)
	}
	defer rows.Close()

	var out []core.ExportRow
	for rows.Next() {
		var (
			r           core.ExportRow
			first, last string
		)
		if err := rows.Scan(&first, &last, &r.ProjectName, &r.Category, &r.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan export row: %w", err)
		}
		r.Date = core.DateRange(first, last)
		out = append(out, r)
	}
	return out, rows.Err()
}

const progressColumns = `
       COALESCE(SUM(e.amount_cents), 0),
       COALESCE(SUM(CASE WHEN li.expense_id IS NOT NULL THEN e.amount_cents ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN li.expense_id IS NOT NULL AND c.status = 'paid' THEN e.amount_cents ELSE 0 END), 0),
       COALESCE(SUM(CASE WHEN li.expense_id IS NOT NULL AND c.status <> 'paid' THEN e.amount_cents ELSE 0 END), 0)`

// ProjectStats reports spend progress for projects with the given status.
func (q *Queries) ProjectStats(ctx context.Context, status core.ProjectStatus) ([]core.ProjectStats, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.status,`+progressColumns+`
		 FROM projects p
		 LEFT JOIN expenses e ON e.project_id = p.id
		 LEFT JOIN claim_line_items li ON li.expense_id = e.id
		 LEFT JOIN claims c ON c.id = li.claim_id
		 WHERE (? = '' OR p.status = ?)
		 GROUP BY p.id, p.name, p.status
		 ORDER BY p.name`, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("project stats: %w", err)
	}
	defer rows.Close()

	var out []core.ProjectStats
	for rows.Next() {
		var (
			s     core.ProjectStats
			id    int64
			pstat string
		)
		if err := rows.Scan(&id, &s.Name, &pstat, &s.Total.Cents, &s.Claimed.Cents, &s.Paid.Cents, &s.Unpaid.Cents); err != nil {
			return nil, fmt.Errorf("scan project stats: %w", err)
		}
		s.ProjectID = &id
		s.Status = core.ProjectStatus(pstat)
		out = append(out, s)
	}
	return out, rows.Err()
}

// OrphanStats reports spend progress for expenses without a project.
func (q *Queries) OrphanStats(ctx context.Context) (core.ProjectStats, error) {
	s := core.ProjectStats{Name: core.NoProjectLabel, Status: core.ProjectActive}
	err := q.db.QueryRowContext(ctx,
		`SELECT`+progressColumns+`
		 FROM expenses e
		 LEFT JOIN claim_line_items li ON li.expense_id = e.id
		 LEFT JOIN claims c ON c.id = li.claim_id
		 WHERE e.project_id IS NULL`).Scan(&s.Total.Cents, &s.Claimed.Cents, &s.Paid.Cents, &s.Unpaid.Cents)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return core.ProjectStats{}, fmt.Errorf("orphan stats: %w", err)
	}
	return s, nil
}

// CategoryStats aggregates a user's expenses per category, largest first.
func (q *Queries) CategoryStats(ctx context.Context, user core.UserID) ([]core.CategoryStats, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT e.category, COUNT(*), COALESCE(SUM(e.amount_cents), 0),
		        COUNT(li.expense_id),
		        COALESCE(SUM(CASE WHEN li.expense_id IS NOT NULL THEN e.amount_cents ELSE 0 END), 0)
		 FROM expenses e
		 LEFT JOIN claim_line_items li ON li.expense_id = e.id
		 WHERE e.created_by = ?
		 GROUP BY e.category
		 ORDER BY 3 DESC, e.category`, int64(user))
	if err != nil {
		return nil, fmt.Errorf("category stats: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryStats
	for rows.Next() {
		var s core.CategoryStats
		if err := rows.Scan(&s.Category, &s.Count, &s.Total.Cents, &s.ClaimedCount, &s.ClaimedAmount.Cents); err != nil {
			return nil, fmt.Errorf("scan category stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
