package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"reimburse/internal/core"
)

const claimColumns = `c.id, c.submit_date, c.status, c.total_amount_cents, c.total_paid_cents,
       c.note, c.submissions, c.created_by, c.created_at, c.updated_at`

func scanClaim(row interface{ Scan(...any) error }, extra ...any) (core.Claim, error) {
	var (
		c                    core.Claim
		submitDate, status   string
		createdAt, updatedAt string
	)
	dest := []any{&c.ID, &submitDate, &status, &c.TotalAmount.Cents, &c.TotalPaid.Cents,
		&c.Note, &c.Submissions, &c.CreatedBy, &createdAt, &updatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return core.Claim{}, err
	}
	c.SubmitDate = parseDate(submitDate)
	c.Status = core.ClaimStatus(status)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return c, nil
}

func (q *Queries) CreateClaim(ctx context.Context, c core.Claim) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO claims (submit_date, status, total_amount_cents, total_paid_cents, note, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.SubmitDate.String(), string(c.Status), c.TotalAmount.Cents, c.TotalPaid.Cents, c.Note,
		int64(c.CreatedBy), formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetClaim(ctx context.Context, id int64) (core.Claim, error) {
	c, err := scanClaim(q.db.QueryRowContext(ctx, `SELECT `+claimColumns+` FROM claims c WHERE c.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Claim{}, core.ErrClaimNotFound
	}
	if err != nil {
		return core.Claim{}, fmt.Errorf("get claim %d: %w", id, err)
	}
	return c, nil
}

func (q *Queries) execClaim(ctx context.Context, op string, id int64, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n == 0 {
		return core.ErrClaimNotFound
	}
	return nil
}

func (q *Queries) UpdateClaimMetadata(ctx context.Context, id int64, submitDate core.Date, note string, at time.Time) error {
	return q.execClaim(ctx, "update claim", id,
		`UPDATE claims SET submit_date = ?, note = ?, updated_at = ? WHERE id = ?`,
		submitDate.String(), note, formatTime(at), id)
}

func (q *Queries) SetClaimStatus(ctx context.Context, id int64, status core.ClaimStatus, at time.Time) error {
	return q.execClaim(ctx, "set claim status", id,
		`UPDATE claims SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(at), id)
}

// MarkClaimSubmitted freezes the total, sets the submitted status and starts
// a new submission round.
func (q *Queries) MarkClaimSubmitted(ctx context.Context, id int64, total core.Money, at time.Time) error {
	return q.execClaim(ctx, "mark claim submitted", id,
		`UPDATE claims SET status = ?, total_amount_cents = ?, submissions = submissions + 1, updated_at = ? WHERE id = ?`,
		string(core.StatusSubmitted), total.Cents, formatTime(at), id)
}

func (q *Queries) SetClaimTotalAmount(ctx context.Context, id int64, total core.Money, at time.Time) error {
	return q.execClaim(ctx, "set claim total", id,
		`UPDATE claims SET total_amount_cents = ?, updated_at = ? WHERE id = ?`,
		total.Cents, formatTime(at), id)
}

func (q *Queries) SetClaimTotalPaid(ctx context.Context, id int64, paid core.Money, at time.Time) error {
	return q.execClaim(ctx, "set claim paid total", id,
		`UPDATE claims SET total_paid_cents = ?, updated_at = ? WHERE id = ?`,
		paid.Cents, formatTime(at), id)
}

// DeleteClaim removes the claim; line items go with it through the cascade.
func (q *Queries) DeleteClaim(ctx context.Context, id int64) error {
	return q.execClaim(ctx, "delete claim", id, `DELETE FROM claims WHERE id = ?`, id)
}

func claimWhere(f core.ClaimFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "c.status IN ("+strings.Join(marks, ", ")+")")
	}
	if !f.From.IsZero() {
		where = append(where, "c.submit_date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "c.submit_date <= ?")
		args = append(args, f.To.String())
	}
	if len(where) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListClaims returns matching claims, newest submit date first, each with its
// live line-item count and sum.
func (q *Queries) ListClaims(ctx context.Context, f core.ClaimFilter) ([]core.ClaimSummary, error) {
	where, args := claimWhere(f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+claimColumns+`, COUNT(li.expense_id), COALESCE(SUM(li.amount_cents), 0)
		 FROM claims c
		 LEFT JOIN claim_line_items li ON li.claim_id = c.id`+where+`
		 GROUP BY c.id
		 ORDER BY c.submit_date DESC, c.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var out []core.ClaimSummary
	for rows.Next() {
		var s core.ClaimSummary
		c, err := scanClaim(rows, &s.ItemCount, &s.ItemsTotal.Cents)
		if err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		s.Claim = c
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClaimStatusTotals aggregates the frozen totals of matching claims per status.
func (q *Queries) ClaimStatusTotals(ctx context.Context, f core.ClaimFilter) ([]core.StatusTotal, error) {
	where, args := claimWhere(f)
	rows, err := q.db.QueryContext(ctx,
		`SELECT c.status, COUNT(*), COALESCE(SUM(c.total_amount_cents), 0)
		 FROM claims c`+where+`
		 GROUP BY c.status
		 ORDER BY c.status`, args...)
	if err != nil {
		return nil, fmt.Errorf("claim status totals: %w", err)
	}
	defer rows.Close()

	var out []core.StatusTotal
	for rows.Next() {
		var (
			t      core.StatusTotal
			status string
		)
		if err := rows.Scan(&status, &t.Count, &t.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan status total: %w", err)
		}
		t.Status = core.ClaimStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertLineItem attaches an expense. The unique index on expense_id turns a
// concurrent or repeated attach into ErrExpenseAlreadyClaimed.
func (q *Queries) InsertLineItem(ctx context.Context, li core.LineItem) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO claim_line_items (claim_id, expense_id, amount_cents, added_at) VALUES (?, ?, ?, ?)`,
		li.ClaimID, li.ExpenseID, li.Amount.Cents, formatTime(li.AddedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrExpenseAlreadyClaimed
		}
		if isForeignKeyViolation(err) {
			return core.ErrExpenseNotFound
		}
		return fmt.Errorf("insert line item: %w", err)
	}
	return nil
}

// DeleteLineItem reports whether a row was removed.
func (q *Queries) DeleteLineItem(ctx context.Context, claimID, expenseID int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM claim_line_items WHERE claim_id = ? AND expense_id = ?`, claimID, expenseID)
	if err != nil {
		return false, fmt.Errorf("delete line item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete line item: %w", err)
	}
	return n > 0, nil
}

// LineItemTotals returns the number of line items and their summed amount.
func (q *Queries) LineItemTotals(ctx context.Context, claimID int64) (int, core.Money, error) {
	var (
		count int
		sum   int64
	)
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount_cents), 0) FROM claim_line_items WHERE claim_id = ?`,
		claimID).Scan(&count, &sum)
	if err != nil {
		return 0, core.Money{}, fmt.Errorf("line item totals of claim %d: %w", claimID, err)
	}
	return count, core.Money{Cents: sum}, nil
}

func (q *Queries) ListLineItems(ctx context.Context, claimID int64) ([]core.LineItem, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT li.claim_id, li.expense_id, li.amount_cents, li.added_at,
		        e.date, e.amount_cents, COALESCE(p.name, ''), e.category, e.description
		 FROM claim_line_items li
		 JOIN expenses e ON e.id = li.expense_id
		 LEFT JOIN projects p ON p.id = e.project_id
		 WHERE li.claim_id = ?
		 ORDER BY e.date, li.expense_id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list line items of claim %d: %w", claimID, err)
	}
	defer rows.Close()

	var out []core.LineItem
	for rows.Next() {
		var (
			li            core.LineItem
			addedAt, date string
		)
		if err := rows.Scan(&li.ClaimID, &li.ExpenseID, &li.Amount.Cents, &addedAt,
			&date, &li.ExpenseAmount.Cents, &li.ProjectName, &li.Category, &li.Description); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.AddedAt = parseTime(addedAt)
		li.ExpenseDate = parseDate(date)
		out = append(out, li)
	}
	return out, rows.Err()
}
