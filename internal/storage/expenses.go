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

const expenseSelect = `
SELECT e.id, e.date, e.project_id, COALESCE(p.name, ''), e.category, e.amount_cents,
       e.description, e.payment_method, e.note, e.created_by, e.created_at, e.updated_at,
       li.claim_id, COALESCE(c.status, '')
FROM expenses e
LEFT JOIN projects p ON p.id = e.project_id
LEFT JOIN claim_line_items li ON li.expense_id = e.id
LEFT JOIN claims c ON c.id = li.claim_id`

// expenseSortColumns is the only source of ORDER BY expressions.
var expenseSortColumns = map[core.ExpenseSort]string{
	core.SortByDate:      "e.date",
	core.SortByAmount:    "e.amount_cents",
	core.SortByCategory:  "e.category",
	core.SortByCreatedAt: "e.created_at",
}

func scanExpense(row interface{ Scan(...any) error }) (core.Expense, error) {
	var (
		e                    core.Expense
		date                 string
		projectID, claimID   sql.NullInt64
		createdAt, updatedAt string
		claimStatus          string
	)
	err := row.Scan(&e.ID, &date, &projectID, &e.ProjectName, &e.Category, &e.Amount.Cents,
		&e.Description, &e.PaymentMethod, &e.Note, &e.CreatedBy, &createdAt, &updatedAt,
		&claimID, &claimStatus)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date = parseDate(date)
	e.ProjectID = idPtr(projectID)
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	e.ClaimID = idPtr(claimID)
	e.ClaimStatus = core.ClaimStatus(claimStatus)
	return e, nil
}

func (q *Queries) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO expenses (date, project_id, category, amount_cents, description, payment_method, note, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Date.String(), nullableID(e.ProjectID), e.Category, e.Amount.Cents, e.Description,
		e.PaymentMethod, e.Note, int64(e.CreatedBy), formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, core.ErrProjectNotFound
		}
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	return res.LastInsertId()
}

func (q *Queries) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	e, err := scanExpense(q.db.QueryRowContext(ctx, expenseSelect+` WHERE e.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrExpenseNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (q *Queries) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses
		 SET date = ?, project_id = ?, category = ?, amount_cents = ?, description = ?,
		     payment_method = ?, note = ?, updated_at = ?
		 WHERE id = ?`,
		e.Date.String(), nullableID(e.ProjectID), e.Category, e.Amount.Cents, e.Description,
		e.PaymentMethod, e.Note, formatTime(e.UpdatedAt), e.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.ErrProjectNotFound
		}
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

// DeleteExpense removes an unattached expense. The line-item foreign key
// rejects deleting an attached one.
func (q *Queries) DeleteExpense(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.ErrExpenseClaimed
		}
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrExpenseNotFound
	}
	return nil
}

// SetExpenseProject reassigns one expense; a nil project clears it.
func (q *Queries) SetExpenseProject(ctx context.Context, id int64, projectID *int64, updatedAt time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE expenses SET project_id = ?, updated_at = ? WHERE id = ?`,
		nullableID(projectID), formatTime(updatedAt), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, core.ErrProjectNotFound
		}
		return false, fmt.Errorf("set project of expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set project of expense %d: %w", id, err)
	}
	return n > 0, nil
}

// ExpenseClaim reports the claim an expense is attached to, if any.
func (q *Queries) ExpenseClaim(ctx context.Context, expenseID int64) (int64, bool, error) {
	var claimID int64
	err := q.db.QueryRowContext(ctx,
		`SELECT claim_id FROM claim_line_items WHERE expense_id = ?`, expenseID).Scan(&claimID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup claim of expense %d: %w", expenseID, err)
	}
	return claimID, true, nil
}

func (q *Queries) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	var (
		where []string
		args  []any
	)
	switch {
	case f.NoProject:
		where = append(where, "e.project_id IS NULL")
	case f.ProjectID != nil:
		where = append(where, "e.project_id = ?")
		args = append(args, *f.ProjectID)
	}
	if f.Category != "" {
		where = append(where, "e.category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		where = append(where, "e.date >= ?")
		args = append(args, f.From.String())
	}
	if !f.To.IsZero() {
		where = append(where, "e.date <= ?")
		args = append(args, f.To.String())
	}
	if f.Claimed != nil {
		if *f.Claimed {
			where = append(where, "li.claim_id IS NOT NULL")
		} else {
			where = append(where, "li.claim_id IS NULL")
		}
	}
	if f.CreatedBy > 0 {
		where = append(where, "e.created_by = ?")
		args = append(args, int64(f.CreatedBy))
	}

	var sb strings.Builder
	sb.WriteString(expenseSelect)
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	col, ok := expenseSortColumns[f.Sort]
	if !ok {
		if f.Sort != "" {
			return nil, core.ErrInvalidSort
		}
		col = expenseSortColumns[core.SortByDate]
	}
	dir := " ASC"
	if f.Desc {
		dir = " DESC"
	}
	sb.WriteString(" ORDER BY " + col + dir + ", e.id" + dir)

	switch {
	case f.Limit > 0:
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	case f.Offset > 0:
		// SQLite needs a LIMIT before OFFSET; -1 means no limit.
		sb.WriteString(" LIMIT -1 OFFSET ?")
		args = append(args, f.Offset)
	}

	rows, err := q.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
