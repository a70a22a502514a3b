package storage

import (
	"context"
	"fmt"

	"reimburse/internal/core"
)

func (q *Queries) InsertPayment(ctx context.Context, p core.Payment) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO payments (claim_id, payment_date, amount_cents, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ClaimID, p.Date.String(), p.Amount.Cents, p.Note, formatTime(p.CreatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, core.ErrClaimNotFound
		}
		return 0, fmt.Errorf("insert payment: %w", err)
	}
	return res.LastInsertId()
}

// SumPayments returns the exact sum of all payments recorded for a claim.
func (q *Queries) SumPayments(ctx context.Context, claimID int64) (core.Money, error) {
	var sum int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE claim_id = ?`, claimID).Scan(&sum)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum payments of claim %d: %w", claimID, err)
	}
	return core.Money{Cents: sum}, nil
}

func (q *Queries) ListPayments(ctx context.Context, claimID int64) ([]core.Payment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, claim_id, payment_date, amount_cents, note, created_at
		 FROM payments WHERE claim_id = ?
		 ORDER BY payment_date, id`, claimID)
	if err != nil {
		return nil, fmt.Errorf("list payments of claim %d: %w", claimID, err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var (
			p               core.Payment
			date, createdAt string
		)
		if err := rows.Scan(&p.ID, &p.ClaimID, &date, &p.Amount.Cents, &p.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Date = parseDate(date)
		p.CreatedAt = parseTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}
