package storage

import (
	"context"
	"fmt"
	"time"

	"reimburse/internal/core"
)

// OutboxEvent is a claim event waiting to be relayed.
type OutboxEvent struct {
	core.ClaimEvent
	Attempts  int
	LastError string
}

// InsertClaimEvent writes an event into the outbox. Called inside the
// transaction that performs the state change.
func (q *Queries) InsertClaimEvent(ctx context.Context, e core.ClaimEvent) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO claim_events (id, claim_id, event_type, status, actor, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.ClaimID, string(e.Type), string(e.Status), int64(e.Actor), formatTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("insert claim event: %w", err)
	}
	return nil
}

// PendingClaimEvents returns unpublished events, oldest first, skipping those
// that already failed maxAttempts times.
func (q *Queries) PendingClaimEvents(ctx context.Context, limit, maxAttempts int) ([]OutboxEvent, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, claim_id, event_type, status, actor, occurred_at, attempts, last_error
		 FROM claim_events
		 WHERE published_at IS NULL AND attempts < ?
		 ORDER BY occurred_at, rowid
		 LIMIT ?`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("pending claim events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var (
			e                           OutboxEvent
			eventType, status, occurred string
		)
		if err := rows.Scan(&e.ID, &e.ClaimID, &eventType, &status, &e.Actor, &occurred, &e.Attempts, &e.LastError); err != nil {
			return nil, fmt.Errorf("scan claim event: %w", err)
		}
		e.Type = core.ClaimEventType(eventType)
		e.Status = core.ClaimStatus(status)
		e.OccurredAt = parseTime(occurred)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (q *Queries) MarkEventPublished(ctx context.Context, id string, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE claim_events SET published_at = ?, attempts = attempts + 1, last_error = '' WHERE id = ?`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark event %s published: %w", id, err)
	}
	return nil
}

func (q *Queries) MarkEventFailed(ctx context.Context, id string, cause error) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE claim_events SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		cause.Error(), id)
	if err != nil {
		return fmt.Errorf("mark event %s failed: %w", id, err)
	}
	return nil
}

// DeletePublishedEvents drops events published before cutoff.
func (q *Queries) DeletePublishedEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM claim_events WHERE published_at IS NOT NULL AND published_at < ?`, formatTime(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete published events: %w", err)
	}
	return res.RowsAffected()
}
