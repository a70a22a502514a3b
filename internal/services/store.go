package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

// Store is the transactional relational store every service runs on.
// *storage.SQLiteRepository satisfies it.
type Store interface {
	Queries() *storage.Queries
	InTx(ctx context.Context, fn func(*storage.Queries) error) error
}

// finish logs the outcome of one operation. Only storage failures are
// unexpected; rejected requests are logged at debug level.
func finish(ctx context.Context, logger *log.Logger, op string, err error, fields log.LogFields) {
	fields = fields.WithOperation(op)
	switch core.KindOf(err) {
	case "":
		logger.InfoContext(ctx, "Operation completed", fields.ToSlice()...)
	case core.KindStorage:
		logger.ErrorContext(ctx, "Operation failed, transaction rolled back",
			fields.WithError(err).WithErrorType(log.ErrorTypeDatabase).ToSlice()...)
	default:
		logger.DebugContext(ctx, "Operation rejected",
			fields.WithError(err).WithErrorType(errorType(err)).ToSlice()...)
	}
}

func errorType(err error) string {
	switch core.KindOf(err) {
	case core.KindNotFound:
		return log.ErrorTypeNotFound
	case core.KindConflict:
		return log.ErrorTypeConflict
	case core.KindValidation:
		return log.ErrorTypeValidation
	default:
		return log.ErrorTypeDatabase
	}
}

// recordEvent appends a claim event to the outbox inside the caller's transaction.
func recordEvent(ctx context.Context, q *storage.Queries, typ core.ClaimEventType, claimID int64, status core.ClaimStatus, actor core.UserID, at time.Time) error {
	return q.InsertClaimEvent(ctx, core.ClaimEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		ClaimID:    claimID,
		Status:     status,
		Actor:      actor,
		OccurredAt: at,
	})
}

func loggerOr(l *log.Logger, component string) *log.Logger {
	if l == nil {
		return log.Default(component)
	}
	return l.WithComponent(component)
}

func clockOr(c core.Clock) core.Clock {
	if c == nil {
		return core.SystemClock()
	}
	return c
}
