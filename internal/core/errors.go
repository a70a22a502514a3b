package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures at the operation boundary.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindValidation ErrorKind = "validation"
	KindStorage    ErrorKind = "storage_failure"
)

// Error is a classified domain error. Sentinels are compared with errors.Is.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrClaimNotFound   = &Error{Kind: KindNotFound, Message: "claim not found"}
	ErrExpenseNotFound = &Error{Kind: KindNotFound, Message: "expense not found"}
	ErrProjectNotFound = &Error{Kind: KindNotFound, Message: "project not found"}

	ErrExpenseAlreadyClaimed = &Error{Kind: KindConflict, Message: "expense already attached to a claim"}
	ErrExpenseClaimed        = &Error{Kind: KindConflict, Message: "expense is attached to a claim"}
	ErrClaimNotEditable      = &Error{Kind: KindConflict, Message: "claim is not editable in its current status"}
	ErrClaimNotSubmittable   = &Error{Kind: KindConflict, Message: "claim cannot be submitted in its current status"}
	ErrClaimNotRejectable    = &Error{Kind: KindConflict, Message: "only submitted claims can be rejected"}
	ErrClaimNotDeletable     = &Error{Kind: KindConflict, Message: "only draft claims can be deleted"}
	ErrPaymentOnDraft        = &Error{Kind: KindConflict, Message: "payments cannot be recorded against a draft claim"}
	ErrDuplicateProject      = &Error{Kind: KindConflict, Message: "project name already exists"}

	ErrInvalidAmount    = &Error{Kind: KindValidation, Message: "invalid amount"}
	ErrNegativeAmount   = &Error{Kind: KindValidation, Message: "amount cannot be negative"}
	ErrMissingDate      = &Error{Kind: KindValidation, Message: "date is required"}
	ErrEmptyClaim       = &Error{Kind: KindValidation, Message: "claim has no line items"}
	ErrEmptyBatch       = &Error{Kind: KindValidation, Message: "no expenses given"}
	ErrEmptyProjectName = &Error{Kind: KindValidation, Message: "empty project name"}
	ErrMissingActor     = &Error{Kind: KindValidation, Message: "no user identity on request"}
	ErrInvalidSort      = &Error{Kind: KindValidation, Message: "unsupported sort field"}
	ErrInvalidStatus    = &Error{Kind: KindValidation, Message: "invalid status"}
)

// Invalidf builds a one-off validation error.
func Invalidf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf classifies err. Anything that is not a domain error is treated as a
// storage failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindStorage
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// Result is the structured outcome of an operation.
type Result struct {
	Success bool      `json:"success"`
	Code    ErrorKind `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ResultOf converts an operation error into a Result. Storage failures keep
// their details out of the message.
func ResultOf(err error) Result {
	if err == nil {
		return Result{Success: true}
	}
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindStorage {
		msg = "storage failure, operation rolled back"
	}
	return Result{Success: false, Code: kind, Message: msg}
}

// BatchSkip records why one item of a batch was not applied.
type BatchSkip struct {
	ExpenseID int64     `json:"expense_id"`
	Code      ErrorKind `json:"code"`
	Reason    string    `json:"reason"`
}

// BatchResult reports a partial-success batch.
type BatchResult struct {
	Added   int         `json:"added"`
	Skipped int         `json:"skipped"`
	Skips   []BatchSkip `json:"skips,omitempty"`
}

// Skip records a skipped item.
func (r *BatchResult) Skip(id int64, err error) {
	r.Skipped++
	r.Skips = append(r.Skips, BatchSkip{ExpenseID: id, Code: KindOf(err), Reason: err.Error()})
}
