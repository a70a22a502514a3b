package services

import (
	"context"
	"fmt"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

// ClaimService groups unclaimed expenses into reimbursement claims and
// drives the claim state machine:
//
//	draft ──submit──▶ submitted ──reject──▶ rejected ──submit──▶ submitted
//	                      └──── payments cover total ────▶ paid
//
// Line items may only change while a claim is draft or rejected.
type ClaimService struct {
	store  Store
	clock  core.Clock
	logger *log.Logger
}

func NewClaimService(store Store, clock core.Clock, logger *log.Logger) *ClaimService {
	return &ClaimService{
		store:  store,
		clock:  clockOr(clock),
		logger: loggerOr(logger, log.ComponentClaims),
	}
}

// CreateClaim inserts an empty draft claim.
func (s *ClaimService) CreateClaim(ctx context.Context, submitDate core.Date, note string) (core.Claim, error) {
	c, err := s.createClaim(ctx, submitDate, note)
	finish(ctx, s.logger, log.OpCreate, err, log.NewFields().WithClaim(c.ID))
	return c, err
}

func (s *ClaimService) createClaim(ctx context.Context, submitDate core.Date, note string) (core.Claim, error) {
	actor, err := core.ActorFromContext(ctx)
	if err != nil {
		return core.Claim{}, err
	}
	if err := submitDate.Validate(); err != nil {
		return core.Claim{}, err
	}
	now := s.clock.Now()
	c := core.Claim{
		SubmitDate: submitDate,
		Status:     core.StatusDraft,
		Note:       strings.TrimSpace(note),
		CreatedBy:  actor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err = s.store.InTx(ctx, func(q *storage.Queries) error {
		id, err := q.CreateClaim(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return recordEvent(ctx, q, core.EventClaimCreated, id, c.Status, actor, now)
	})
	if err != nil {
		return core.Claim{}, err
	}
	return c, nil
}

// GetClaim returns a claim with its line items.
func (s *ClaimService) GetClaim(ctx context.Context, id int64) (core.ClaimDetail, error) {
	q := s.store.Queries()
	c, err := q.GetClaim(ctx, id)
	if err != nil {
		return core.ClaimDetail{}, err
	}
	items, err := q.ListLineItems(ctx, id)
	if err != nil {
		return core.ClaimDetail{}, err
	}
	return core.ClaimDetail{Claim: c, Items: items}, nil
}

// ClaimList is a filtered claim listing with per-status aggregates.
type ClaimList struct {
	Claims []core.ClaimSummary
	Totals []core.StatusTotal
}

func (s *ClaimService) ListClaims(ctx context.Context, f core.ClaimFilter) (ClaimList, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return ClaimList{}, fmt.Errorf("%q: %w", st, core.ErrInvalidStatus)
		}
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From.Time) {
		return ClaimList{}, core.Invalidf("date range ends before it starts")
	}
	q := s.store.Queries()
	claims, err := q.ListClaims(ctx, f)
	if err != nil {
		return ClaimList{}, err
	}
	totals, err := q.ClaimStatusTotals(ctx, f)
	if err != nil {
		return ClaimList{}, err
	}
	return ClaimList{Claims: claims, Totals: totals}, nil
}

// ListEditableClaims returns the draft and rejected claims expenses can be
// attached to, with their live totals.
func (s *ClaimService) ListEditableClaims(ctx context.Context) ([]core.ClaimSummary, error) {
	return s.store.Queries().ListClaims(ctx, core.ClaimFilter{
		Statuses: []core.ClaimStatus{core.StatusDraft, core.StatusRejected},
	})
}

// UpdateMetadata changes submit date and note of a draft or rejected claim.
func (s *ClaimService) UpdateMetadata(ctx context.Context, id int64, submitDate core.Date, note string) (core.Claim, error) {
	var updated core.Claim
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		if err := submitDate.Validate(); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			c, err := editableClaim(ctx, q, id)
			if err != nil {
				return err
			}
			if err := q.UpdateClaimMetadata(ctx, c.ID, submitDate, strings.TrimSpace(note), s.clock.Now()); err != nil {
				return err
			}
			updated, err = q.GetClaim(ctx, id)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpUpdate, err, log.NewFields().WithClaim(id))
	return updated, err
}

// editableClaim loads a claim and fails with a conflict unless its line
// items may change.
func editableClaim(ctx context.Context, q *storage.Queries, id int64) (core.Claim, error) {
	c, err := q.GetClaim(ctx, id)
	if err != nil {
		return core.Claim{}, err
	}
	if !c.Status.Editable() {
		return core.Claim{}, fmt.Errorf("claim %d is %s: %w", id, c.Status, core.ErrClaimNotEditable)
	}
	return c, nil
}

// AttachExpense adds an expense to a draft or rejected claim. A nil amount
// reimburses the expense's own amount. An expense already attached anywhere
// is rejected by the storage uniqueness constraint.
func (s *ClaimService) AttachExpense(ctx context.Context, claimID, expenseID int64, amount *core.Money) error {
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		if amount != nil {
			if err := amount.Validate(); err != nil {
				return err
			}
		}
		return s.attach(ctx, claimID, expenseID, amount)
	}()
	fields := log.NewFields().WithClaim(claimID).WithExpense(expenseID)
	finish(ctx, s.logger, log.OpAttach, err, fields)
	return err
}

func (s *ClaimService) attach(ctx context.Context, claimID, expenseID int64, amount *core.Money) error {
	return s.store.InTx(ctx, func(q *storage.Queries) error {
		if _, err := editableClaim(ctx, q, claimID); err != nil {
			return err
		}
		e, err := q.GetExpense(ctx, expenseID)
		if err != nil {
			return err
		}
		li := core.LineItem{ClaimID: claimID, ExpenseID: expenseID, Amount: e.Amount, AddedAt: s.clock.Now()}
		if amount != nil {
			li.Amount = *amount
		}
		if err := li.Amount.Validate(); err != nil {
			return fmt.Errorf("expense %d: %w", expenseID, err)
		}
		if err := q.InsertLineItem(ctx, li); err != nil {
			return fmt.Errorf("expense %d: %w", expenseID, err)
		}
		return nil
	})
}

// AttachExpenses attaches each expense independently. Items that fail with
// not-found, conflict or validation are skipped and counted; a storage
// failure stops the batch and is returned with the counts so far.
func (s *ClaimService) AttachExpenses(ctx context.Context, claimID int64, expenseIDs []int64) (core.BatchResult, error) {
	res, err := s.attachBatch(ctx, claimID, expenseIDs)
	fields := log.NewFields().WithClaim(claimID)
	fields[log.FieldCount] = res.Added
	finish(ctx, s.logger, log.OpAttachBatch, err, fields)
	return res, err
}

func (s *ClaimService) attachBatch(ctx context.Context, claimID int64, expenseIDs []int64) (core.BatchResult, error) {
	var res core.BatchResult
	if _, err := core.ActorFromContext(ctx); err != nil {
		return res, err
	}
	if len(expenseIDs) == 0 {
		return res, core.ErrEmptyBatch
	}
	if _, err := editableClaim(ctx, s.store.Queries(), claimID); err != nil {
		return res, err
	}
	for _, id := range expenseIDs {
		err := s.attach(ctx, claimID, id, nil)
		switch {
		case err == nil:
			res.Added++
		case core.KindOf(err) == core.KindStorage:
			return res, err
		default:
			s.logger.DebugContext(ctx, "Skipping expense in batch attach",
				log.FieldClaimID, claimID, log.FieldExpenseID, id, log.FieldError, err.Error())
			res.Skip(id, err)
		}
	}
	return res, nil
}

// DetachExpense removes an expense from a draft or rejected claim. Removing
// an expense that is not on the claim is a no-op.
func (s *ClaimService) DetachExpense(ctx context.Context, claimID, expenseID int64) error {
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			if _, err := editableClaim(ctx, q, claimID); err != nil {
				return err
			}
			_, err := q.DeleteLineItem(ctx, claimID, expenseID)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpDetach, err, log.NewFields().WithClaim(claimID).WithExpense(expenseID))
	return err
}

// Submit freezes the claim total as the sum of its line items and moves it
// to submitted. Rejected claims are resubmitted the same way.
func (s *ClaimService) Submit(ctx context.Context, id int64) (core.Claim, error) {
	var submitted core.Claim
	err := func() error {
		actor, err := core.ActorFromContext(ctx)
		if err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			c, err := q.GetClaim(ctx, id)
			if err != nil {
				return err
			}
			if !c.Status.Editable() {
				return fmt.Errorf("claim %d is %s: %w", id, c.Status, core.ErrClaimNotSubmittable)
			}
			count, total, err := q.LineItemTotals(ctx, id)
			if err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("submit claim %d: %w", id, core.ErrEmptyClaim)
			}
			now := s.clock.Now()
			if err := q.MarkClaimSubmitted(ctx, id, total, now); err != nil {
				return err
			}
			if err := recordEvent(ctx, q, core.EventClaimSubmitted, id, core.StatusSubmitted, actor, now); err != nil {
				return err
			}
			submitted, err = q.GetClaim(ctx, id)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpSubmit, err, log.NewFields().WithClaim(id).WithAmount(submitted.TotalAmount.Cents))
	return submitted, err
}

// Reject sends a submitted claim back for correction.
func (s *ClaimService) Reject(ctx context.Context, id int64) (core.Claim, error) {
	var rejected core.Claim
	err := func() error {
		actor, err := core.ActorFromContext(ctx)
		if err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			c, err := q.GetClaim(ctx, id)
			if err != nil {
				return err
			}
			if c.Status != core.StatusSubmitted {
				return fmt.Errorf("claim %d is %s: %w", id, c.Status, core.ErrClaimNotRejectable)
			}
			now := s.clock.Now()
			if err := q.SetClaimStatus(ctx, id, core.StatusRejected, now); err != nil {
				return err
			}
			if err := recordEvent(ctx, q, core.EventClaimRejected, id, core.StatusRejected, actor, now); err != nil {
				return err
			}
			rejected, err = q.GetClaim(ctx, id)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpReject, err, log.NewFields().WithClaim(id))
	return rejected, err
}

// DeleteClaim deletes a draft claim together with its line items.
func (s *ClaimService) DeleteClaim(ctx context.Context, id int64) error {
	err := func() error {
		actor, err := core.ActorFromContext(ctx)
		if err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			c, err := q.GetClaim(ctx, id)
			if err != nil {
				return err
			}
			if c.Status != core.StatusDraft {
				return fmt.Errorf("claim %d is %s: %w", id, c.Status, core.ErrClaimNotDeletable)
			}
			if err := q.DeleteClaim(ctx, id); err != nil {
				return err
			}
			return recordEvent(ctx, q, core.EventClaimDeleted, id, c.Status, actor, s.clock.Now())
		})
	}()
	finish(ctx, s.logger, log.OpDelete, err, log.NewFields().WithClaim(id))
	return err
}

// discardClaim removes a claim created by an operation that failed part way.
func (s *ClaimService) discardClaim(ctx context.Context, id int64) {
	actor, _ := core.ActorFromContext(ctx)
	err := s.store.InTx(ctx, func(q *storage.Queries) error {
		if err := q.DeleteClaim(ctx, id); err != nil {
			return err
		}
		return recordEvent(ctx, q, core.EventClaimDeleted, id, core.StatusDraft, actor, s.clock.Now())
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove partially created claim",
			log.FieldClaimID, id, log.FieldError, err.Error(), log.FieldErrorType, log.ErrorTypeDatabase)
	}
}

// CreateClaimWithExpenses creates a draft claim, attaches the expenses with
// batch semantics and seeds the claim total from the attached items. The
// claim stays draft. When a storage failure interrupts the batch, the new
// claim and whatever was attached to it are removed again.
func (s *ClaimService) CreateClaimWithExpenses(ctx context.Context, submitDate core.Date, note string, expenseIDs []int64) (core.Claim, core.BatchResult, error) {
	var (
		c   core.Claim
		res core.BatchResult
	)
	err := func() error {
		if len(expenseIDs) == 0 {
			return core.ErrEmptyBatch
		}
		var err error
		if c, err = s.createClaim(ctx, submitDate, note); err != nil {
			return err
		}
		id := c.ID
		if res, err = s.attachBatch(ctx, id, expenseIDs); err == nil {
			err = s.store.InTx(ctx, func(q *storage.Queries) error {
				_, total, err := q.LineItemTotals(ctx, id)
				if err != nil {
					return err
				}
				if err := q.SetClaimTotalAmount(ctx, id, total, s.clock.Now()); err != nil {
					return err
				}
				c, err = q.GetClaim(ctx, id)
				return err
			})
		}
		if err != nil {
			s.discardClaim(ctx, id)
			c = core.Claim{}
			return err
		}
		return nil
	}()
	fields := log.NewFields().WithClaim(c.ID)
	fields[log.FieldCount] = res.Added
	finish(ctx, s.logger, log.OpCreate, err, fields)
	return c, res, err
}
