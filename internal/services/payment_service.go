package services

import (
	"context"
	"fmt"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

// PaymentService records payments received against claims. A claim turns
// paid once its payments reach the submitted total; it never leaves paid.
type PaymentService struct {
	store  Store
	clock  core.Clock
	logger *log.Logger
}

func NewPaymentService(store Store, clock core.Clock, logger *log.Logger) *PaymentService {
	return &PaymentService{
		store:  store,
		clock:  clockOr(clock),
		logger: loggerOr(logger, log.ComponentPayments),
	}
}

// RecordPayment appends a payment, refreshes the claim's total paid and
// promotes the claim to paid when the total is covered. All three changes
// commit together.
func (s *PaymentService) RecordPayment(ctx context.Context, claimID int64, date core.Date, amount core.Money, note string) (core.Payment, core.Claim, error) {
	var (
		p     core.Payment
		claim core.Claim
	)
	err := func() error {
		actor, err := core.ActorFromContext(ctx)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		p = core.Payment{ClaimID: claimID, Date: date, Amount: amount, Note: strings.TrimSpace(note), CreatedAt: now}
		if err := p.Validate(); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			c, err := q.GetClaim(ctx, claimID)
			if err != nil {
				return err
			}
			if !c.Status.AcceptsPayments() {
				return fmt.Errorf("claim %d is %s: %w", claimID, c.Status, core.ErrPaymentOnDraft)
			}
			if p.ID, err = q.InsertPayment(ctx, p); err != nil {
				return err
			}
			paid, err := q.SumPayments(ctx, claimID)
			if err != nil {
				return err
			}
			if err := q.SetClaimTotalPaid(ctx, claimID, paid, now); err != nil {
				return err
			}
			if paid.Cents >= c.TotalAmount.Cents && c.Status != core.StatusPaid {
				if err := q.SetClaimStatus(ctx, claimID, core.StatusPaid, now); err != nil {
					return err
				}
				if err := recordEvent(ctx, q, core.EventClaimPaid, claimID, core.StatusPaid, actor, now); err != nil {
					return err
				}
			}
			claim, err = q.GetClaim(ctx, claimID)
			return err
		})
	}()
	if err != nil {
		p, claim = core.Payment{}, core.Claim{}
	}
	fields := log.NewFields().WithClaim(claimID).WithAmount(amount.Cents)
	if err == nil {
		fields[log.FieldPaymentID] = p.ID
		fields[log.FieldStatus] = string(claim.Status)
	}
	finish(ctx, s.logger, log.OpRecordPayment, err, fields)
	return p, claim, err
}

// ListPayments returns a claim's payments in the order they were recorded.
func (s *PaymentService) ListPayments(ctx context.Context, claimID int64) ([]core.Payment, error) {
	q := s.store.Queries()
	if _, err := q.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	return q.ListPayments(ctx, claimID)
}
