package services

import (
	"context"
	"slices"
	"sync"
	"testing"

	"reimburse/internal/core"
)

func TestClaimLifecycle_SubmitAndPay(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	c, err := env.claims.CreateClaim(ctx, core.NewDate(2024, 1, 1), "january trip")
	must(t, err)
	if c.Status != core.StatusDraft || c.TotalAmount.Cents != 0 {
		t.Fatalf("new claim should be an empty draft, got %+v", c)
	}

	a, b := env.expense(t, 10000), env.expense(t, 5000)
	must(t, env.claims.AttachExpense(ctx, c.ID, a, nil))
	must(t, env.claims.AttachExpense(ctx, c.ID, b, nil))

	submitted, err := env.claims.Submit(ctx, c.ID)
	must(t, err)
	if submitted.Status != core.StatusSubmitted {
		t.Errorf("status = %s, want submitted", submitted.Status)
	}
	if submitted.TotalAmount.Cents != 15000 {
		t.Errorf("total = %d, want 15000", submitted.TotalAmount.Cents)
	}
	if submitted.Submissions != 1 {
		t.Errorf("submissions = %d, want 1", submitted.Submissions)
	}

	_, paid, err := env.payments.RecordPayment(ctx, c.ID, core.NewDate(2024, 2, 1), money(15000), "")
	must(t, err)
	if paid.Status != core.StatusPaid || paid.TotalPaid.Cents != 15000 {
		t.Errorf("expected paid claim with 15000 paid, got %+v", paid)
	}

	err = env.claims.AttachExpense(ctx, c.ID, env.expense(t, 700), nil)
	wantKind(t, err, core.KindConflict)
}

func TestAttachExpense_AlreadyClaimedElsewhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	a := env.expense(t, 10000)
	first, second := env.draft(t), env.draft(t)
	must(t, env.claims.AttachExpense(ctx, first, a, nil))

	err := env.claims.AttachExpense(ctx, second, a, nil)
	wantErrIs(t, err, core.ErrExpenseAlreadyClaimed)
	wantKind(t, err, core.KindConflict)

	detail, err := env.claims.GetClaim(ctx, first)
	must(t, err)
	if len(detail.Items) != 1 || detail.Items[0].ExpenseID != a || detail.Items[0].Amount.Cents != 10000 {
		t.Fatalf("first claim's line item changed: %+v", detail.Items)
	}

	claimID, claimed, err := env.expenses.IsClaimed(ctx, a)
	must(t, err)
	if !claimed || claimID != first {
		t.Errorf("IsClaimed = (%d, %v), want (%d, true)", claimID, claimed, first)
	}
}

func TestAttachExpense_ConcurrentAttachOneWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	const workers = 8
	for round := 0; round < 3; round++ {
		exp := env.expense(t, 2500)
		claims := make([]int64, workers)
		for i := range claims {
			claims[i] = env.draft(t)
		}

		errs := make([]error, workers)
		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				errs[i] = env.claims.AttachExpense(ctx, claims[i], exp, nil)
			}(i)
		}
		close(start)
		wg.Wait()

		winner, conflicts := int64(0), 0
		for i, err := range errs {
			switch {
			case err == nil:
				if winner != 0 {
					t.Fatalf("round %d: expense attached to claims %d and %d", round, winner, claims[i])
				}
				winner = claims[i]
			case core.IsKind(err, core.KindConflict):
				conflicts++
			default:
				t.Fatalf("round %d: unexpected error: %v", round, err)
			}
		}
		if winner == 0 || conflicts != workers-1 {
			t.Fatalf("round %d: want 1 success and %d conflicts, got winner=%d conflicts=%d",
				round, workers-1, winner, conflicts)
		}

		owner, claimed, err := env.expenses.IsClaimed(ctx, exp)
		must(t, err)
		if !claimed || owner != winner {
			t.Errorf("round %d: expense owned by %d, want %d", round, owner, winner)
		}
	}
}

func TestAttachExpense_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()
	claim := env.draft(t)
	exp := env.expense(t, 1000)
	zero := env.expense(t, 0)

	tests := []struct {
		name    string
		ctx     context.Context
		claimID int64
		expense int64
		amount  *core.Money
		want    error
	}{
		{"missing actor", context.Background(), claim, exp, nil, core.ErrMissingActor},
		{"unknown claim", ctx, 999, exp, nil, core.ErrClaimNotFound},
		{"unknown expense", ctx, claim, 999, nil, core.ErrExpenseNotFound},
		{"zero override", ctx, claim, exp, &core.Money{}, core.ErrInvalidAmount},
		{"zero expense amount", ctx, claim, zero, nil, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.claims.AttachExpense(tt.ctx, tt.claimID, tt.expense, tt.amount)
			wantErrIs(t, err, tt.want)
		})
	}

	partial := money(400)
	must(t, env.claims.AttachExpense(ctx, claim, exp, &partial))
	detail, err := env.claims.GetClaim(ctx, claim)
	must(t, err)
	if len(detail.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(detail.Items))
	}
	if detail.Items[0].Amount.Cents != 400 || detail.Items[0].ExpenseAmount.Cents != 1000 {
		t.Errorf("line item = %+v, want 400 of 1000", detail.Items[0])
	}
}

func TestAttachExpenses_SkipsClaimed(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	a, b, c := env.expense(t, 1000), env.expense(t, 2000), env.expense(t, 3000)
	other := env.draft(t)
	must(t, env.claims.AttachExpense(ctx, other, b, nil))

	target := env.draft(t)
	res, err := env.claims.AttachExpenses(ctx, target, []int64{a, b, c})
	must(t, err)
	if res.Added != 2 || res.Skipped != 1 {
		t.Fatalf("added=%d skipped=%d, want 2 and 1", res.Added, res.Skipped)
	}
	if len(res.Skips) != 1 || res.Skips[0].ExpenseID != b || res.Skips[0].Code != core.KindConflict {
		t.Errorf("unexpected skips: %+v", res.Skips)
	}

	submitted, err := env.claims.Submit(ctx, target)
	must(t, err)
	if submitted.TotalAmount.Cents != 4000 {
		t.Errorf("total = %d, want 4000", submitted.TotalAmount.Cents)
	}
}

func TestAttachExpenses_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	_, err := env.claims.AttachExpenses(ctx, env.draft(t), nil)
	wantErrIs(t, err, core.ErrEmptyBatch)

	_, err = env.claims.AttachExpenses(ctx, 404, []int64{env.expense(t, 100)})
	wantErrIs(t, err, core.ErrClaimNotFound)

	sub := env.submitted(t, 100)
	_, err = env.claims.AttachExpenses(ctx, sub, []int64{env.expense(t, 100)})
	wantErrIs(t, err, core.ErrClaimNotEditable)
}

func TestCreateClaimWithExpenses(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	a, b := env.expense(t, 1250), env.expense(t, 750)
	taken := env.expense(t, 999)
	must(t, env.claims.AttachExpense(ctx, env.draft(t), taken, nil))

	c, res, err := env.claims.CreateClaimWithExpenses(ctx, core.NewDate(2024, 3, 1), "bundle", []int64{a, taken, b, 12345})
	must(t, err)
	if c.Status != core.StatusDraft {
		t.Errorf("status = %s, want draft", c.Status)
	}
	if c.TotalAmount.Cents != 2000 {
		t.Errorf("total = %d, want 2000", c.TotalAmount.Cents)
	}
	if res.Added != 2 || res.Skipped != 2 {
		t.Errorf("added=%d skipped=%d, want 2 and 2", res.Added, res.Skipped)
	}
}

func TestCreateClaimWithExpenses_StorageFailureRemovesClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()
	a, b := env.expense(t, 1000), env.expense(t, 2000)

	// Transactions: create claim, attach a, attach b (fails), cleanup.
	flaky := &flakyStore{Store: env.repo, failOn: 3}
	claims := NewClaimService(flaky, testClock, nil)

	c, res, err := claims.CreateClaimWithExpenses(ctx, core.NewDate(2024, 3, 1), "", []int64{a, b})
	wantKind(t, err, core.KindStorage)
	wantErrIs(t, err, errDiskIO)
	if c.ID != 0 {
		t.Errorf("failed operation returned claim %+v", c)
	}
	if res.Added != 1 {
		t.Errorf("added = %d before the failure, want 1", res.Added)
	}

	list, err := env.claims.ListClaims(ctx, core.ClaimFilter{})
	must(t, err)
	if len(list.Claims) != 0 {
		t.Fatalf("partial claim left behind: %+v", list.Claims)
	}
	if _, claimed, err := env.expenses.IsClaimed(ctx, a); err != nil || claimed {
		t.Errorf("expense %d should be free again: claimed=%v err=%v", a, claimed, err)
	}
}

func TestSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	t.Run("empty claim stays draft", func(t *testing.T) {
		id := env.draft(t)
		_, err := env.claims.Submit(ctx, id)
		wantErrIs(t, err, core.ErrEmptyClaim)
		wantKind(t, err, core.KindValidation)

		detail, err := env.claims.GetClaim(ctx, id)
		must(t, err)
		if detail.Status != core.StatusDraft || detail.Submissions != 0 {
			t.Errorf("claim changed: %+v", detail.Claim)
		}
	})

	t.Run("submitted claim is frozen", func(t *testing.T) {
		id := env.submitted(t, 500)
		detail, err := env.claims.GetClaim(ctx, id)
		must(t, err)

		wantErrIs(t, env.claims.AttachExpense(ctx, id, env.expense(t, 100), nil), core.ErrClaimNotEditable)
		wantErrIs(t, env.claims.DetachExpense(ctx, id, detail.Items[0].ExpenseID), core.ErrClaimNotEditable)

		_, err = env.claims.Submit(ctx, id)
		wantErrIs(t, err, core.ErrClaimNotSubmittable)
	})

	t.Run("unknown claim", func(t *testing.T) {
		_, err := env.claims.Submit(ctx, 404)
		wantErrIs(t, err, core.ErrClaimNotFound)
	})
}

func TestRejectedClaimResubmitRecomputesTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	first := env.expense(t, 10000)
	id := env.draft(t)
	must(t, env.claims.AttachExpense(ctx, id, first, nil))
	submitted, err := env.claims.Submit(ctx, id)
	must(t, err)
	if submitted.TotalAmount.Cents != 10000 {
		t.Fatalf("first total = %d, want 10000", submitted.TotalAmount.Cents)
	}

	rejected, err := env.claims.Reject(ctx, id)
	must(t, err)
	if rejected.Status != core.StatusRejected {
		t.Fatalf("status = %s, want rejected", rejected.Status)
	}

	must(t, env.claims.DetachExpense(ctx, id, first))
	must(t, env.claims.AttachExpense(ctx, id, env.expense(t, 2500), nil))
	must(t, env.claims.AttachExpense(ctx, id, env.expense(t, 1500), nil))

	resubmitted, err := env.claims.Submit(ctx, id)
	must(t, err)
	if resubmitted.Status != core.StatusSubmitted || resubmitted.TotalAmount.Cents != 4000 {
		t.Errorf("resubmitted claim = %+v, want submitted with 4000", resubmitted)
	}
	if resubmitted.Submissions != 2 {
		t.Errorf("submissions = %d, want 2", resubmitted.Submissions)
	}

	_, claimed, err := env.expenses.IsClaimed(ctx, first)
	must(t, err)
	if claimed {
		t.Error("detached expense should be free")
	}
}

func TestReject_OnlySubmitted(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.claims.Reject(actorCtx(), env.draft(t))
	wantErrIs(t, err, core.ErrClaimNotRejectable)
}

func TestDetachExpense_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	id := env.draft(t)
	exp := env.expense(t, 100)
	must(t, env.claims.AttachExpense(ctx, id, exp, nil))
	must(t, env.claims.DetachExpense(ctx, id, exp))
	must(t, env.claims.DetachExpense(ctx, id, exp))

	// The expense is free again.
	must(t, env.claims.AttachExpense(ctx, env.draft(t), exp, nil))
}

func TestDeleteClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	t.Run("draft releases its expenses", func(t *testing.T) {
		id := env.draft(t)
		exp := env.expense(t, 100)
		must(t, env.claims.AttachExpense(ctx, id, exp, nil))
		must(t, env.claims.DeleteClaim(ctx, id))

		_, err := env.claims.GetClaim(ctx, id)
		wantErrIs(t, err, core.ErrClaimNotFound)
		_, claimed, err := env.expenses.IsClaimed(ctx, exp)
		must(t, err)
		if claimed {
			t.Error("expense of a deleted claim should be free")
		}
	})

	nonDraft := map[string]func(t *testing.T) int64{
		"submitted": func(t *testing.T) int64 { return env.submitted(t, 100) },
		"rejected": func(t *testing.T) int64 {
			id := env.submitted(t, 100)
			_, err := env.claims.Reject(ctx, id)
			must(t, err)
			return id
		},
		"paid": func(t *testing.T) int64 {
			id := env.submitted(t, 100)
			_, _, err := env.payments.RecordPayment(ctx, id, core.NewDate(2024, 3, 2), money(100), "")
			must(t, err)
			return id
		},
	}
	for name, setup := range nonDraft {
		t.Run(name, func(t *testing.T) {
			id := setup(t)
			err := env.claims.DeleteClaim(ctx, id)
			wantErrIs(t, err, core.ErrClaimNotDeletable)

			detail, err := env.claims.GetClaim(ctx, id)
			must(t, err)
			if len(detail.Items) != 1 {
				t.Errorf("items = %d after refused delete, want 1", len(detail.Items))
			}
		})
	}
}

func TestUpdateMetadata(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	id := env.draft(t)
	updated, err := env.claims.UpdateMetadata(ctx, id, core.NewDate(2024, 4, 15), "  revised  ")
	must(t, err)
	if updated.SubmitDate.String() != "2024-04-15" || updated.Note != "revised" {
		t.Errorf("unexpected metadata: %+v", updated)
	}

	_, err = env.claims.UpdateMetadata(ctx, id, core.Date{}, "")
	wantErrIs(t, err, core.ErrMissingDate)

	sub := env.submitted(t, 100)
	_, err = env.claims.UpdateMetadata(ctx, sub, core.NewDate(2024, 4, 15), "")
	wantErrIs(t, err, core.ErrClaimNotEditable)
}

func TestListClaims(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	draft := env.draft(t)
	must(t, env.claims.AttachExpense(ctx, draft, env.expense(t, 300), nil))
	env.submitted(t, 1000, 2000)
	rejected := env.submitted(t, 50)
	_, err := env.claims.Reject(ctx, rejected)
	must(t, err)

	all, err := env.claims.ListClaims(ctx, core.ClaimFilter{})
	must(t, err)
	if len(all.Claims) != 3 {
		t.Fatalf("expected 3 claims, got %d", len(all.Claims))
	}

	byStatus := map[core.ClaimStatus]core.StatusTotal{}
	for _, st := range all.Totals {
		byStatus[st.Status] = st
	}
	if got := byStatus[core.StatusSubmitted]; got.Count != 1 || got.Total.Cents != 3000 {
		t.Errorf("submitted aggregate = %+v, want 1 claim totalling 3000", got)
	}

	editable, err := env.claims.ListEditableClaims(ctx)
	must(t, err)
	var ids []int64
	for _, c := range editable {
		ids = append(ids, c.ID)
		if c.ID == draft && (c.ItemCount != 1 || c.ItemsTotal.Cents != 300) {
			t.Errorf("draft summary = %+v, want 1 item totalling 300", c)
		}
	}
	slices.Sort(ids)
	if want := []int64{draft, rejected}; !slices.Equal(ids, want) {
		t.Errorf("editable claims = %v, want %v", ids, want)
	}

	_, err = env.claims.ListClaims(ctx, core.ClaimFilter{Statuses: []core.ClaimStatus{"archived"}})
	wantErrIs(t, err, core.ErrInvalidStatus)
}

func TestClaimOperationsRequireActor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.claims.CreateClaim(ctx, core.NewDate(2024, 1, 1), "")
	wantErrIs(t, err, core.ErrMissingActor)
	_, err = env.claims.Submit(ctx, 1)
	wantErrIs(t, err, core.ErrMissingActor)
	wantErrIs(t, env.claims.DeleteClaim(ctx, 1), core.ErrMissingActor)
}
