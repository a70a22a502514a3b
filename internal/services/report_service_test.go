package services

import (
	"context"
	"testing"

	"reimburse/internal/core"
)

func TestExportRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	p, err := env.projects.CreateProject(ctx, "Summit", "")
	must(t, err)

	claim := env.draft(t)
	for _, e := range []struct {
		cents    int64
		project  *int64
		category string
		day      int
	}{
		{1000, &p.ID, "hotel", 3},
		{2000, &p.ID, "hotel", 5},
		{500, &p.ID, "meals", 4},
		{300, nil, "meals", 4},
	} {
		created, err := env.expenses.CreateExpense(ctx, core.Expense{
			Date: core.NewDate(2024, 2, e.day), ProjectID: e.project, Category: e.category, Amount: money(e.cents),
		})
		must(t, err)
		must(t, env.claims.AttachExpense(ctx, claim, created.ID, nil))
	}

	rows, err := env.reports.ExportRows(ctx, claim)
	must(t, err)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	byKey := map[string]core.ExportRow{}
	for _, r := range rows {
		byKey[r.ProjectName+"/"+r.Category] = r
	}
	hotel := byKey["Summit/hotel"]
	if hotel.Total.Cents != 3000 || hotel.Date != "2024-02-03~2024-02-05" {
		t.Errorf("hotel row = %+v", hotel)
	}
	if got := byKey["Summit/meals"].Date; got != "2024-02-04" {
		t.Errorf("single-day row date = %q", got)
	}
	if got := byKey[core.NoProjectLabel+"/meals"].Total.Cents; got != 300 {
		t.Errorf("no-project row total = %d, want 300", got)
	}

	_, err = env.reports.ExportRows(ctx, 404)
	wantErrIs(t, err, core.ErrClaimNotFound)
}

func TestProjectStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	p, err := env.projects.CreateProject(ctx, "Roadshow", "")
	must(t, err)
	paidExp := env.expenseIn(t, 4000, &p.ID, "travel")
	pendingExp := env.expenseIn(t, 1000, &p.ID, "travel")
	env.expenseIn(t, 250, &p.ID, "travel")

	paidClaim := env.draft(t)
	must(t, env.claims.AttachExpense(ctx, paidClaim, paidExp, nil))
	_, err = env.claims.Submit(ctx, paidClaim)
	must(t, err)
	_, _, err = env.payments.RecordPayment(ctx, paidClaim, core.NewDate(2024, 3, 5), money(4000), "")
	must(t, err)
	must(t, env.claims.AttachExpense(ctx, env.draft(t), pendingExp, nil))

	stats, err := env.reports.ProjectStats(ctx)
	must(t, err)
	if len(stats) != 1 {
		t.Fatalf("expected no orphan row without orphan spend, got %d rows", len(stats))
	}
	s := stats[0]
	if s.Name != "Roadshow" {
		t.Errorf("name = %q", s.Name)
	}
	if s.Total.Cents != 5250 || s.Claimed.Cents != 5000 || s.Paid.Cents != 4000 || s.Unpaid.Cents != 1000 {
		t.Errorf("stats = total %d claimed %d paid %d unpaid %d, want 5250/5000/4000/1000",
			s.Total.Cents, s.Claimed.Cents, s.Paid.Cents, s.Unpaid.Cents)
	}

	env.expense(t, 99)
	stats, err = env.reports.ProjectStats(ctx)
	must(t, err)
	if len(stats) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(stats))
	}
	if stats[0].ProjectID != nil || stats[0].Name != core.NoProjectLabel || stats[0].Total.Cents != 99 {
		t.Errorf("orphan row = %+v", stats[0])
	}
}

func TestCategoryStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	env.expenseIn(t, 700, nil, "meals")
	claimed := env.expenseIn(t, 300, nil, "meals")
	env.expenseIn(t, 5000, nil, "hotel")
	must(t, env.claims.AttachExpense(ctx, env.draft(t), claimed, nil))

	other := core.WithActor(context.Background(), 8)
	_, err := env.expenses.CreateExpense(other, core.Expense{Date: core.NewDate(2024, 1, 1), Category: "meals", Amount: money(1)})
	must(t, err)

	stats, err := env.reports.CategoryStats(ctx)
	must(t, err)
	if len(stats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(stats))
	}
	if stats[0].Category != "hotel" || stats[1].Category != "meals" {
		t.Errorf("categories = %q, %q", stats[0].Category, stats[1].Category)
	}
	meals := stats[1]
	if meals.Count != 2 || meals.Total.Cents != 1000 {
		t.Errorf("meals count=%d total=%d, want 2 and 1000", meals.Count, meals.Total.Cents)
	}
	if meals.ClaimedCount != 1 || meals.ClaimedAmount.Cents != 300 {
		t.Errorf("meals claimed count=%d amount=%d, want 1 and 300", meals.ClaimedCount, meals.ClaimedAmount.Cents)
	}

	_, err = env.reports.CategoryStats(context.Background())
	wantErrIs(t, err, core.ErrMissingActor)
}
