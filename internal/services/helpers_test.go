package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"reimburse/internal/core"
	"reimburse/internal/storage"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testClock = fixedClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

type testEnv struct {
	repo     *storage.SQLiteRepository
	expenses *ExpenseService
	projects *ProjectService
	claims   *ClaimService
	payments *PaymentService
	reports  *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "svc.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return &testEnv{
		repo:     repo,
		expenses: NewExpenseService(repo, testClock, nil),
		projects: NewProjectService(repo, testClock, nil),
		claims:   NewClaimService(repo, testClock, nil),
		payments: NewPaymentService(repo, testClock, nil),
		reports:  NewReportService(repo, nil),
	}
}

func actorCtx() context.Context {
	return core.WithActor(context.Background(), 7)
}

func money(cents int64) core.Money { return core.Money{Cents: cents} }

func (e *testEnv) expense(t *testing.T, cents int64) int64 {
	t.Helper()
	return e.expenseIn(t, cents, nil, "travel")
}

func (e *testEnv) expenseIn(t *testing.T, cents int64, projectID *int64, category string) int64 {
	t.Helper()
	created, err := e.expenses.CreateExpense(actorCtx(), core.Expense{
		Date:        core.NewDate(2024, 2, 10),
		ProjectID:   projectID,
		Category:    category,
		Amount:      money(cents),
		Description: "test expense",
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return created.ID
}

func (e *testEnv) draft(t *testing.T) int64 {
	t.Helper()
	c, err := e.claims.CreateClaim(actorCtx(), core.NewDate(2024, 3, 1), "")
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	return c.ID
}

// submitted creates a claim holding expenses of the given amounts and submits it.
func (e *testEnv) submitted(t *testing.T, amounts ...int64) int64 {
	t.Helper()
	ctx := actorCtx()
	id := e.draft(t)
	for _, cents := range amounts {
		if err := e.claims.AttachExpense(ctx, id, e.expense(t, cents), nil); err != nil {
			t.Fatalf("attach: %v", err)
		}
	}
	if _, err := e.claims.Submit(ctx, id); err != nil {
		t.Fatalf("submit: %v", err)
	}
	return id
}

// recordingPublisher collects published events; failFor makes publishing of
// the matching event types fail.
type recordingPublisher struct {
	mu        sync.Mutex
	published []core.ClaimEvent
	failFor   map[core.ClaimEventType]bool
}

func (p *recordingPublisher) PublishClaimEvent(_ context.Context, e core.ClaimEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[e.Type] {
		return errBrokerDown
	}
	p.published = append(p.published, e)
	return nil
}

type brokerError string

func (e brokerError) Error() string { return string(e) }

const errBrokerDown = brokerError("broker unavailable")

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func wantErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("expected %v, got %v", target, err)
	}
}

func wantKind(t *testing.T, err error, kind core.ErrorKind) {
	t.Helper()
	if !core.IsKind(err, kind) {
		t.Errorf("expected %s error, got %v", kind, err)
	}
}

// flakyStore fails the failOn-th transaction (1-based) with a driver error.
type flakyStore struct {
	Store
	mu     sync.Mutex
	calls  int
	failOn int
}

var errDiskIO = errors.New("disk I/O error")

func (s *flakyStore) InTx(ctx context.Context, fn func(*storage.Queries) error) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls == s.failOn
	s.mu.Unlock()
	if fail {
		return errDiskIO
	}
	return s.Store.InTx(ctx, fn)
}
