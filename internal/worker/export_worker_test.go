package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reimburse/internal/amqp"
	"reimburse/internal/core"
	"reimburse/internal/services"
	"reimburse/internal/sheets/memory"
	"reimburse/internal/storage"
)

type fixture struct {
	expenses *services.ExpenseService
	claims   *services.ClaimService
	payments *services.PaymentService
	sheet    *memory.Store
	worker   *ExportWorker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	claims := services.NewClaimService(repo, nil, nil)
	sheet := memory.New()
	return &fixture{
		expenses: services.NewExpenseService(repo, nil, nil),
		claims:   claims,
		payments: services.NewPaymentService(repo, nil, nil),
		sheet:    sheet,
		worker:   NewExportWorker(claims, services.NewReportService(repo, nil), sheet, nil),
	}
}

func ctx() context.Context { return core.WithActor(context.Background(), 1) }

// submittedClaim creates a submitted claim with two expenses in one category.
func (f *fixture) submittedClaim(t *testing.T) int64 {
	t.Helper()
	c, err := f.claims.CreateClaim(ctx(), core.NewDate(2024, 1, 31), "")
	require.NoError(t, err)
	for _, day := range []int{3, 9} {
		e, err := f.expenses.CreateExpense(ctx(), core.Expense{
			Date: core.NewDate(2024, 1, day), Category: "travel", Amount: core.Money{Cents: 1500},
		})
		require.NoError(t, err)
		require.NoError(t, f.claims.AttachExpense(ctx(), c.ID, e.ID, nil))
	}
	_, err = f.claims.Submit(ctx(), c.ID)
	require.NoError(t, err)
	return c.ID
}

func event(typ core.ClaimEventType, claimID int64) *amqp.ClaimEventMessage {
	return &amqp.ClaimEventMessage{EventID: "evt", Type: typ, ClaimID: claimID}
}

func TestHandleClaimEvent_ExportsSubmittedOnce(t *testing.T) {
	f := newFixture(t)
	id := f.submittedClaim(t)

	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))
	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))

	rows := f.sheet.Rows()
	require.Len(t, rows, 1, "redelivery must not duplicate rows")
	assert.Equal(t, id, rows[0].ClaimID)
	assert.Equal(t, core.StatusSubmitted, rows[0].Status)
	assert.Equal(t, 1, rows[0].Submission)
	assert.Equal(t, core.NoProjectLabel, rows[0].ProjectName)
	assert.Equal(t, "2024-01-03~2024-01-09", rows[0].Date)
	assert.Equal(t, int64(3000), rows[0].Total.Cents)
}

func TestHandleClaimEvent_PaidAddsStatusRows(t *testing.T) {
	f := newFixture(t)
	id := f.submittedClaim(t)
	_, _, err := f.payments.RecordPayment(ctx(), id, core.NewDate(2024, 2, 15), core.Money{Cents: 3000}, "")
	require.NoError(t, err)

	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))
	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimPaid, id)))

	rows := f.sheet.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, core.StatusSubmitted, rows[0].Status)
	assert.Equal(t, core.StatusPaid, rows[1].Status)
}

func TestHandleClaimEvent_IgnoresOtherEventsAndMissingClaims(t *testing.T) {
	f := newFixture(t)

	assert.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimCreated, 1)))
	assert.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, 404)))
	assert.Empty(t, f.sheet.Rows())
}

func TestHandleClaimEvent_ResubmittedClaimIsExportedAgain(t *testing.T) {
	f := newFixture(t)
	id := f.submittedClaim(t)
	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))

	_, err := f.claims.Reject(ctx(), id)
	require.NoError(t, err)
	e, err := f.expenses.CreateExpense(ctx(), core.Expense{
		Date: core.NewDate(2024, 1, 12), Category: "meals", Amount: core.Money{Cents: 800},
	})
	require.NoError(t, err)
	require.NoError(t, f.claims.AttachExpense(ctx(), id, e.ID, nil))
	_, err = f.claims.Submit(ctx(), id)
	require.NoError(t, err)

	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))
	require.NoError(t, f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id)))

	rows := f.sheet.Rows()
	require.Len(t, rows, 3, "first round has one row, second round adds travel and meals")
	assert.Equal(t, 1, rows[0].Submission)
	for _, r := range rows[1:] {
		assert.Equal(t, 2, r.Submission)
		assert.Equal(t, core.StatusSubmitted, r.Status)
	}
}

type failingSheet struct{ *memory.Store }

func (failingSheet) ExportClaim(context.Context, core.Claim, []core.ExportRow) (string, error) {
	return "", errors.New("quota exceeded")
}

func TestHandleClaimEvent_ExportFailureIsReturned(t *testing.T) {
	f := newFixture(t)
	id := f.submittedClaim(t)
	f.worker.sheet = failingSheet{memory.New()}

	err := f.worker.HandleClaimEvent(ctx(), event(core.EventClaimSubmitted, id))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestStartupExportCheck(t *testing.T) {
	f := newFixture(t)
	submitted := f.submittedClaim(t)
	paid := f.submittedClaim(t)
	_, _, err := f.payments.RecordPayment(ctx(), paid, core.NewDate(2024, 2, 15), core.Money{Cents: 3000}, "")
	require.NoError(t, err)
	_, err = f.claims.CreateClaim(ctx(), core.NewDate(2024, 2, 1), "draft stays out")
	require.NoError(t, err)

	require.NoError(t, f.worker.StartupExportCheck(ctx()))
	require.NoError(t, f.worker.StartupExportCheck(ctx()))

	rows := f.sheet.Rows()
	require.Len(t, rows, 3)
	counts := map[int64]int{}
	for _, r := range rows {
		counts[r.ClaimID]++
	}
	assert.Equal(t, 1, counts[submitted])
	assert.Equal(t, 2, counts[paid])
}
