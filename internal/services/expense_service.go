package services

import (
	"context"
	"fmt"
	"strings"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

// ExpenseService is the expense ledger: CRUD over expenses plus the
// "is this expense claimed" query used by the claim manager.
type ExpenseService struct {
	store  Store
	clock  core.Clock
	logger *log.Logger
}

func NewExpenseService(store Store, clock core.Clock, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		store:  store,
		clock:  clockOr(clock),
		logger: loggerOr(logger, log.ComponentLedger),
	}
}

// CreateExpense records a new expense for the acting user.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var created core.Expense
	err := s.createExpense(ctx, e, &created)
	finish(ctx, s.logger, log.OpCreate, err, log.NewFields().WithExpense(created.ID).WithAmount(e.Amount.Cents))
	return created, err
}

func (s *ExpenseService) createExpense(ctx context.Context, e core.Expense, out *core.Expense) error {
	actor, err := core.ActorFromContext(ctx)
	if err != nil {
		return err
	}
	e.Category = core.NormalizeCategory(e.Category)
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return err
	}
	now := s.clock.Now()
	e.CreatedBy = actor
	e.CreatedAt, e.UpdatedAt = now, now

	return s.store.InTx(ctx, func(q *storage.Queries) error {
		if e.ProjectID != nil {
			if _, err := q.GetProject(ctx, *e.ProjectID); err != nil {
				return err
			}
		}
		id, err := q.CreateExpense(ctx, e)
		if err != nil {
			return err
		}
		*out, err = q.GetExpense(ctx, id)
		return err
	})
}

func (s *ExpenseService) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	return s.store.Queries().GetExpense(ctx, id)
}

// UpdateExpense replaces the editable fields of an expense. Attached expenses
// may be edited; their line-item amounts are not touched.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var updated core.Expense
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		e.Category = core.NormalizeCategory(e.Category)
		e.Description = strings.TrimSpace(e.Description)
		if err := e.Validate(); err != nil {
			return err
		}
		e.UpdatedAt = s.clock.Now()
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			if e.ProjectID != nil {
				if _, err := q.GetProject(ctx, *e.ProjectID); err != nil {
					return err
				}
			}
			if err := q.UpdateExpense(ctx, e); err != nil {
				return err
			}
			var err error
			updated, err = q.GetExpense(ctx, e.ID)
			return err
		})
	}()
	finish(ctx, s.logger, log.OpUpdate, err, log.NewFields().WithExpense(e.ID))
	return updated, err
}

// DeleteExpense removes an expense that is not attached to any claim.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id int64) error {
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			if _, err := q.GetExpense(ctx, id); err != nil {
				return err
			}
			if claimID, attached, err := q.ExpenseClaim(ctx, id); err != nil {
				return err
			} else if attached {
				return fmt.Errorf("delete expense %d (claim %d): %w", id, claimID, core.ErrExpenseClaimed)
			}
			return q.DeleteExpense(ctx, id)
		})
	}()
	finish(ctx, s.logger, log.OpDelete, err, log.NewFields().WithExpense(id))
	return err
}

// IsClaimed reports the claim the expense is attached to, if any.
func (s *ExpenseService) IsClaimed(ctx context.Context, id int64) (int64, bool, error) {
	q := s.store.Queries()
	if _, err := q.GetExpense(ctx, id); err != nil {
		return 0, false, err
	}
	return q.ExpenseClaim(ctx, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, f core.ExpenseFilter) ([]core.Expense, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, core.Invalidf("limit and offset must not be negative")
	}
	return s.store.Queries().ListExpenses(ctx, f)
}

// ListOrphans returns expenses that have no project, newest first.
func (s *ExpenseService) ListOrphans(ctx context.Context) ([]core.Expense, error) {
	return s.store.Queries().ListExpenses(ctx, core.ExpenseFilter{NoProject: true, Sort: core.SortByDate, Desc: true})
}

// AssignProject moves the given expenses to projectID, or clears their
// project when projectID is nil. Unknown expense ids are ignored; the number
// of updated expenses is returned.
func (s *ExpenseService) AssignProject(ctx context.Context, projectID *int64, expenseIDs []int64) (int, error) {
	updated := 0
	err := func() error {
		if _, err := core.ActorFromContext(ctx); err != nil {
			return err
		}
		if len(expenseIDs) == 0 {
			return core.ErrEmptyBatch
		}
		now := s.clock.Now()
		return s.store.InTx(ctx, func(q *storage.Queries) error {
			if projectID != nil {
				if _, err := q.GetProject(ctx, *projectID); err != nil {
					return err
				}
			}
			for _, id := range expenseIDs {
				ok, err := q.SetExpenseProject(ctx, id, projectID, now)
				if err != nil {
					return err
				}
				if ok {
					updated++
				}
			}
			return nil
		})
	}()
	if err != nil {
		updated = 0
	}
	finish(ctx, s.logger, log.OpAssignProject, err, log.NewFields())
	return updated, err
}

// ImportRow is one raw row of an expense import, as read from a file.
type ImportRow struct {
	Date          string
	Amount        string
	Project       string
	Category      string
	Description   string
	PaymentMethod string
	Note          string
}

type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// ImportExpenses creates one expense per row. Rows are independent: a bad row
// is reported by its 1-based index and the rest are still imported. Project
// names must match existing projects.
func (s *ExpenseService) ImportExpenses(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	var res ImportResult
	if _, err := core.ActorFromContext(ctx); err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, core.ErrEmptyBatch
	}

	projects := map[string]int64{}
	for i, row := range rows {
		e, err := s.parseImportRow(ctx, row, projects)
		if err == nil {
			var created core.Expense
			err = s.createExpense(ctx, e, &created)
		}
		if err != nil {
			if core.KindOf(err) == core.KindStorage {
				finish(ctx, s.logger, log.OpImport, err, log.NewFields())
				return res, fmt.Errorf("import row %d: %w", i+1, err)
			}
			res.Errors = append(res.Errors, ImportError{Row: i + 1, Message: err.Error()})
			continue
		}
		res.Imported++
	}
	s.logger.InfoContext(ctx, "Expense import finished",
		log.FieldOperation, log.OpImport, log.FieldCount, res.Imported, "failed_rows", len(res.Errors))
	return res, nil
}

func (s *ExpenseService) parseImportRow(ctx context.Context, row ImportRow, projects map[string]int64) (core.Expense, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, err
	}
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("amount %q: %w", row.Amount, err)
	}
	e := core.Expense{
		Date:          date,
		Amount:        amount,
		Category:      row.Category,
		Description:   row.Description,
		PaymentMethod: strings.TrimSpace(row.PaymentMethod),
		Note:          strings.TrimSpace(row.Note),
	}
	if name := strings.TrimSpace(row.Project); name != "" {
		id, ok := projects[name]
		if !ok {
			p, err := s.store.Queries().GetProjectByName(ctx, name)
			if err != nil {
				return core.Expense{}, fmt.Errorf("project %q: %w", name, err)
			}
			id = p.ID
			projects[name] = id
		}
		e.ProjectID = &id
	}
	return e, nil
}
