package http

import (
	"time"

	"reimburse/internal/core"
	"reimburse/internal/services"
)

// Request bodies. Amounts accept JSON numbers or strings; dates are YYYY-MM-DD.

type expenseRequest struct {
	Date          core.Date  `json:"date"`
	ProjectID     *int64     `json:"project_id" validate:"omitempty,gt=0"`
	Category      string     `json:"category" validate:"max=100"`
	Amount        core.Money `json:"amount"`
	Description   string     `json:"description" validate:"max=500"`
	PaymentMethod string     `json:"payment_method" validate:"max=50"`
	Note          string     `json:"note" validate:"max=500"`
}

func (r expenseRequest) expense(id int64) core.Expense {
	return core.Expense{
		ID:            id,
		Date:          r.Date,
		ProjectID:     r.ProjectID,
		Category:      sanitizeInput(r.Category),
		Amount:        r.Amount,
		Description:   sanitizeInput(r.Description),
		PaymentMethod: sanitizeInput(r.PaymentMethod),
		Note:          sanitizeInput(r.Note),
	}
}

type assignProjectRequest struct {
	ProjectID  *int64  `json:"project_id" validate:"omitempty,gt=0"`
	ExpenseIDs []int64 `json:"expense_ids" validate:"required,min=1,dive,gt=0"`
}

type importRequest struct {
	Rows []importRowRequest `json:"rows" validate:"required,min=1,max=1000"`
}

type importRowRequest struct {
	Date          string `json:"date"`
	Amount        string `json:"amount"`
	Project       string `json:"project"`
	Category      string `json:"category"`
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"`
	Note          string `json:"note"`
}

func (r importRequest) rows() []services.ImportRow {
	out := make([]services.ImportRow, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = services.ImportRow{
			Date:          sanitizeInput(row.Date),
			Amount:        sanitizeInput(row.Amount),
			Project:       sanitizeInput(row.Project),
			Category:      sanitizeInput(row.Category),
			Description:   sanitizeInput(row.Description),
			PaymentMethod: sanitizeInput(row.PaymentMethod),
			Note:          sanitizeInput(row.Note),
		}
	}
	return out
}

type projectRequest struct {
	Name   string `json:"name" validate:"required,max=100"`
	Note   string `json:"note" validate:"max=500"`
	Status string `json:"status" validate:"omitempty,oneof=active completed"`
}

type claimRequest struct {
	SubmitDate core.Date `json:"submit_date"`
	Note       string    `json:"note" validate:"max=500"`
	ExpenseIDs []int64   `json:"expense_ids" validate:"omitempty,dive,gt=0"`
}

type claimMetadataRequest struct {
	SubmitDate core.Date `json:"submit_date"`
	Note       string    `json:"note" validate:"max=500"`
}

// attachRequest adds one expense, optionally with its own reimbursement
// amount, or a batch of expenses at their recorded amounts.
type attachRequest struct {
	ExpenseID  int64       `json:"expense_id" validate:"omitempty,gt=0"`
	Amount     *core.Money `json:"amount"`
	ExpenseIDs []int64     `json:"expense_ids" validate:"omitempty,dive,gt=0"`
}

type paymentRequest struct {
	Date   core.Date  `json:"date"`
	Amount core.Money `json:"amount"`
	Note   string     `json:"note" validate:"max=500"`
}

// Response bodies.

type expenseJSON struct {
	ID            int64            `json:"id"`
	Date          core.Date        `json:"date"`
	ProjectID     *int64           `json:"project_id"`
	ProjectName   string           `json:"project_name,omitempty"`
	Category      string           `json:"category"`
	Amount        core.Money       `json:"amount"`
	Description   string           `json:"description"`
	PaymentMethod string           `json:"payment_method,omitempty"`
	Note          string           `json:"note,omitempty"`
	CreatedBy     core.UserID      `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	ClaimID       *int64           `json:"claim_id"`
	ClaimStatus   core.ClaimStatus `json:"claim_status,omitempty"`
	PaymentState  string           `json:"payment_state"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	return expenseJSON{
		ID:            e.ID,
		Date:          e.Date,
		ProjectID:     e.ProjectID,
		ProjectName:   e.ProjectName,
		Category:      e.Category,
		Amount:        e.Amount,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		Note:          e.Note,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
		ClaimID:       e.ClaimID,
		ClaimStatus:   e.ClaimStatus,
		PaymentState:  e.PaymentState(),
	}
}

func toExpensesJSON(in []core.Expense) []expenseJSON {
	out := make([]expenseJSON, len(in))
	for i, e := range in {
		out[i] = toExpenseJSON(e)
	}
	return out
}

type projectJSON struct {
	ID        int64              `json:"id"`
	Name      string             `json:"name"`
	Note      string             `json:"note,omitempty"`
	Status    core.ProjectStatus `json:"status"`
	CreatedBy core.UserID        `json:"created_by"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

func toProjectJSON(p core.Project) projectJSON {
	return projectJSON{
		ID:        p.ID,
		Name:      p.Name,
		Note:      p.Note,
		Status:    p.Status,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type claimJSON struct {
	ID          int64            `json:"id"`
	SubmitDate  core.Date        `json:"submit_date"`
	Status      core.ClaimStatus `json:"status"`
	TotalAmount core.Money       `json:"total_amount"`
	TotalPaid   core.Money       `json:"total_paid"`
	Outstanding core.Money       `json:"outstanding"`
	Note        string           `json:"note,omitempty"`
	Submissions int              `json:"submissions"`
	CreatedBy   core.UserID      `json:"created_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func toClaimJSON(c core.Claim) claimJSON {
	return claimJSON{
		ID:          c.ID,
		SubmitDate:  c.SubmitDate,
		Status:      c.Status,
		TotalAmount: c.TotalAmount,
		TotalPaid:   c.TotalPaid,
		Outstanding: c.Outstanding(),
		Note:        c.Note,
		Submissions: c.Submissions,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

type lineItemJSON struct {
	ExpenseID     int64      `json:"expense_id"`
	Amount        core.Money `json:"amount"`
	AddedAt       time.Time  `json:"added_at"`
	ExpenseDate   core.Date  `json:"expense_date"`
	ExpenseAmount core.Money `json:"expense_amount"`
	ProjectName   string     `json:"project_name"`
	Category      string     `json:"category"`
	Description   string     `json:"description"`
}

type claimDetailJSON struct {
	claimJSON
	Items []lineItemJSON `json:"items"`
}

func toClaimDetailJSON(d core.ClaimDetail) claimDetailJSON {
	out := claimDetailJSON{claimJSON: toClaimJSON(d.Claim), Items: make([]lineItemJSON, len(d.Items))}
	for i, it := range d.Items {
		project := it.ProjectName
		if project == "" {
			project = core.NoProjectLabel
		}
		out.Items[i] = lineItemJSON{
			ExpenseID:     it.ExpenseID,
			Amount:        it.Amount,
			AddedAt:       it.AddedAt,
			ExpenseDate:   it.ExpenseDate,
			ExpenseAmount: it.ExpenseAmount,
			ProjectName:   project,
			Category:      it.Category,
			Description:   it.Description,
		}
	}
	return out
}

type claimSummaryJSON struct {
	claimJSON
	ItemCount  int        `json:"item_count"`
	ItemsTotal core.Money `json:"items_total"`
}

func toClaimSummariesJSON(in []core.ClaimSummary) []claimSummaryJSON {
	out := make([]claimSummaryJSON, len(in))
	for i, s := range in {
		out[i] = claimSummaryJSON{claimJSON: toClaimJSON(s.Claim), ItemCount: s.ItemCount, ItemsTotal: s.ItemsTotal}
	}
	return out
}

type statusTotalJSON struct {
	Status core.ClaimStatus `json:"status"`
	Count  int              `json:"count"`
	Total  core.Money       `json:"total"`
}

type claimListJSON struct {
	Claims []claimSummaryJSON `json:"claims"`
	Totals []statusTotalJSON  `json:"totals"`
}

func toClaimListJSON(l services.ClaimList) claimListJSON {
	out := claimListJSON{
		Claims: toClaimSummariesJSON(l.Claims),
		Totals: make([]statusTotalJSON, len(l.Totals)),
	}
	for i, t := range l.Totals {
		out.Totals[i] = statusTotalJSON{Status: t.Status, Count: t.Count, Total: t.Total}
	}
	return out
}

type claimBatchJSON struct {
	Claim claimJSON        `json:"claim"`
	Batch core.BatchResult `json:"batch"`
}

type paymentJSON struct {
	ID        int64      `json:"id"`
	ClaimID   int64      `json:"claim_id"`
	Date      core.Date  `json:"date"`
	Amount    core.Money `json:"amount"`
	Note      string     `json:"note,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toPaymentJSON(p core.Payment) paymentJSON {
	return paymentJSON{
		ID:        p.ID,
		ClaimID:   p.ClaimID,
		Date:      p.Date,
		Amount:    p.Amount,
		Note:      p.Note,
		CreatedAt: p.CreatedAt,
	}
}

type paymentResultJSON struct {
	Payment paymentJSON `json:"payment"`
	Claim   claimJSON   `json:"claim"`
}

type exportRowJSON struct {
	Date        string     `json:"date"`
	ProjectName string     `json:"project_name"`
	Category    string     `json:"category"`
	Total       core.Money `json:"total"`
}

type projectStatsJSON struct {
	ProjectID *int64             `json:"project_id"`
	Name      string             `json:"name"`
	Status    core.ProjectStatus `json:"status,omitempty"`
	Total     core.Money         `json:"total"`
	Claimed   core.Money         `json:"claimed"`
	Paid      core.Money         `json:"paid"`
	Unpaid    core.Money         `json:"unpaid"`
}

type categoryStatsJSON struct {
	Category      string     `json:"category"`
	Count         int        `json:"count"`
	Total         core.Money `json:"total"`
	ClaimedCount  int        `json:"claimed_count"`
	ClaimedAmount core.Money `json:"claimed_amount"`
}

type claimRefJSON struct {
	ExpenseID int64  `json:"expense_id"`
	Claimed   bool   `json:"claimed"`
	ClaimID   *int64 `json:"claim_id"`
}
