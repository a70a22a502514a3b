package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	StatusDraft     ClaimStatus = "draft"
	StatusSubmitted ClaimStatus = "submitted"
	StatusRejected  ClaimStatus = "rejected"
	StatusPaid      ClaimStatus = "paid"
)

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
)

const (
	// DefaultCategory is applied to expenses recorded without a category.
	DefaultCategory = "other"
	// NoProjectLabel names the group of expenses without a project in reports.
	NoProjectLabel = "No project"

	dateLayout = "2006-01-02"
)

type (
	ClaimStatus   string
	ProjectStatus string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID            int64
		Date          Date
		ProjectID     *int64
		ProjectName   string // filled on reads
		Category      string
		Amount        Money
		Description   string
		PaymentMethod string
		Note          string
		CreatedBy     UserID
		CreatedAt     time.Time
		UpdatedAt     time.Time

		// Claim state, filled on reads; nil when the expense is not attached.
		ClaimID     *int64
		ClaimStatus ClaimStatus
	}

	Project struct {
		ID        int64
		Name      string
		Note      string
		Status    ProjectStatus
		CreatedBy UserID
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Claim struct {
		ID          int64
		SubmitDate  Date
		Status      ClaimStatus
		TotalAmount Money
		TotalPaid   Money
		Note        string
		// Submissions counts Submit calls, so 2 after one resubmission.
		Submissions int
		CreatedBy   UserID
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// LineItem attaches one expense to one claim.
	LineItem struct {
		ClaimID   int64
		ExpenseID int64
		Amount    Money
		AddedAt   time.Time

		ExpenseDate   Date
		ExpenseAmount Money
		ProjectName   string
		Category      string
		Description   string
	}

	ClaimDetail struct {
		Claim
		Items []LineItem
	}

	Payment struct {
		ID        int64
		ClaimID   int64
		Date      Date
		Amount    Money
		Note      string
		CreatedAt time.Time
	}

	// ExportRow is one aggregated line of a claim export, grouped by project
	// name and category.
	ExportRow struct {
		Date        string
		ProjectName string
		Category    string
		Total       Money
	}
)

func (s ClaimStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusRejected, StatusPaid:
		return true
	}
	return false
}

// Editable reports whether line items may be attached or detached.
func (s ClaimStatus) Editable() bool {
	return s == StatusDraft || s == StatusRejected
}

// AcceptsPayments reports whether payments may be recorded against the claim.
func (s ClaimStatus) AcceptsPayments() bool {
	return s.Valid() && s != StatusDraft
}

func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectCompleted
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrMissingDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrMissingDate
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, Invalidf("invalid date %q", s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// DateRange renders a single date when first and last match, otherwise "first~last".
func DateRange(first, last string) string {
	if first == last || last == "" {
		return first
	}
	if first == "" {
		return last
	}
	return first + "~" + last
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// NormalizeCategory trims the label and falls back to DefaultCategory.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultCategory
	}
	return s
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount.Cents < 0 {
		return ErrNegativeAmount
	}
	if len(e.Description) > 500 {
		return Invalidf("description too long (max 500 characters)")
	}
	if e.ProjectID != nil && *e.ProjectID <= 0 {
		return Invalidf("invalid project id %d", *e.ProjectID)
	}
	return nil
}

// PaymentState classifies the expense against the claim it belongs to.
func (e Expense) PaymentState() string {
	switch {
	case e.ClaimID == nil:
		return "unclaimed"
	case e.ClaimStatus == StatusPaid:
		return "paid"
	default:
		return "claimed_unpaid"
	}
}

func (p Project) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyProjectName
	}
	if len(name) > 100 {
		return Invalidf("project name too long (max 100 characters)")
	}
	if p.Status != "" && !p.Status.Valid() {
		return Invalidf("invalid project status %q", p.Status)
	}
	return nil
}

// Outstanding is the amount still to be paid; never negative.
func (c Claim) Outstanding() Money {
	if c.TotalPaid.Cents >= c.TotalAmount.Cents {
		return Money{}
	}
	return c.TotalAmount.Sub(c.TotalPaid)
}

func (p Payment) Validate() error {
	if err := p.Date.Validate(); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return fmt.Errorf("payment amount: %w", err)
	}
	return nil
}
