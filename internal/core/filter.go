package core

import "strings"

// ExpenseSort names a sortable expense field. Only the values below are
// accepted; storage maps each one to a fixed column.
type ExpenseSort string

const (
	SortByDate      ExpenseSort = "date"
	SortByAmount    ExpenseSort = "amount"
	SortByCategory  ExpenseSort = "category"
	SortByCreatedAt ExpenseSort = "created_at"
)

// ParseExpenseSort validates a user supplied sort field; "" means by date.
func ParseExpenseSort(s string) (ExpenseSort, error) {
	switch ExpenseSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByDate:
		return SortByDate, nil
	case SortByAmount:
		return SortByAmount, nil
	case SortByCategory:
		return SortByCategory, nil
	case SortByCreatedAt:
		return SortByCreatedAt, nil
	}
	return "", ErrInvalidSort
}

type ExpenseFilter struct {
	ProjectID *int64
	NoProject bool // only expenses without a project
	Category  string
	From      Date
	To        Date
	Claimed   *bool
	CreatedBy UserID

	Sort   ExpenseSort
	Desc   bool
	Limit  int
	Offset int
}

type ClaimFilter struct {
	Statuses []ClaimStatus
	From     Date
	To       Date
}
