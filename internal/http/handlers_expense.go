package http

import (
	"net/http"

	"reimburse/internal/core"
)

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.CreateExpense(r.Context(), req.expense(0))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.count(&s.appMetrics.expenses)
	writeData(w, http.StatusCreated, toExpenseJSON(e))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.GetExpense(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.svc.Expenses.UpdateExpense(r.Context(), req.expense(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toExpenseJSON(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Expenses.DeleteExpense(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"deleted": id})
}

// handleListExpenses supports project_id, no_project, category, from, to,
// claimed, sort, desc, limit and offset query parameters.
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	f := core.ExpenseFilter{
		ProjectID: q.ID("project_id"),
		Category:  q.String("category"),
		From:      q.Date("from"),
		To:        q.Date("to"),
		Claimed:   q.Bool("claimed"),
		Limit:     q.Int("limit"),
		Offset:    q.Int("offset"),
	}
	if b := q.Bool("no_project"); b != nil {
		f.NoProject = *b
	}
	if b := q.Bool("desc"); b != nil {
		f.Desc = *b
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	sort, err := core.ParseExpenseSort(q.String("sort"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Sort = sort

	expenses, err := s.svc.Expenses.ListExpenses(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toExpensesJSON(expenses))
}

func (s *Server) handleListOrphans(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.svc.Expenses.ListOrphans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toExpensesJSON(expenses))
}

func (s *Server) handleExpenseClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	claimID, claimed, err := s.svc.Expenses.IsClaimed(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref := claimRefJSON{ExpenseID: id, Claimed: claimed}
	if claimed {
		ref.ClaimID = &claimID
	}
	writeData(w, http.StatusOK, ref)
}

func (s *Server) handleAssignProject(w http.ResponseWriter, r *http.Request) {
	var req assignProjectRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Expenses.AssignProject(r.Context(), req.ProjectID, req.ExpenseIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int{"updated": updated})
}

func (s *Server) handleImportExpenses(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := s.svc.Expenses.ImportExpenses(r.Context(), req.rows())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, res)
}
