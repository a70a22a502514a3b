package http

import (
	"net/http"

	"reimburse/internal/core"
)

// handleCreateClaim creates a draft claim; expense_ids, when present, are
// attached with batch semantics in the same call.
func (s *Server) handleCreateClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	note := sanitizeInput(req.Note)

	var (
		c     core.Claim
		batch core.BatchResult
		err   error
	)
	if len(req.ExpenseIDs) > 0 {
		c, batch, err = s.svc.Claims.CreateClaimWithExpenses(r.Context(), req.SubmitDate, note, req.ExpenseIDs)
	} else {
		c, err = s.svc.Claims.CreateClaim(r.Context(), req.SubmitDate, note)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.count(&s.appMetrics.claimsCreated)
	writeData(w, http.StatusCreated, claimBatchJSON{Claim: toClaimJSON(c), Batch: batch})
}

func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := s.svc.Claims.GetClaim(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimDetailJSON(detail))
}

// handleListClaims filters by status (repeated or comma separated) and by
// submit date with from and to.
func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	f := core.ClaimFilter{From: q.Date("from"), To: q.Date("to")}
	for _, st := range q.List("status") {
		f.Statuses = append(f.Statuses, core.ClaimStatus(st))
	}
	if err := q.Err(); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.svc.Claims.ListClaims(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimListJSON(list))
}

func (s *Server) handleListEditableClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.svc.Claims.ListEditableClaims(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimSummariesJSON(claims))
}

func (s *Server) handleUpdateClaimMetadata(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req claimMetadataRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Claims.UpdateMetadata(r.Context(), id, req.SubmitDate, sanitizeInput(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimJSON(c))
}

func (s *Server) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Claims.DeleteClaim(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"deleted": id})
}

// handleAttachExpenses attaches either one expense_id, optionally with its
// own amount, or a batch of expense_ids. A single attach fails as a whole;
// a batch skips what cannot be attached.
func (s *Server) handleAttachExpenses(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req attachRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	switch {
	case req.ExpenseID > 0 && len(req.ExpenseIDs) > 0:
		writeError(w, r, core.Invalidf("give either expense_id or expense_ids, not both"))
	case req.ExpenseID > 0:
		if err := s.svc.Claims.AttachExpense(r.Context(), id, req.ExpenseID, req.Amount); err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, core.BatchResult{Added: 1})
	case req.Amount != nil:
		writeError(w, r, core.Invalidf("amount only applies to a single expense_id"))
	default:
		res, err := s.svc.Claims.AttachExpenses(r.Context(), id, req.ExpenseIDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeData(w, http.StatusOK, res)
	}
}

func (s *Server) handleDetachExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenseID, err := pathID(r, "expenseID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Claims.DetachExpense(r.Context(), id, expenseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, map[string]int64{"detached": expenseID})
}

func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Claims.Submit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimJSON(c))
}

func (s *Server) handleRejectClaim(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.svc.Claims.Reject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toClaimJSON(c))
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, c, err := s.svc.Payments.RecordPayment(r.Context(), id, req.Date, req.Amount, sanitizeInput(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.count(&s.appMetrics.payments)
	writeData(w, http.StatusCreated, paymentResultJSON{Payment: toPaymentJSON(p), Claim: toClaimJSON(c)})
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := s.svc.Payments.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]paymentJSON, len(payments))
	for i, p := range payments {
		out[i] = toPaymentJSON(p)
	}
	writeData(w, http.StatusOK, out)
}
