package http

import "net/http"

func (s *Server) handleExportRows(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, err := s.svc.Reports.ExportRows(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]exportRowJSON, len(rows))
	for i, row := range rows {
		out[i] = exportRowJSON{Date: row.Date, ProjectName: row.ProjectName, Category: row.Category, Total: row.Total}
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleProjectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Reports.ProjectStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]projectStatsJSON, len(stats))
	for i, st := range stats {
		out[i] = projectStatsJSON{
			ProjectID: st.ProjectID,
			Name:      st.Name,
			Status:    st.Status,
			Total:     st.Total,
			Claimed:   st.Claimed,
			Paid:      st.Paid,
			Unpaid:    st.Unpaid,
		}
	}
	writeData(w, http.StatusOK, out)
}

// handleCategoryStats reports the acting user's spend per category.
func (s *Server) handleCategoryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Reports.CategoryStats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]categoryStatsJSON, len(stats))
	for i, st := range stats {
		out[i] = categoryStatsJSON{
			Category:      st.Category,
			Count:         st.Count,
			Total:         st.Total,
			ClaimedCount:  st.ClaimedCount,
			ClaimedAmount: st.ClaimedAmount,
		}
	}
	writeData(w, http.StatusOK, out)
}
