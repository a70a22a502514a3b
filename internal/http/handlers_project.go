package http

import (
	"net/http"

	"reimburse/internal/core"
)

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Projects.CreateProject(r.Context(), sanitizeInput(req.Name), sanitizeInput(req.Note))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, toProjectJSON(p))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Projects.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toProjectJSON(p))
}

// handleUpdateProject replaces name and note; an omitted status is kept.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req projectRequest
	if err := s.parser.Decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Projects.UpdateProject(r.Context(), core.Project{
		ID:     id,
		Name:   sanitizeInput(req.Name),
		Note:   sanitizeInput(req.Note),
		Status: core.ProjectStatus(req.Status),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, toProjectJSON(p))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	status := core.ProjectStatus(newQueryParams(r).String("status"))
	projects, err := s.svc.Projects.ListProjects(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]projectJSON, len(projects))
	for i, p := range projects {
		out[i] = toProjectJSON(p)
	}
	writeData(w, http.StatusOK, out)
}
