package memory

import (
	"context"
	"fmt"
	"sync"

	"reimburse/internal/core"
	ports "reimburse/internal/sheets"
)

// Row is one exported line as it would appear in the sheet.
type Row struct {
	ClaimID    int64
	Status     core.ClaimStatus
	Submission int
	core.ExportRow
}

// Store is an in-process export sheet for tests and local runs without
// Google credentials.
type Store struct {
	mu   sync.Mutex
	rows []Row
}

var _ ports.ClaimSheet = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// ExportClaim stores the rows and returns a synthetic range reference.
func (s *Store) ExportClaim(_ context.Context, c core.Claim, rows []core.ExportRow) (string, error) {
	if len(rows) == 0 {
		return "", fmt.Errorf("claim %d has no export rows", c.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	for _, r := range rows {
		s.rows = append(s.rows, Row{ClaimID: c.ID, Status: c.Status, Submission: c.Submissions, ExportRow: r})
	}
	return fmt.Sprintf("mem:%d-%d", first, len(s.rows)), nil
}

func (s *Store) Exported(_ context.Context, c core.Claim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.ClaimID == c.ID && r.Status == c.Status && r.Submission == c.Submissions {
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of everything exported so far.
func (s *Store) Rows() []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Row(nil), s.rows...)
}
