package services

import (
	"context"

	"reimburse/internal/core"
	"reimburse/internal/log"
)

// ReportService serves read-only aggregates over the ledger.
type ReportService struct {
	store  Store
	logger *log.Logger
}

func NewReportService(store Store, logger *log.Logger) *ReportService {
	return &ReportService{
		store:  store,
		logger: loggerOr(logger, log.ComponentReports),
	}
}

// ExportRows aggregates a claim's line items by project and category, the
// shape used for spreadsheet export.
func (s *ReportService) ExportRows(ctx context.Context, claimID int64) ([]core.ExportRow, error) {
	q := s.store.Queries()
	if _, err := q.GetClaim(ctx, claimID); err != nil {
		return nil, err
	}
	rows, err := q.ClaimExportRows(ctx, claimID)
	if err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Export rows built", log.FieldClaimID, claimID, log.FieldCount, len(rows))
	return rows, nil
}

// ProjectStats reports reimbursement progress of active projects. Spend
// without a project leads the list when there is any.
func (s *ReportService) ProjectStats(ctx context.Context) ([]core.ProjectStats, error) {
	q := s.store.Queries()
	stats, err := q.ProjectStats(ctx, core.ProjectActive)
	if err != nil {
		return nil, err
	}
	orphans, err := q.OrphanStats(ctx)
	if err != nil {
		return nil, err
	}
	if orphans.Total.Cents > 0 {
		stats = append([]core.ProjectStats{orphans}, stats...)
	}
	return stats, nil
}

// CategoryStats aggregates the acting user's expenses by category.
func (s *ReportService) CategoryStats(ctx context.Context) ([]core.CategoryStats, error) {
	actor, err := core.ActorFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Queries().CategoryStats(ctx, actor)
}
