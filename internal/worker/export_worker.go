package worker

import (
	"context"
	"errors"
	"fmt"

	"reimburse/internal/amqp"
	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/services"
	"reimburse/internal/sheets"
)

// ExportWorker mirrors submitted and paid claims into the export sheet.
type ExportWorker struct {
	claims  *services.ClaimService
	reports *services.ReportService
	sheet   sheets.ClaimSheet
	logger  *log.Logger
}

func NewExportWorker(claims *services.ClaimService, reports *services.ReportService, sheet sheets.ClaimSheet, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &ExportWorker{
		claims:  claims,
		reports: reports,
		sheet:   sheet,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// exportedStatus maps event types that produce sheet rows to the status
// recorded on those rows.
var exportedStatus = map[core.ClaimEventType]core.ClaimStatus{
	core.EventClaimSubmitted: core.StatusSubmitted,
	core.EventClaimPaid:      core.StatusPaid,
}

// HandleClaimEvent processes one claim event from AMQP. Events for claims
// that no longer exist are acknowledged without effect; other failures are
// returned so the message is redelivered.
func (w *ExportWorker) HandleClaimEvent(ctx context.Context, msg *amqp.ClaimEventMessage) error {
	status, ok := exportedStatus[msg.Type]
	if !ok {
		w.logger.DebugContext(ctx, "Ignoring claim event",
			log.FieldEventID, msg.EventID, log.FieldEventType, string(msg.Type))
		return nil
	}

	err := w.export(ctx, msg.ClaimID, status)
	if errors.Is(err, core.ErrClaimNotFound) {
		w.logger.WarnContext(ctx, "Claim gone before export, skipping",
			log.FieldEventID, msg.EventID, log.FieldClaimID, msg.ClaimID)
		return nil
	}
	return err
}

func (w *ExportWorker) export(ctx context.Context, claimID int64, status core.ClaimStatus) error {
	detail, err := w.claims.GetClaim(ctx, claimID)
	if err != nil {
		return err
	}
	claim := detail.Claim
	claim.Status = status

	done, err := w.sheet.Exported(ctx, claim)
	if err != nil {
		return fmt.Errorf("check export of claim %d: %w", claimID, err)
	}
	if done {
		w.logger.InfoContext(ctx, "Claim already exported",
			log.FieldClaimID, claimID, log.FieldStatus, string(status), "submission", claim.Submissions)
		return nil
	}

	rows, err := w.reports.ExportRows(ctx, claimID)
	if err != nil {
		return fmt.Errorf("build export rows: %w", err)
	}
	ref, err := w.sheet.ExportClaim(ctx, claim, rows)
	if err != nil {
		return fmt.Errorf("export claim %d: %w", claimID, err)
	}

	w.logger.InfoContext(ctx, "Exported claim",
		log.FieldClaimID, claimID,
		log.FieldStatus, string(status),
		log.FieldCount, len(rows),
		log.FieldSheetsRef, ref)
	return nil
}

// StartupExportCheck exports submitted and paid claims missing from the
// sheet. It recovers from events lost while the worker was down.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	list, err := w.claims.ListClaims(ctx, core.ClaimFilter{
		Statuses: []core.ClaimStatus{core.StatusSubmitted, core.StatusPaid},
	})
	if err != nil {
		return fmt.Errorf("list claims for startup export: %w", err)
	}

	exported, failed := 0, 0
	for _, c := range list.Claims {
		statuses := []core.ClaimStatus{core.StatusSubmitted}
		if c.Status == core.StatusPaid {
			statuses = append(statuses, core.StatusPaid)
		}
		for _, st := range statuses {
			if err := w.export(ctx, c.ID, st); err != nil {
				w.logger.ErrorContext(ctx, "Startup export failed",
					log.FieldClaimID, c.ID, log.FieldError, err.Error())
				failed++
				continue
			}
			exported++
		}
	}

	w.logger.InfoContext(ctx, "Startup export check completed",
		"claims", len(list.Claims), "checked", exported, "errors", failed)
	return nil
}
