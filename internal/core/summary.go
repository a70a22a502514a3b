package core

import "time"

// ClaimSummary is a claim row of a listing with its live line-item figures.
type ClaimSummary struct {
	Claim
	ItemCount  int
	ItemsTotal Money
}

// StatusTotal aggregates claims sharing a status.
type StatusTotal struct {
	Status ClaimStatus
	Count  int
	Total  Money
}

// ProjectStats splits a project's spend by reimbursement progress.
// ProjectID is nil for the synthetic row of expenses without a project.
type ProjectStats struct {
	ProjectID *int64
	Name      string
	Status    ProjectStatus
	Total     Money
	Claimed   Money
	Paid      Money
	Unpaid    Money
}

// CategoryStats represents spend aggregated by category.
type CategoryStats struct {
	Category      string
	Count         int
	Total         Money
	ClaimedCount  int
	ClaimedAmount Money
}

type ClaimEventType string

const (
	EventClaimCreated   ClaimEventType = "claim.created"
	EventClaimSubmitted ClaimEventType = "claim.submitted"
	EventClaimRejected  ClaimEventType = "claim.rejected"
	EventClaimPaid      ClaimEventType = "claim.paid"
	EventClaimDeleted   ClaimEventType = "claim.deleted"
)

// ClaimEvent records a claim state change for downstream consumers.
type ClaimEvent struct {
	ID         string
	Type       ClaimEventType
	ClaimID    int64
	Status     ClaimStatus
	Actor      UserID
	OccurredAt time.Time
}
