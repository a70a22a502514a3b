package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"reimburse/internal/core"
)

// ClaimEventMessage is the wire form of a claim state change. It carries
// identifiers only; consumers read current data from the database.
type ClaimEventMessage struct {
	EventID     string              `json:"event_id"`
	Type        core.ClaimEventType `json:"type"`
	ClaimID     int64               `json:"claim_id"`
	Status      core.ClaimStatus    `json:"status"`
	Actor       core.UserID         `json:"actor"`
	OccurredAt  time.Time           `json:"occurred_at"`
	PublishedAt time.Time           `json:"published_at"`
}

func NewClaimEventMessage(e core.ClaimEvent, publishedAt time.Time) *ClaimEventMessage {
	return &ClaimEventMessage{
		EventID:     e.ID,
		Type:        e.Type,
		ClaimID:     e.ClaimID,
		Status:      e.Status,
		Actor:       e.Actor,
		OccurredAt:  e.OccurredAt,
		PublishedAt: publishedAt,
	}
}

func (m *ClaimEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ClaimEventMessageFromJSON decodes a message and rejects ones missing their
// identifiers.
func ClaimEventMessageFromJSON(data []byte) (*ClaimEventMessage, error) {
	var msg ClaimEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EventID == "" || msg.ClaimID <= 0 || msg.Type == "" {
		return nil, errors.New("claim event message missing event_id, claim_id or type")
	}
	return &msg, nil
}

// Event converts the message back into a domain event.
func (m *ClaimEventMessage) Event() core.ClaimEvent {
	return core.ClaimEvent{
		ID:         m.EventID,
		Type:       m.Type,
		ClaimID:    m.ClaimID,
		Status:     m.Status,
		Actor:      m.Actor,
		OccurredAt: m.OccurredAt,
	}
}
