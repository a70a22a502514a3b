package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reimburse/internal/core"
	"reimburse/internal/log"
	"reimburse/internal/storage"
)

// EventPublisher delivers claim events to a message broker.
type EventPublisher interface {
	PublishClaimEvent(ctx context.Context, e core.ClaimEvent) error
}

// OutboxRelayConfig holds configuration for the outbox relay
type OutboxRelayConfig struct {
	// PollInterval is how often to check for unpublished events (default: 5s)
	PollInterval time.Duration

	// BatchSize is the max number of events published per poll cycle (default: 20)
	BatchSize int

	// MaxAttempts is how many failed publishes an event gets before the relay
	// stops picking it up (default: 5)
	MaxAttempts int

	CleanupInterval time.Duration
	// CleanupAge is how long published events are kept (default: 72h)
	CleanupAge time.Duration
}

func DefaultOutboxRelayConfig() OutboxRelayConfig {
	return OutboxRelayConfig{
		PollInterval:    5 * time.Second,
		BatchSize:       20,
		MaxAttempts:     5,
		CleanupInterval: time.Hour,
		CleanupAge:      72 * time.Hour,
	}
}

// OutboxRelay publishes claim events written by the services to the broker.
// Events are marked published only after the broker accepted them, so
// delivery is at-least-once.
type OutboxRelay struct {
	store     Store
	publisher EventPublisher
	clock     core.Clock
	config    OutboxRelayConfig
	logger    *log.Logger

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	doneCh   chan struct{}
}

func NewOutboxRelay(store Store, publisher EventPublisher, clock core.Clock, config OutboxRelayConfig, logger *log.Logger) *OutboxRelay {
	defaults := DefaultOutboxRelayConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.CleanupAge <= 0 {
		config.CleanupAge = defaults.CleanupAge
	}
	return &OutboxRelay{
		store:     store,
		publisher: publisher,
		clock:     clockOr(clock),
		config:    config,
		logger:    loggerOr(logger, log.ComponentOutbox),
	}
}

// Start begins the relay loop. Returns an error if already running.
func (r *OutboxRelay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay is already running")
	}
	r.running = true
	r.stopCh = make(chan struct{})
	r.stopOnce = &sync.Once{}
	r.doneCh = make(chan struct{})
	stopCh, doneCh := r.stopCh, r.doneCh
	r.mu.Unlock()

	go r.runLoop(ctx, stopCh, doneCh)

	r.logger.InfoContext(ctx, "Outbox relay started",
		"poll_interval", r.config.PollInterval,
		"batch_size", r.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the batch in flight. If ctx expires
// first the relay keeps running and Stop may be called again.
func (r *OutboxRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	stopCh, stopOnce, doneCh := r.stopCh, r.stopOnce, r.doneCh
	r.mu.Unlock()

	stopOnce.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		r.logger.InfoContext(ctx, "Outbox relay stopped")
	case <-ctx.Done():
		r.logger.WarnContext(ctx, "Outbox relay stop timed out")
		return ctx.Err()
	}

	r.mu.Lock()
	r.running = false
	r.mu.Unlock()
	return nil
}

func (r *OutboxRelay) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *OutboxRelay) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	pollTicker := time.NewTicker(r.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(r.config.CleanupInterval)
	defer cleanupTicker.Stop()

	r.RelayOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			r.RelayOnce(ctx)
		case <-cleanupTicker.C:
			r.cleanup(ctx)
		}
	}
}

// RelayOnce publishes one batch of pending events and returns how many were
// accepted by the broker.
func (r *OutboxRelay) RelayOnce(ctx context.Context) int {
	q := r.store.Queries()
	events, err := q.PendingClaimEvents(ctx, r.config.BatchSize, r.config.MaxAttempts)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to load pending claim events", log.FieldError, err.Error())
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	published := 0
	for _, e := range events {
		if ctx.Err() != nil {
			break
		}
		if r.publish(ctx, q, e) {
			published++
		}
	}
	r.logger.DebugContext(ctx, "Outbox batch relayed",
		log.FieldOperation, log.OpRelay, log.FieldCount, published, "pending", len(events))
	return published
}

func (r *OutboxRelay) publish(ctx context.Context, q *storage.Queries, e storage.OutboxEvent) bool {
	fields := []any{log.FieldEventID, e.ID, log.FieldEventType, string(e.Type), log.FieldClaimID, e.ClaimID}

	if err := r.publisher.PublishClaimEvent(ctx, e.ClaimEvent); err != nil {
		attempt := e.Attempts + 1
		if attempt >= r.config.MaxAttempts {
			r.logger.ErrorContext(ctx, "Claim event failed permanently",
				append(fields, "attempts", attempt, log.FieldError, err.Error())...)
		} else {
			r.logger.WarnContext(ctx, "Claim event publish failed",
				append(fields, "attempt", attempt, log.FieldError, err.Error())...)
		}
		if err := q.MarkEventFailed(ctx, e.ID, err); err != nil {
			r.logger.ErrorContext(ctx, "Failed to record publish failure", append(fields, log.FieldError, err.Error())...)
		}
		return false
	}

	if err := q.MarkEventPublished(ctx, e.ID, r.clock.Now()); err != nil {
		// The broker has the event; it will be sent again on the next poll.
		r.logger.ErrorContext(ctx, "Failed to mark claim event published", append(fields, log.FieldError, err.Error())...)
		return false
	}
	return true
}

func (r *OutboxRelay) cleanup(ctx context.Context) {
	cutoff := r.clock.Now().Add(-r.config.CleanupAge)
	n, err := r.store.Queries().DeletePublishedEvents(ctx, cutoff)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to clean up published events", log.FieldError, err.Error())
		return
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Cleaned up published events", log.FieldCount, n)
	}
}
