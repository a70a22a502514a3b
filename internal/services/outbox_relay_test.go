package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"reimburse/internal/core"
)

func TestDefaultOutboxRelayConfig(t *testing.T) {
	config := DefaultOutboxRelayConfig()

	if config.PollInterval != 5*time.Second {
		t.Errorf("expected PollInterval 5s, got %v", config.PollInterval)
	}
	if config.BatchSize != 20 {
		t.Errorf("expected BatchSize 20, got %d", config.BatchSize)
	}
	if config.MaxAttempts != 5 {
		t.Errorf("expected MaxAttempts 5, got %d", config.MaxAttempts)
	}
	if config.CleanupAge != 72*time.Hour {
		t.Errorf("expected CleanupAge 72h, got %v", config.CleanupAge)
	}
}

func TestNewOutboxRelay_FillsDefaults(t *testing.T) {
	relay := NewOutboxRelay(nil, nil, nil, OutboxRelayConfig{BatchSize: 3}, nil)

	if relay.config.BatchSize != 3 {
		t.Errorf("expected custom BatchSize 3, got %d", relay.config.BatchSize)
	}
	if relay.config.PollInterval != 5*time.Second {
		t.Errorf("expected default PollInterval, got %v", relay.config.PollInterval)
	}
	if relay.IsRunning() {
		t.Error("relay should not be running initially")
	}
}

func TestOutboxRelay_StopNotRunning(t *testing.T) {
	relay := NewOutboxRelay(nil, nil, nil, DefaultOutboxRelayConfig(), nil)
	if err := relay.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestOutboxRelay_PublishesInOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := actorCtx()

	id := env.submitted(t, 1200)
	_, _, err := env.payments.RecordPayment(ctx, id, core.NewDate(2024, 3, 4), money(1200), "")
	must(t, err)

	pub := &recordingPublisher{}
	relay := NewOutboxRelay(env.repo, pub, testClock, OutboxRelayConfig{BatchSize: 10}, nil)

	if n := relay.RelayOnce(ctx); n != 3 {
		t.Fatalf("relayed %d events, want 3", n)
	}
	want := []core.ClaimEventType{core.EventClaimCreated, core.EventClaimSubmitted, core.EventClaimPaid}
	if len(pub.published) != len(want) {
		t.Fatalf("published %d events, want %d", len(pub.published), len(want))
	}
	for i, e := range pub.published {
		if e.Type != want[i] {
			t.Errorf("event %d type = %s, want %s", i, e.Type, want[i])
		}
		if e.ClaimID != id || e.Actor != 7 {
			t.Errorf("event %d = claim %d actor %d, want claim %d actor 7", i, e.ClaimID, e.Actor, id)
		}
	}

	if n := relay.RelayOnce(ctx); n != 0 {
		t.Errorf("published events were sent again (%d)", n)
	}
}

func TestOutboxRelay_RetriesThenGivesUp(t *testing.T) {
	env := newTestEnv(t)
	env.draft(t)

	pub := &recordingPublisher{failFor: map[core.ClaimEventType]bool{core.EventClaimCreated: true}}
	relay := NewOutboxRelay(env.repo, pub, testClock, OutboxRelayConfig{MaxAttempts: 2}, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if n := relay.RelayOnce(ctx); n != 0 {
			t.Fatalf("attempt %d published %d events, want 0", i+1, n)
		}
	}

	pending, err := env.repo.Queries().PendingClaimEvents(ctx, 10, 2)
	must(t, err)
	if len(pending) != 0 {
		t.Errorf("event should have exhausted its attempts, still pending: %+v", pending)
	}

	pending, err = env.repo.Queries().PendingClaimEvents(ctx, 10, 5)
	must(t, err)
	if len(pending) != 1 {
		t.Fatalf("expected 1 failed event, got %d", len(pending))
	}
	if pending[0].Attempts != 2 || pending[0].LastError != errBrokerDown.Error() {
		t.Errorf("failed event attempts=%d last_error=%q", pending[0].Attempts, pending[0].LastError)
	}
}

func TestOutboxRelay_StartStop(t *testing.T) {
	env := newTestEnv(t)
	env.draft(t)

	pub := &recordingPublisher{}
	relay := NewOutboxRelay(env.repo, pub, testClock, OutboxRelayConfig{PollInterval: 10 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	must(t, relay.Start(ctx))
	if err := relay.Start(ctx); err == nil {
		t.Error("second start must fail")
	}

	deadline := time.Now().Add(time.Second)
	for {
		pub.mu.Lock()
		n := len(pub.published)
		pub.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("relay published %d events, want 1", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	must(t, relay.Stop(stopCtx))
	if relay.IsRunning() {
		t.Error("relay still running after Stop")
	}
}

// blockingPublisher holds every publish until release is closed.
type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPublisher) PublishClaimEvent(ctx context.Context, _ core.ClaimEvent) error {
	p.once.Do(func() { close(p.entered) })
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestOutboxRelay_StopAfterTimeoutCanBeRepeated(t *testing.T) {
	env := newTestEnv(t)
	env.draft(t)

	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	relay := NewOutboxRelay(env.repo, pub, testClock, OutboxRelayConfig{PollInterval: time.Hour}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	must(t, relay.Start(ctx))
	select {
	case <-pub.entered:
	case <-time.After(time.Second):
		t.Fatal("relay never reached the publisher")
	}

	for i := 0; i < 2; i++ {
		short, shortCancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		err := relay.Stop(short)
		shortCancel()
		wantErrIs(t, err, context.DeadlineExceeded)
		if !relay.IsRunning() {
			t.Fatalf("stop %d: relay reported stopped while a publish is in flight", i+1)
		}
	}

	close(pub.release)
	long, longCancel := context.WithTimeout(context.Background(), time.Second)
	defer longCancel()
	must(t, relay.Stop(long))
	if relay.IsRunning() {
		t.Error("relay still running after Stop")
	}

	// A stopped relay can be started again.
	must(t, relay.Start(ctx))
	must(t, relay.Stop(long))
}
