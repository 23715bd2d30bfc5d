package queue

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/vibast-solutions/ms-go-verification-mailer/app/entity"
)

const (
	testStream = "/auth/login"
	testGroup  = "email-verification"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func newTestConsumer(t *testing.T, client *redis.Client) (*VerificationConsumer, *test.Hook) {
	t.Helper()

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	consumer := NewVerificationConsumer(client, testStream, testGroup, "c1", logger)
	if err := consumer.EnsureGroup(context.Background()); err != nil {
		if strings.Contains(err.Error(), "unknown command") {
			t.Skipf("streams not supported by miniredis: %v", err)
		}
		t.Fatalf("EnsureGroup: %v", err)
	}
	return consumer, hook
}

func addEntry(t *testing.T, client *redis.Client, values map[string]interface{}) string {
	t.Helper()

	id, err := client.XAdd(context.Background(), &redis.XAddArgs{Stream: testStream, Values: values}).Result()
	if err != nil {
		t.Fatalf("XAdd: %v", err)
	}
	return id
}

func pendingCount(t *testing.T, client *redis.Client) int64 {
	t.Helper()

	pending, err := client.XPending(context.Background(), testStream, testGroup).Result()
	if err != nil {
		t.Fatalf("XPending: %v", err)
	}
	return pending.Count
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func hasLevel(hook *test.Hook, level logrus.Level) bool {
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			return true
		}
	}
	return false
}

func TestVerificationConsumerForwardsAndAcks(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, _ := newTestConsumer(t, client)

	id := addEntry(t, client, map[string]interface{}{"email": "a@x.com", "verification_hash": "h1"})

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if len(out) != 1 {
		t.Fatalf("expected 1 forwarded message, got %d", len(out))
	}
	msg := <-out
	if msg.Email != "a@x.com" || msg.Hash != "h1" || msg.EntryID != id {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if got := pendingCount(t, client); got != 0 {
		t.Fatalf("expected 0 pending, got %d", got)
	}
}

func TestVerificationConsumerDiscardsMalformedEntry(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, hook := newTestConsumer(t, client)

	addEntry(t, client, map[string]interface{}{"email": "a@x.com"})

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if len(out) != 0 {
		t.Fatalf("expected nothing forwarded, got %d", len(out))
	}
	if got := pendingCount(t, client); got != 0 {
		t.Fatalf("expected malformed entry to be acked, got %d pending", got)
	}
	if !hasLevel(hook, logrus.WarnLevel) {
		t.Fatalf("expected a warning for the malformed entry")
	}
}

func TestVerificationConsumerPreservesOrder(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, _ := newTestConsumer(t, client)

	addEntry(t, client, map[string]interface{}{"email": "1@x.com", "verification_hash": "h1"})
	addEntry(t, client, map[string]interface{}{"email": "bad"})
	addEntry(t, client, map[string]interface{}{"email": "2@x.com", "verification_hash": "h2"})

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}

	if len(out) != 2 {
		t.Fatalf("expected 2 forwarded messages, got %d", len(out))
	}
	if first := <-out; first.Hash != "h1" {
		t.Fatalf("expected h1 first, got %s", first.Hash)
	}
	if second := <-out; second.Hash != "h2" {
		t.Fatalf("expected h2 second, got %s", second.Hash)
	}
}

func TestVerificationConsumerEnsureGroupIdempotent(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, hook := newTestConsumer(t, client)

	addEntry(t, client, map[string]interface{}{"email": "a@x.com", "verification_hash": "h1"})

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	<-out

	if err := consumer.EnsureGroup(context.Background()); err != nil {
		t.Fatalf("EnsureGroup on existing group: %v", err)
	}
	if !hasLevel(hook, logrus.WarnLevel) {
		t.Fatalf("expected a warning for the existing group")
	}

	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("acked entry redelivered after group re-creation")
	}
}

func TestVerificationConsumerGroupSkipsExistingEntries(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	addEntry(t, client, map[string]interface{}{"email": "old@x.com", "verification_hash": "old"})

	consumer, _ := newTestConsumer(t, client)

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Poll(context.Background(), out); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected entries older than the group to be skipped, got %d", len(out))
	}
}

func TestVerificationConsumerBackpressure(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, _ := newTestConsumer(t, client)

	for i := 0; i < 7; i++ {
		addEntry(t, client, map[string]interface{}{"email": "a@x.com", "verification_hash": "h"})
	}

	out := make(chan entity.VerificationMessage, 5)
	done := make(chan error, 1)
	go func() {
		done <- consumer.Poll(context.Background(), out)
	}()

	// Five buffered, the sixth blocks before its ack.
	waitFor(t, "buffer to fill", func() bool { return len(out) == 5 })
	waitFor(t, "five acks", func() bool { return pendingCount(t, client) == 2 })

	select {
	case <-done:
		t.Fatalf("poll finished while the hand-off was full")
	case <-time.After(50 * time.Millisecond):
	}

	<-out
	waitFor(t, "sixth ack", func() bool { return pendingCount(t, client) == 1 })

	<-out
	if err := <-done; err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if got := pendingCount(t, client); got != 0 {
		t.Fatalf("expected 0 pending, got %d", got)
	}
	if len(out) != 5 {
		t.Fatalf("expected 5 buffered messages, got %d", len(out))
	}
}

func TestVerificationConsumerReadFailure(t *testing.T) {
	t.Parallel()

	mr, client := newTestClient(t)
	consumer, _ := newTestConsumer(t, client)
	mr.Close()

	out := make(chan entity.VerificationMessage, 5)
	if err := consumer.Run(context.Background(), out); err == nil {
		t.Fatalf("expected error when the broker is unreachable")
	}
}

func TestVerificationConsumerRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	_, client := newTestClient(t)
	consumer, _ := newTestConsumer(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan entity.VerificationMessage, 5)
	done := make(chan error, 1)
	go func() {
		done <- consumer.Run(ctx, out)
	}()

	addEntry(t, client, map[string]interface{}{"email": "a@x.com", "verification_hash": "h1"})
	waitFor(t, "forwarded message", func() bool { return len(out) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}
}
