package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"
)

type subscriberFake struct {
	err     error
	started chan struct{}
	stopped chan struct{}
}

func newSubscriberFake(err error) *subscriberFake {
	return &subscriberFake{err: err, started: make(chan struct{}), stopped: make(chan struct{})}
}

func (f *subscriberFake) SubscribeDocumentIndexed(ctx context.Context, _ func(context.Context, string) error) error {
	close(f.started)
	defer close(f.stopped)
	if f.err != nil {
		return f.err
	}
	<-ctx.Done()
	return nil
}

func TestStartSubscriptionReturnsWhileSubscribed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := newSubscriberFake(nil)

	done := make(chan (<-chan error))
	go func() {
		done <- startSubscription(ctx, sub, func(context.Context, string) error { return nil })
	}()

	var errs <-chan error
	select {
	case errs = <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("startSubscription blocked on a live subscription")
	}
	select {
	case <-sub.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription was never started")
	}

	cancel()
	select {
	case <-sub.stopped:
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription did not stop after cancel")
	}
	select {
	case err := <-errs:
		t.Fatalf("unexpected subscription error %v", err)
	default:
	}
}

func TestStartSubscriptionReportsFailure(t *testing.T) {
	subErr := errors.New("nats subscribe documents.indexed: connection closed")
	errs := startSubscription(context.Background(), newSubscriberFake(subErr), func(context.Context, string) error { return nil })

	select {
	case err := <-errs:
		if !errors.Is(err, subErr) {
			t.Fatalf("expected subscription error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscription error was not reported")
	}
}

func TestStartIndexSyncWithoutQueue(t *testing.T) {
	app := &App{}
	if errs := app.StartIndexSync(context.Background()); errs != nil {
		t.Fatalf("expected nil channel without a queue")
	}
}
