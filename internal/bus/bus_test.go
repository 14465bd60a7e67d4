package bus

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bookofrecords/sentinel/internal/domain"
)

func TestChannelBusPublishSubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	received := make(chan *domain.Message, 1)

	sub, err := b.Subscribe(ctx, domain.TopicSubmissionCreated, func(ctx context.Context, msg *domain.Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	if sub.Topic() != domain.TopicSubmissionCreated {
		t.Errorf("expected topic %s, got %s", domain.TopicSubmissionCreated, sub.Topic())
	}

	payload := []byte(`{"id":"sub-001"}`)
	if err := b.Publish(ctx, domain.TopicSubmissionCreated, payload); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if string(msg.Payload) != string(payload) {
			t.Errorf("expected payload %s, got %s", payload, msg.Payload)
		}
		if msg.Topic != domain.TopicSubmissionCreated {
			t.Errorf("expected topic on message, got %s", msg.Topic)
		}
		if msg.ID == "" {
			t.Error("expected message ID")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestChannelBusTopicIsolation(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	var count int32
	sub, _ := b.Subscribe(ctx, domain.TopicSubmissionAssessed, func(ctx context.Context, msg *domain.Message) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	defer sub.Unsubscribe()

	b.Publish(ctx, domain.TopicSubmissionCreated, []byte("a"))
	b.Publish(ctx, domain.TopicSubmissionFlagged, []byte("b"))

	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&count) != 0 {
		t.Errorf("subscriber received messages from other topics: %d", count)
	}

	b.Publish(ctx, domain.TopicSubmissionAssessed, []byte("c"))
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&count) != 1 {
		t.Errorf("expected 1 message, got %d", count)
	}
}

func TestChannelBusMultipleSubscribers(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	var count int32
	for i := 0; i < 3; i++ {
		sub, err := b.Subscribe(ctx, "topic", func(ctx context.Context, msg *domain.Message) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer sub.Unsubscribe()
	}

	b.Publish(ctx, "topic", []byte("fanout"))

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&count) < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected 3 deliveries, got %d", count)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestChannelBusUnsubscribe(t *testing.T) {
	b := NewChannelBus(10)
	defer b.Close()
	ctx := context.Background()

	var count int32
	sub, _ := b.Subscribe(ctx, "topic", func(ctx context.Context, msg *domain.Message) error {
		atomic.AddInt32(&count, 1)
		return nil
	})

	sub.Unsubscribe()
	time.Sleep(10 * time.Millisecond)

	b.Publish(ctx, "topic", []byte("x"))
	time.Sleep(50 * time.Millisecond)

	if atomic.LoadInt32(&count) != 0 {
		t.Errorf("expected no deliveries after unsubscribe, got %d", count)
	}
}

func TestChannelBusClosed(t *testing.T) {
	b := NewChannelBus(10)
	ctx := context.Background()

	if err := b.Ping(ctx); err != nil {
		t.Errorf("Ping failed on open bus: %v", err)
	}

	b.Close()

	if err := b.Publish(ctx, "topic", []byte("x")); err == nil {
		t.Error("expected error publishing to closed bus")
	}
	if _, err := b.Subscribe(ctx, "topic", nil); err == nil {
		t.Error("expected error subscribing to closed bus")
	}
	if err := b.Ping(ctx); err == nil {
		t.Error("expected ping failure on closed bus")
	}

	// Close is idempotent.
	if err := b.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNewChannelBus(t *testing.T) {
	b, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 10})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	if _, ok := b.(*ChannelBus); !ok {
		t.Errorf("expected *ChannelBus, got %T", b)
	}
}

func TestNewUnsupportedType(t *testing.T) {
	if _, err := New(domain.EventBusConfig{Type: "kafka"}); err == nil {
		t.Error("expected error for unsupported bus type")
	}
}
