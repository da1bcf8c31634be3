package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMemoryBus_DeliversToSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	var got []BookingEvent

	err := bus.Subscribe(BookingCreated, func(_ context.Context, msg *Message) error {
		var ev BookingEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return err
		}
		got = append(got, ev)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	ev := BookingEvent{BookingID: 7, Name: "Ada", Date: "2025-06-14", Time: "09:00", Status: "pending"}
	if err := bus.Publish(context.Background(), BookingCreated, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := bus.Publish(context.Background(), BookingCancelled, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(got) != 1 || got[0].BookingID != 7 || got[0].Time != "09:00" {
		t.Fatalf("unexpected deliveries: %+v", got)
	}
}

func TestMemoryBus_QueueSubscribeDeliversOnce(t *testing.T) {
	bus := NewMemoryBus()
	calls := 0
	h := func(context.Context, *Message) error { calls++; return nil }

	for i := 0; i < 3; i++ {
		if err := bus.QueueSubscribe(BookingConfirmed, "notify", h); err != nil {
			t.Fatalf("QueueSubscribe: %v", err)
		}
	}
	_ = bus.Publish(context.Background(), BookingConfirmed, BookingEvent{BookingID: 1})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestMemoryBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewMemoryBus()
	_ = bus.Subscribe(BookingCreated, func(context.Context, *Message) error { return errors.New("smtp down") })

	if err := bus.Publish(context.Background(), BookingCreated, BookingEvent{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	_ = bus.Close()
	if err := bus.Publish(context.Background(), BookingCreated, BookingEvent{}); err == nil {
		t.Fatal("publish after close should fail")
	}
}

func TestConnect_UnknownBackend(t *testing.T) {
	if _, err := Connect("kafka", "", ""); err == nil {
		t.Fatal("expected error")
	}
	bus, err := Connect("log", "", "")
	if err != nil {
		t.Fatalf("Connect(log): %v", err)
	}
	if _, ok := bus.(*MemoryBus); !ok {
		t.Fatalf("Connect(log) = %T", bus)
	}
}
