package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PipelineErrorEvent, 1)

	unsub := bus.Subscribe(func(e PipelineErrorEvent) {
		received <- e
	})
	defer unsub()

	event := PipelineErrorEvent{
		PipelineID: "pipe0",
		Domain:     "gst-resource-error-quark",
		Code:       3,
		Message:    "Output window was closed",
		Benign:     true,
	}
	bus.Publish(event)

	got := <-received
	if got != event {
		t.Errorf("got %+v, want %+v", got, event)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan DeviceDiscoveredEvent, 1)
	received2 := make(chan DeviceDiscoveredEvent, 1)

	unsub1 := bus.Subscribe(func(e DeviceDiscoveredEvent) {
		received1 <- e
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(e DeviceDiscoveredEvent) {
		received2 <- e
	})
	defer unsub2()

	bus.Publish(DeviceDiscoveredEvent{Device: "cam0", Accepted: true})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan SessionShutdownEvent, 1)

	unsub := bus.Subscribe(func(e SessionShutdownEvent) {
		received <- e
	})

	bus.Publish(SessionShutdownEvent{Reason: "signal"})
	<-received

	unsub()

	bus.Publish(SessionShutdownEvent{Reason: "error"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
		// Expected - no event
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	stateReceived := make(chan bool, 1)
	errorReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ PipelineStateChangedEvent) {
		stateReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ PipelineErrorEvent) {
		errorReceived <- true
	})
	defer unsub2()

	bus.Publish(PipelineStateChangedEvent{PipelineID: "pipe0", From: "created", To: "playing"})

	select {
	case <-stateReceived:
	case <-time.After(time.Second):
		t.Fatal("state handler not called")
	}

	select {
	case <-errorReceived:
		t.Error("error handler received a state event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestBus_NilSafe(_ *testing.T) {
	var bus *Bus
	bus.Publish(SessionShutdownEvent{Reason: "signal"})
	_ = bus.Close()
}

func TestEventTypesUnique(t *testing.T) {
	events := []Event{
		DeviceDiscoveredEvent{},
		PipelineStateChangedEvent{},
		PipelineErrorEvent{},
		SessionShutdownEvent{},
	}
	seen := make(map[uint32]bool)
	for _, e := range events {
		if seen[e.Type()] {
			t.Errorf("duplicate event type %d", e.Type())
		}
		seen[e.Type()] = true
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(PipelineStateChangedEvent{PipelineID: "pipe1", Device: "cam1", From: "created", To: "playing"})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["pipeline_id"] != "pipe1" || decoded["to"] != "playing" {
		t.Errorf("unexpected JSON %s", data)
	}
	if _, ok := decoded["error"]; ok {
		t.Error("empty error field should be omitted")
	}
}
