package sink

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/nerrad567/scenesync/internal/orchestrator"
)

type fakeEventBroker struct {
	topics     []string
	payloads   [][]byte
	publishErr error
}

func (b *fakeEventBroker) PublishEvent(topic string, payload []byte) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, payload)
	return nil
}

func TestEventPublisher_ScenarioActivated(t *testing.T) {
	broker := &fakeEventBroker{}
	pub := NewEventPublisher(broker)

	pub.BroadcastActivation(&orchestrator.ActivationResult{
		ID:         "act-1",
		Kind:       orchestrator.KindActivate,
		ScenarioID: "listen-cd",
		Switched:   true,
		Status:     orchestrator.StatusComplete,
	})

	if len(broker.topics) != 1 {
		t.Fatalf("published %d events, want 1", len(broker.topics))
	}
	if got, want := broker.topics[0], "scenesync/event/scenario/listen-cd/activated"; got != want {
		t.Errorf("topic = %q, want %q", got, want)
	}

	var result orchestrator.ActivationResult
	if err := json.Unmarshal(broker.payloads[0], &result); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if result.ID != "act-1" || !result.Switched {
		t.Errorf("payload = %+v, want original result fields", result)
	}
}

func TestEventPublisher_RoomShutdown(t *testing.T) {
	broker := &fakeEventBroker{}
	pub := NewEventPublisher(broker)

	pub.BroadcastActivation(&orchestrator.ActivationResult{
		ID:     "act-2",
		Kind:   orchestrator.KindShutdown,
		RoomID: "living-room",
		Status: orchestrator.StatusComplete,
	})

	if len(broker.topics) != 1 {
		t.Fatalf("published %d events, want 1", len(broker.topics))
	}
	if got, want := broker.topics[0], "scenesync/event/room/living-room/shutdown"; got != want {
		t.Errorf("topic = %q, want %q", got, want)
	}
}

func TestEventPublisher_PublishFailureIsSwallowed(t *testing.T) {
	broker := &fakeEventBroker{publishErr: errors.New("broker down")}
	pub := NewEventPublisher(broker)

	// Must not panic and must not surface the error anywhere.
	pub.BroadcastActivation(&orchestrator.ActivationResult{
		ID:         "act-3",
		Kind:       orchestrator.KindActivate,
		ScenarioID: "listen-cd",
	})

	if len(broker.topics) != 0 {
		t.Errorf("published %d events through a failing broker", len(broker.topics))
	}
}
