package sink

import (
	"encoding/json"

	"github.com/nerrad567/scenesync/internal/infrastructure/mqtt"
	"github.com/nerrad567/scenesync/internal/orchestrator"
)

// EventBroker is the publishing surface the event publisher needs.
// The MQTT client satisfies this.
type EventBroker interface {
	PublishEvent(topic string, payload []byte) error
}

// EventPublisher mirrors completed transitions onto the MQTT event
// topics so bridges and dashboards on the bus see them without holding
// a websocket connection. Satisfies the orchestrator's Broadcaster
// interface.
//
// Publishing is best-effort: a failed event publish is logged and
// dropped, never surfaced to the transition that produced it.
type EventPublisher struct {
	broker EventBroker
	topics mqtt.Topics
	logger Logger
}

// NewEventPublisher creates an MQTT event publisher.
func NewEventPublisher(broker EventBroker) *EventPublisher {
	return &EventPublisher{
		broker: broker,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger.
func (p *EventPublisher) SetLogger(logger Logger) {
	p.logger = logger
}

// BroadcastActivation publishes the transition result on the matching
// event topic: scenario activations on the scenario topic, room
// shutdowns on the room topic.
func (p *EventPublisher) BroadcastActivation(result *orchestrator.ActivationResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		p.logger.Error("encoding transition event", "id", result.ID, "error", err)
		return
	}

	topic := p.topics.ScenarioActivated(result.ScenarioID)
	if result.Kind == orchestrator.KindShutdown {
		topic = p.topics.RoomShutdown(result.RoomID)
	}

	if err := p.broker.PublishEvent(topic, payload); err != nil {
		p.logger.Warn("transition event publish failed", "topic", topic, "error", err)
	}
}
