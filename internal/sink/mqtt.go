package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/scenesync/internal/infrastructure/mqtt"
	"github.com/nerrad567/scenesync/internal/orchestrator"
)

// Logger defines the logging interface used by the sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Broker is the subset of the MQTT client the sink needs.
type Broker interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// ack is the payload device bridges publish on the per-command ack topic.
type ack struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"` // "ok" or "rejected"
	Reason    string `json:"reason,omitempty"`
}

const (
	ackStatusOK       = "ok"
	ackStatusRejected = "rejected"
)

// MQTTSink dispatches commands over MQTT and waits for bridge
// acknowledgements.
//
// Commands go out on the per-cell command topic; bridges answer on the
// shared ack topic, correlated by command ID. A missing ack within the
// ack timeout maps to ErrUnreachable, a negative ack to ErrRejected.
// With a zero ack timeout the sink is fire-and-forget: a successful
// publish counts as delivered.
type MQTTSink struct {
	broker     Broker
	topics     mqtt.Topics
	qos        byte
	ackTimeout time.Duration
	logger     Logger

	mu      sync.Mutex
	pending map[string]chan ack
	started bool
}

// NewMQTTSink creates an MQTT command sink. ackTimeout <= 0 disables
// acknowledgement tracking entirely.
func NewMQTTSink(broker Broker, qos byte, ackTimeout time.Duration) *MQTTSink {
	return &MQTTSink{
		broker:     broker,
		qos:        qos,
		ackTimeout: ackTimeout,
		logger:     noopLogger{},
		pending:    make(map[string]chan ack),
	}
}

// SetLogger sets the logger.
func (s *MQTTSink) SetLogger(logger Logger) {
	s.logger = logger
}

// Start subscribes to the shared ack topic. Idempotent. No-op in
// fire-and-forget mode.
func (s *MQTTSink) Start() error {
	if s.ackTimeout <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if err := s.broker.Subscribe(s.topics.AllCommandAcks(), s.qos, s.handleAck); err != nil {
		return fmt.Errorf("subscribing to command acks: %w", err)
	}
	s.started = true
	return nil
}

// Stop drops the ack subscription.
func (s *MQTTSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false
	if err := s.broker.Unsubscribe(s.topics.AllCommandAcks()); err != nil {
		return fmt.Errorf("unsubscribing from command acks: %w", err)
	}
	return nil
}

// Send publishes the command and waits for its acknowledgement.
func (s *MQTTSink) Send(ctx context.Context, cmd orchestrator.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command %s: %w", cmd.ID, err)
	}

	var ackCh chan ack
	if s.ackTimeout > 0 {
		ackCh = make(chan ack, 1)
		s.mu.Lock()
		s.pending[cmd.ID] = ackCh
		s.mu.Unlock()
		defer s.forget(cmd.ID)
	}

	topic := s.topics.CellCommand(cmd.DeviceID, cmd.CellID)
	if err := s.broker.Publish(topic, payload, s.qos, false); err != nil {
		return fmt.Errorf("%w: publishing to %s: %w", orchestrator.ErrUnreachable, topic, err)
	}

	s.logger.Debug("command published",
		"command_id", cmd.ID,
		"topic", topic,
		"pulse", cmd.Pulse,
	)

	if ackCh == nil {
		return nil
	}

	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()

	select {
	case a := <-ackCh:
		if a.Status == ackStatusRejected {
			if a.Reason != "" {
				return fmt.Errorf("%w: %s", orchestrator.ErrRejected, a.Reason)
			}
			return orchestrator.ErrRejected
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: no ack for command %s within %s",
			orchestrator.ErrUnreachable, cmd.ID, s.ackTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", orchestrator.ErrUnreachable, ctx.Err())
	}
}

// handleAck routes an incoming ack to the command waiting on it.
// Acks for commands nobody is waiting on (late, duplicate) are dropped.
func (s *MQTTSink) handleAck(topic string, payload []byte) error {
	var a ack
	if err := json.Unmarshal(payload, &a); err != nil {
		return fmt.Errorf("decoding ack on %s: %w", topic, err)
	}
	if a.CommandID == "" {
		return fmt.Errorf("ack on %s has no command_id", topic)
	}

	s.mu.Lock()
	ch, ok := s.pending[a.CommandID]
	s.mu.Unlock()

	if !ok {
		s.logger.Debug("ack for unknown command dropped", "command_id", a.CommandID)
		return nil
	}

	select {
	case ch <- a:
	default:
	}
	return nil
}

func (s *MQTTSink) forget(commandID string) {
	s.mu.Lock()
	delete(s.pending, commandID)
	s.mu.Unlock()
}
