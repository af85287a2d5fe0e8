package mqtt

import "fmt"

// Topic prefixes for the SceneSync MQTT scheme.
//
// Commands flow engine -> actuator bridge, acknowledgements flow back keyed
// by command ID so the dispatcher can match them without per-device state.
const (
	// TopicPrefix is the base for all SceneSync topics.
	TopicPrefix = "scenesync"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "scenesync/system"

	// TopicPrefixEvent is the base for engine event topics.
	TopicPrefixEvent = "scenesync/event"
)

// Topics provides builders for SceneSync MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.CellCommand("pump-1", "power")
//	// Returns: "scenesync/command/pump-1/power"
type Topics struct{}

// CellCommand returns the topic for pulse commands to a device cell.
//
// Example: scenesync/command/pump-1/power
func (Topics) CellCommand(deviceID, cellID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, deviceID, cellID)
}

// CommandAck returns the topic a bridge acknowledges a command on.
//
// Example: scenesync/ack/cmd-7f3a21
func (Topics) CommandAck(commandID string) string {
	return fmt.Sprintf("%s/ack/%s", TopicPrefix, commandID)
}

// AllCommandAcks returns the wildcard topic matching every command ack.
//
// Example: scenesync/ack/+
func (Topics) AllCommandAcks() string {
	return fmt.Sprintf("%s/ack/+", TopicPrefix)
}

// SystemStatus returns the engine online/offline status topic (retained).
//
// Example: scenesync/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// Event returns the topic for engine events.
//
// Example: scenesync/event/scenario_activated
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// ScenarioActivated returns the topic for scenario activation events.
//
// Example: scenesync/event/scenario/movie-night/activated
func (Topics) ScenarioActivated(scenarioID string) string {
	return fmt.Sprintf("%s/scenario/%s/activated", TopicPrefixEvent, scenarioID)
}

// RoomShutdown returns the topic for room shutdown events.
//
// Example: scenesync/event/room/plant-room/shutdown
func (Topics) RoomShutdown(roomID string) string {
	return fmt.Sprintf("%s/room/%s/shutdown", TopicPrefixEvent, roomID)
}
