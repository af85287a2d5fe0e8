// Package mqtt provides the MQTT transport layer for SceneSync Core.
//
// It wraps paho.mqtt.golang with connection lifecycle management, Last Will
// and Testament for offline detection, tracked subscriptions that survive
// reconnects, and topic builders for the SceneSync scheme:
//
//	scenesync/command/{device}/{cell}   pulse commands to actuator bridges
//	scenesync/ack/{command_id}          per-command acknowledgements
//	scenesync/system/status             engine online/offline (retained)
//	scenesync/event/...                 activation and state-change events
//
// The command sink in internal/sink builds on this package; domain packages
// never import paho directly.
package mqtt
