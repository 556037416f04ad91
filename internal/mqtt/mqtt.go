// Package mqtt provides MQTT publishing and hub-mode subscription with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// TopicValvePrefix is the topic prefix for valve command events; the node ID
// is appended so a hub can subscribe with a wildcard.
const TopicValvePrefix = "energy/trv/valve/"

// TopicValveWildcard is the subscription pattern a hub uses to hear every
// valve unit.
const TopicValveWildcard = TopicValvePrefix + "+"

// TopicStats is the MQTT topic for periodic stats snapshots.
const TopicStats = "energy/trv/stats"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/trv/system"

// Publisher publishes controller events to MQTT.
type Publisher interface {
	// PublishValve sends a valve command event to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishValve(event ValveEvent) error

	// PublishStats sends a pre-formatted stats snapshot to the broker.
	PublishStats(payload []byte) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// CallForHeatHandler receives remote valve events heard in hub mode.
type CallForHeatHandler func(nodeID string, percentOpen uint8)

// ValveEvent represents one valve command: the state a remote boiler hub
// (or a motorised valve base) needs to act on.
type ValveEvent struct {
	Timestamp      time.Time
	NodeID         string
	TargetC        uint8
	TempC16        int16
	PercentOpen    uint8
	CallingForHeat bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// ValvePayload represents the MQTT message payload for valve events.
type ValvePayload struct {
	TRV ValvePayloadInner `json:"trv"`
}

// ValvePayloadInner contains the valve command details.
type ValvePayloadInner struct {
	Timestamp      string `json:"timestamp"`
	Node           string `json:"node"`
	TargetC        uint8  `json:"target_c"`
	TempC16        int16  `json:"temp_c16"`
	PercentOpen    uint8  `json:"percent_open"`
	CallingForHeat bool   `json:"calling_for_heat"`
}

// FormatValvePayload creates the JSON payload for a valve event.
func FormatValvePayload(event ValveEvent) ([]byte, error) {
	payload := ValvePayload{
		TRV: ValvePayloadInner{
			Timestamp:      event.Timestamp.UTC().Format(time.RFC3339),
			Node:           event.NodeID,
			TargetC:        event.TargetC,
			TempC16:        event.TempC16,
			PercentOpen:    event.PercentOpen,
			CallingForHeat: event.CallingForHeat,
		},
	}
	return json.Marshal(payload)
}

// ParseValvePayload decodes a valve event heard from another unit.
func ParseValvePayload(data []byte) (ValveEvent, error) {
	var payload ValvePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return ValveEvent{}, fmt.Errorf("decode valve payload: %w", err)
	}
	ts, _ := time.Parse(time.RFC3339, payload.TRV.Timestamp)
	return ValveEvent{
		Timestamp:      ts,
		NodeID:         payload.TRV.Node,
		TargetC:        payload.TRV.TargetC,
		TempC16:        payload.TRV.TempC16,
		PercentOpen:    payload.TRV.PercentOpen,
		CallingForHeat: payload.TRV.CallingForHeat,
	}, nil
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
