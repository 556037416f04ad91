package mqtt

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Messages buffered while the broker is unreachable.
const bufferCapacity = 256

// RealPublisher publishes to an actual MQTT broker. Messages that cannot be
// delivered while disconnected are held in a ring buffer and replayed in
// order on reconnection.
type RealPublisher struct {
	client paho.Client
	nodeID string

	mu     sync.Mutex
	buffer *ringBuffer
}

// NewRealPublisher creates a publisher connected to the given broker.
// The node ID scopes the valve topic so a hub can tell units apart.
func NewRealPublisher(broker, nodeID string) (*RealPublisher, error) {
	p := &RealPublisher{
		nodeID: nodeID,
		buffer: newRingBuffer(bufferCapacity),
	}

	lwt, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "CONNECTION_LOST",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("trv-controller-" + shortID(nodeID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, lwt, 1, false).
		SetOnConnectHandler(p.onConnect)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays any messages buffered while disconnected.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	pending := p.buffer.drainAll()
	p.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	log.Printf("mqtt: reconnected, replaying %d buffered messages", len(pending))
	for _, msg := range pending {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			log.Printf("mqtt: replay timeout on %s", msg.topic)
		}
	}
}

// publish sends one message, buffering it instead when disconnected.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.buffer.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishValve sends a valve command event to the MQTT broker.
func (p *RealPublisher) PublishValve(event ValveEvent) error {
	payload, err := FormatValvePayload(event)
	if err != nil {
		return fmt.Errorf("format valve payload: %w", err)
	}

	// QoS 1, retained: a hub joining late must still see the latest
	// commanded state of every valve.
	return p.publish(TopicValvePrefix+event.NodeID, 1, true, payload)
}

// PublishStats sends a stats snapshot to the MQTT broker.
func (p *RealPublisher) PublishStats(payload []byte) error {
	// QoS 0 (at-most-once): snapshots are periodic, a lost one is replaced.
	return p.publish(TopicStats, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for shutdown events - we want to ensure delivery
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// SubscribeCallForHeat registers a handler for valve events from other
// units, used in hub mode. Events published by this unit are skipped.
func (p *RealPublisher) SubscribeCallForHeat(handler CallForHeatHandler) error {
	token := p.client.Subscribe(TopicValveWildcard, 1, func(_ paho.Client, msg paho.Message) {
		event, err := ParseValvePayload(msg.Payload())
		if err != nil {
			log.Printf("mqtt: bad valve payload on %s: %v", msg.Topic(), err)
			return
		}
		if event.NodeID == "" || event.NodeID == p.nodeID {
			return
		}
		if !event.CallingForHeat {
			return
		}
		handler(event.NodeID, event.PercentOpen)
	})
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicValveWildcard, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// BufferedCount returns how many messages await replay.
func (p *RealPublisher) BufferedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

// shortID keeps client IDs readable when the node ID is a full UUID.
func shortID(nodeID string) string {
	id := strings.ReplaceAll(nodeID, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
