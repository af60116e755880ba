package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/logger"
	"github.com/sweeney/fridge-monitor/internal/logic"
	"github.com/sweeney/fridge-monitor/internal/metrics"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	DeviceID   string
	Prefix     string
	BufferSize int
	// Now stamps system events; nil uses time.Now.
	Now func() time.Time
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are held in a ring buffer and replayed, oldest
// first, when the client reconnects.
type RealPublisher struct {
	client   paho.Client
	deviceID string
	topics   Topics
	now      func() time.Time

	mu        sync.Mutex
	buffer    *ringBuffer
	connected bool
	connects  int
}

// NewRealPublisher creates a publisher and starts connecting to the broker.
// An unreachable broker is not an error: the client keeps retrying in the
// background and messages are buffered until it succeeds.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Now == nil {
		o.Now = time.Now
	}
	p := &RealPublisher{
		deviceID: o.DeviceID,
		topics:   NewTopics(o.Prefix, o.DeviceID),
		now:      o.Now,
		buffer:   newRingBuffer(o.BufferSize),
	}

	will, err := FormatSystemPayload(WillEvent(o.Now()))
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(p.topics.System, will, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.WarnKV(context.Background(), "mqtt broker not reachable yet, buffering", "broker", o.Broker)
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.connects++
	reconnect := p.connects > 1
	pending := p.buffer.drainAll()
	p.mu.Unlock()
	metrics.SetOfflineBuffered(0)

	ctx := logger.WithName(context.Background(), "mqtt")
	logger.InfoKV(ctx, "mqtt connected", "replaying", len(pending), "reconnect", reconnect)

	for _, msg := range pending {
		if err := p.send(msg); err != nil {
			logger.WarnKV(ctx, "replay failed", "topic", msg.topic, "error", err)
		}
	}

	if reconnect {
		if err := p.PublishSystem(SystemEvent{Timestamp: p.now(), Event: EventReconnected}); err != nil {
			logger.WarnKV(ctx, "reconnected event failed", "error", err)
		}
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	logger.WarnKV(logger.WithName(context.Background(), "mqtt"), "mqtt connection lost", "error", err)
}

// PublishRecord sends a record to the records topic, QoS 1.
func (p *RealPublisher) PublishRecord(rec logic.AggregationRecord) error {
	payload, err := FormatRecordPayload(p.deviceID, rec)
	if err != nil {
		return fmt.Errorf("format record payload: %w", err)
	}
	return p.publish(bufferedMsg{kind: "record", topic: p.topics.Records, payload: payload, qos: 1})
}

// PublishAlarm sends an alarm edge to the alarms topic, QoS 1 and retained so
// late subscribers see the current alarm level.
func (p *RealPublisher) PublishAlarm(e dispatch.AlarmEdge) error {
	payload, err := FormatAlarmPayload(p.deviceID, e)
	if err != nil {
		return fmt.Errorf("format alarm payload: %w", err)
	}
	topic := p.topics.Alarms + "/" + string(e.Alarm)
	return p.publish(bufferedMsg{kind: "alarm", topic: topic, payload: payload, qos: 1, retained: true})
}

// PublishSystem sends a system lifecycle event to the system topic.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(bufferedMsg{kind: "system", topic: p.topics.System, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		if p.buffer.push(msg) {
			metrics.ObservePublish(msg.kind, metrics.ResultError)
		}
		n := p.buffer.len()
		p.mu.Unlock()
		metrics.SetOfflineBuffered(n)
		return nil
	}
	p.mu.Unlock()
	return p.send(msg)
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		metrics.ObservePublish(msg.kind, metrics.ResultError)
		return fmt.Errorf("publish %s timeout", msg.kind)
	}
	if err := token.Error(); err != nil {
		metrics.ObservePublish(msg.kind, metrics.ResultError)
		return fmt.Errorf("publish %s: %w", msg.kind, err)
	}
	metrics.ObservePublish(msg.kind, metrics.ResultSuccess)
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
