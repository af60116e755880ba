// Package mqtt publishes records, alarm edges and system events to a broker,
// with an abstraction for testing.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/sweeney/fridge-monitor/internal/dispatch"
	"github.com/sweeney/fridge-monitor/internal/logic"
)

// DefaultPrefix is the topic root used when none is configured.
const DefaultPrefix = "fridge"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// ReasonDisconnect is the reason carried by the last-will message.
const ReasonDisconnect = "MQTT_DISCONNECT"

// Topics are the per-device topics messages are published on.
type Topics struct {
	Records string
	Alarms  string
	System  string
}

// NewTopics builds the topics for deviceID under prefix.
func NewTopics(prefix, deviceID string) Topics {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	base := prefix + "/" + deviceID
	return Topics{
		Records: base + "/records",
		Alarms:  base + "/alarms",
		System:  base + "/system",
	}
}

// Publisher publishes to MQTT.
type Publisher interface {
	// PublishRecord sends a finalized long-period record.
	// Returns error if publishing fails (should not crash the process).
	PublishRecord(rec logic.AggregationRecord) error

	// PublishAlarm sends an alarm raise or clear.
	PublishAlarm(e dispatch.AlarmEdge) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// RecordSink adapts p to a dispatcher record sink.
func RecordSink(p Publisher) dispatch.RecordSink {
	return dispatch.RecordSinkFunc(func(_ context.Context, rec logic.AggregationRecord) error {
		return p.PublishRecord(rec)
	})
}

// AlarmSink adapts p to a dispatcher alarm sink.
func AlarmSink(p Publisher) dispatch.AlarmSink {
	return dispatch.AlarmSinkFunc(func(_ context.Context, e dispatch.AlarmEdge) error {
		return p.PublishAlarm(e)
	})
}
