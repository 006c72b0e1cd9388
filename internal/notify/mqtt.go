package notify

import (
	"context"
	"fmt"
	"strings"
)

// JSONPublisher is satisfied by the MQTT client.
type JSONPublisher interface {
	PublishJSON(topic string, data interface{}) error
}

// MQTTSink republishes every handoff on the device bus under
// <prefix>/<severity> so field controllers can react to alerts.
type MQTTSink struct {
	pub    JSONPublisher
	prefix string
}

func NewMQTTSink(pub JSONPublisher, prefix string) *MQTTSink {
	return &MQTTSink{pub: pub, prefix: strings.TrimSuffix(prefix, "/")}
}

func (m *MQTTSink) Publish(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", m.prefix, n.Alert.Severity)
	if err := m.pub.PublishJSON(topic, n); err != nil {
		return fmt.Errorf("failed to publish alert %s on %s: %w", n.Alert.ID, topic, err)
	}
	return nil
}

func (m *MQTTSink) Close() error { return nil }
