// Package telemetry publishes control snapshots to MQTT and to browsers
// over a websocket.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/gwillem/crawler/pkg/control"
)

// publisher is the part of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher sends every snapshot to topic and the map, retained, to
// topic/map whenever it changes.
type MQTTPublisher struct {
	client  publisher
	topic   string
	lastMap []byte
	close   func()
}

// NewMQTTPublisher connects to broker, e.g. tcp://localhost:1883.
func NewMQTTPublisher(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	p := newMQTTPublisher(client, topic)
	p.close = func() { client.Disconnect(250) }
	return p, nil
}

func newMQTTPublisher(client publisher, topic string) *MQTTPublisher {
	return &MQTTPublisher{client: client, topic: topic}
}

// Publish implements control.Sink. It does not wait for the broker.
func (p *MQTTPublisher) Publish(s control.Snapshot) {
	payload, err := json.Marshal(s)
	if err != nil {
		slog.Warn("mqtt: encode snapshot", "err", err)
		return
	}
	p.client.Publish(p.topic, 0, false, payload)

	if s.Grid == nil {
		return
	}
	grid, err := json.Marshal(s.Grid)
	if err != nil {
		slog.Warn("mqtt: encode map", "err", err)
		return
	}
	if bytes.Equal(grid, p.lastMap) {
		return
	}
	p.lastMap = grid
	p.client.Publish(p.topic+"/map", 1, true, grid)
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	if p.close != nil {
		p.close()
	}
}
