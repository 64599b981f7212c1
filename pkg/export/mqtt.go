package export

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"path"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTOptions configures an MQTT uploader.
type MQTTOptions struct {
	Broker      string // e.g. tcp://localhost:1883
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
	Timeout     time.Duration
}

// publisher is the part of mqtt.Client used for uploads.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes each upload as one message on <prefix>/<folder>/<name>.
type MQTT struct {
	client publisher
	opts   MQTTOptions
	host   string
}

// NewMQTT connects to the broker.
func NewMQTT(opts MQTTOptions) (*MQTT, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not set")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID("golivegraph-" + uuid.New().String()[:8])
	if opts.Username != "" {
		co.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		co.SetPassword(opts.Password)
	}
	co.SetAutoReconnect(true)
	co.SetConnectTimeout(opts.Timeout)
	co.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT: Connection lost: %v", err)
	})

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(opts.Timeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", opts.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	log.Printf("MQTT: Connected to broker: %s", opts.Broker)

	return newMQTT(client, opts), nil
}

func newMQTT(client publisher, opts MQTTOptions) *MQTT {
	host := opts.Broker
	if u, err := url.Parse(opts.Broker); err == nil && u.Host != "" {
		host = u.Host
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &MQTT{client: client, opts: opts, host: host}
}

// Topic returns the topic an upload is published on.
func (m *MQTT) Topic(name, folder string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.opts.TopicPrefix, folder, name} {
		if p = strings.Trim(p, "/"); p != "" {
			parts = append(parts, p)
		}
	}
	return path.Join(parts...)
}

// Upload publishes data and waits for the broker acknowledgement.
func (m *MQTT) Upload(ctx context.Context, data []byte, name, folder string) (string, error) {
	topic := m.Topic(name, folder)
	token := m.client.Publish(topic, m.opts.QoS, false, data)

	timer := time.NewTimer(m.opts.Timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return "", fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return "mqtt://" + m.host + "/" + topic, nil
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}
