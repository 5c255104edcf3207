package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/eclipse/paho.golang/paho"
	"github.com/harrylevesque/csms/internal/config"
)

// MQTTNotifier publishes alerts as JSON to a broker topic, connecting per message.
type MQTTNotifier struct {
	broker   string
	topic    string
	clientID string
	dial     func(ctx context.Context, addr string) (net.Conn, error)
}

func NewMQTTNotifier(cfg config.MQTTConfig) *MQTTNotifier {
	var d net.Dialer
	return &MQTTNotifier{
		broker:   cfg.Broker,
		topic:    cfg.Topic,
		clientID: cfg.ClientID,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

func (n *MQTTNotifier) Name() string { return "Cloud" }

type alertPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Alert   any    `json:"alert"`
}

func (n *MQTTNotifier) Notify(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(alertPayload{Subject: msg.Subject, Body: msg.Body, Alert: msg.Alert})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	conn, err := n.dial(ctx, n.broker)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	client := paho.NewClient(paho.ClientConfig{
		ClientID: n.clientID,
		Conn:     conn,
	})
	if _, err := client.Connect(ctx, &paho.Connect{
		ClientID:   n.clientID,
		KeepAlive:  30,
		CleanStart: true,
	}); err != nil {
		conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}
	defer client.Disconnect(&paho.Disconnect{ReasonCode: 0})

	if _, err := client.Publish(ctx, &paho.Publish{
		Topic:   n.topic,
		QoS:     0,
		Payload: payload,
		Properties: &paho.PublishProperties{
			ContentType: "application/json",
		},
	}); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}
