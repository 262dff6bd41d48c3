// Package mqtt mirrors every published snapshot to an MQTT broker.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/intelevision/internal/log"
)

// Client manages the MQTT connection. Publishing is done by Publisher.
type Client struct {
	client paho.Client
	config ClientConfig
}

// ClientConfig holds MQTT client configuration
type ClientConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// NewClient connects to the broker.
func NewClient(config ClientConfig) (*Client, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetOnConnectHandler(func(paho.Client) {
		log.Info("mqtt connection established", "broker", config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	})
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)

	client := paho.NewClient(opts)

	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Client{
		client: client,
		config: config,
	}, nil
}

// Native returns the underlying paho client.
func (c *Client) Native() paho.Client {
	return c.client
}

// IsConnected returns whether the client is currently connected
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, allowing in-flight messages 250ms to drain.
func (c *Client) Close() {
	c.client.Disconnect(250)
	log.Info("mqtt disconnected")
}
