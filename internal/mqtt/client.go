// client.go: MQTT client implementation backed by paho.mqtt.golang.
package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/zhu-jl18/vidrename-go/internal/conf"
	"github.com/zhu-jl18/vidrename-go/internal/errors"
	"github.com/zhu-jl18/vidrename-go/internal/observability"
	"github.com/zhu-jl18/vidrename-go/internal/observability/metrics"
)

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  mqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	reconnectTimer  *time.Timer
	reconnectStop   chan struct{}
	stopOnce        sync.Once
	metrics         *metrics.MQTTMetrics
}

// NewClient creates a new MQTT client from the output settings. The broker
// address must be set; everything else falls back to DefaultConfig.
func NewClient(settings *conf.Settings, obs *observability.Metrics) (Client, error) {
	if settings == nil || settings.Output.MQTT.Broker == "" {
		return nil, errors.Newf("MQTT broker address is not configured").
			Category(errors.CategoryConfiguration).
			Context("operation", "mqtt-new-client").
			Build()
	}
	if obs == nil || obs.MQTT == nil {
		return nil, errors.Newf("MQTT client requires metrics").
			Category(errors.CategoryValidation).
			Context("operation", "mqtt-new-client").
			Build()
	}

	config := DefaultConfig()
	config.Broker = settings.Output.MQTT.Broker
	config.ClientID = settings.Main.Name
	config.Username = settings.Output.MQTT.Username
	config.Password = settings.Output.MQTT.Password
	config.Topic = settings.Output.MQTT.Topic
	config.Retain = settings.Output.MQTT.Retain

	return &client{
		config:        config,
		reconnectStop: make(chan struct{}),
		metrics:       obs.MQTT,
	}, nil
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", time.Since(c.lastConnAttempt)).
			Category(errors.CategoryEventPublish).
			Context("operation", "mqtt-connect").
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "mqtt-connect").
			Context("broker", c.config.Broker).
			Build()
	}

	// Resolve the hostname first so an unreachable broker fails with a
	// clear DNS error instead of a connect timeout.
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) {
				return dnsErr
			}
			return errors.Newf("failed to resolve hostname %s: %w", host, err).
				Category(errors.CategoryNetwork).
				Context("operation", "mqtt-connect").
				Build()
		}
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		c.metrics.RecordError("connect")
		return errors.Newf("connection timeout").
			Category(errors.CategoryEventPublish).
			NetworkContext(c.config.Broker, c.config.ConnectTimeout).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.RecordError("connect")
		return errors.New(err).
			Category(errors.CategoryEventPublish).
			Context("operation", "mqtt-connect").
			NetworkContext(c.config.Broker, c.config.ConnectTimeout).
			Build()
	}

	c.metrics.RecordConnectionChange(true)

	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if !c.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Category(errors.CategoryEventPublish).
			Context("operation", "mqtt-publish").
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	defer func() {
		c.metrics.RecordPublishDuration(time.Since(start).Seconds())
	}()

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		c.metrics.RecordPublish(metrics.StatusError)
		mqttLogger.Warn("Publish timed out", "topic", topic, "timeout", c.config.PublishTimeout)
		return errors.Newf("publish timeout").
			Category(errors.CategoryEventPublish).
			Context("operation", "mqtt-publish").
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.metrics.RecordPublish(metrics.StatusError)
		return errors.New(err).
			Category(errors.CategoryEventPublish).
			Context("operation", "mqtt-publish").
			Context("topic", topic).
			Build()
	}

	c.metrics.RecordPublish(metrics.StatusSuccess)
	mqttLogger.Debug("Published outcome event", "topic", topic, "bytes", len(payload))

	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker. Safe to call more
// than once.
func (c *client) Disconnect() {
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.RecordConnectionChange(false)
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	c.stopOnce.Do(func() { close(c.reconnectStop) })
}

func (c *client) onConnect(_ mqtt.Client) {
	mqttLogger.Info("Connected to MQTT broker", "broker", c.config.Broker)
	c.metrics.RecordConnectionChange(true)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	mqttLogger.Warn("Connection to MQTT broker lost", "broker", c.config.Broker, "error", err)
	c.metrics.RecordConnectionChange(false)
	c.metrics.RecordError("connection")
	c.startReconnectTimer()
}

func (c *client) startReconnectTimer() {
	c.reconnectTimer = time.AfterFunc(c.config.ReconnectDelay, func() {
		select {
		case <-c.reconnectStop:
			return
		default:
			c.reconnectWithBackoff()
		}
	})
}

func (c *client) reconnectWithBackoff() {
	backoff := time.Second
	maxBackoff := 5 * time.Minute

	for {
		c.metrics.RecordReconnectAttempt()
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		err := c.Connect(ctx)
		cancel()

		if err == nil {
			mqttLogger.Info("Reconnected to MQTT broker", "broker", c.config.Broker)
			return
		}

		c.metrics.RecordError("reconnect")
		mqttLogger.Warn("Reconnect attempt failed", "broker", c.config.Broker, "error", err, "retry_in", backoff)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-c.reconnectStop:
			return
		}
	}
}
