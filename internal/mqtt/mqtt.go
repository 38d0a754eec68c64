// mqtt.go: Package mqtt publishes rename outcome events to an MQTT broker.
package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zhu-jl18/vidrename-go/internal/logging"
)

// Client is the broker connection used to publish outcome events.
type Client interface {
	// Connect establishes the broker connection.
	Connect(ctx context.Context) error

	// Publish sends one payload to the given topic.
	Publish(ctx context.Context, topic string, payload string) error

	// IsConnected reports whether the broker connection is up.
	IsConnected() bool

	// Disconnect closes the broker connection. Safe to call repeatedly.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // Default topic for outcome events
	Retain            bool   // true to retain messages at the broker
	ReconnectCooldown time.Duration
	ReconnectDelay    time.Duration
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// Package-level logger for MQTT related events
var mqttLogger *slog.Logger

func init() {
	var err error
	// Info is enough here. Outcome events are low volume, one per file.
	mqttLogger, _, err = logging.NewFileLogger("logs/mqtt.log", "mqtt", slog.LevelInfo)
	if err != nil {
		logging.Error("Failed to initialize MQTT file logger", "error", err)
		// Fallback to the default structured logger
		mqttLogger = logging.Structured().With("service", "mqtt")
		if mqttLogger == nil {
			panic(fmt.Sprintf("Failed to initialize any logger for MQTT service: %v", err))
		}
	}
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    1 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}
