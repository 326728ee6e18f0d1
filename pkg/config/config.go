package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// MustLoad loads the configuration from environment variables and .env file.
func MustLoad[T any](cfg T) {
	_ = godotenv.Load() // Load environment variables from .env file

	env.Must(cfg, env.Parse(cfg))
}

// Load loads the configuration from environment variables and .env file.
func Load[T any](cfg T) error {
	_ = godotenv.Load() // .env file is optional

	if err := env.Parse(cfg); err != nil {
		return err // Return error if environment variable parsing fails
	}

	return nil
}

// Config holds the configuration for the application
type Config struct {
	BaseTicker  string `env:"BASE_TICKER" envDefault:"FUN"`  // Base currency of the instrument
	QuoteTicker string `env:"QUOTE_TICKER" envDefault:"BUX"` // Quote currency of the instrument

	// DefaultBalance is the balance a previously unseen user/currency pair starts with.
	DefaultBalance string `env:"DEFAULT_BALANCE" envDefault:"100000"`

	OrderReaderConfig    `envPrefix:"ORDER_READER_"`
	EventPublisherConfig `envPrefix:"EVENT_PUBLISHER_"`
}

// OrderReaderConfig holds the configuration for the Kafka order request consumer.
type OrderReaderConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"orders"`
	GroupID string   `env:"GROUP_ID" envDefault:"default_group"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}

// EventPublisherConfig holds the configuration for the Kafka book event producer.
type EventPublisherConfig struct {
	Topic   string   `env:"TOPIC" envDefault:"book-events"`
	Brokers []string `env:"BROKER" envDefault:"localhost:9092"`
}
