package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration, read from the environment.
type Config struct {
	AppPort          string
	DBDriver         string
	DatabaseDSN      string
	JWTSecret        string
	JWTTTL           time.Duration
	RabbitMQURL      string
	RabbitMQQueue    string
	LogEvents        bool
	AuthVerifier     string
	AuthSeedUsername string
	AuthSeedPassword string
	SeedProducts     bool
}

// New returns a viper instance with every default registered and
// environment lookup enabled.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:productapi.db?_foreign_keys=on")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("RABBITMQ_URL", "") // empty disables product events
	v.SetDefault("RABBITMQ_QUEUE", "product_events")
	v.SetDefault("RABBITMQ_LOG_EVENTS", false) // consume own queue and log events
	v.SetDefault("AUTH_VERIFIER", "any")
	v.SetDefault("AUTH_SEED_USERNAME", "")
	v.SetDefault("AUTH_SEED_PASSWORD", "")
	v.SetDefault("SEED_PRODUCTS", false)
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return FromViper(New())
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		AppPort:          v.GetString("APP_PORT"),
		DBDriver:         v.GetString("DB_DRIVER"),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTTTL:           v.GetDuration("JWT_TTL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQQueue:    v.GetString("RABBITMQ_QUEUE"),
		LogEvents:        v.GetBool("RABBITMQ_LOG_EVENTS"),
		AuthVerifier:     v.GetString("AUTH_VERIFIER"),
		AuthSeedUsername: v.GetString("AUTH_SEED_USERNAME"),
		AuthSeedPassword: v.GetString("AUTH_SEED_PASSWORD"),
		SeedProducts:     v.GetBool("SEED_PRODUCTS"),
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET must be set")
	}
	// Token expiry is stored in whole seconds.
	if cfg.JWTTTL < time.Second {
		return Config{}, errors.New("JWT_TTL must be at least 1s")
	}
	return cfg, nil
}
