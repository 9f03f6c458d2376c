package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// ReadConfig reads the configuration from the specified JSON file.
func ReadConfig(configPath string) (Config, error) {
	var cfg Config

	viper.SetConfigFile(configPath)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate reports configuration faults that must stop the process before
// it accepts any connection.
func (c Config) Validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("config: mongo_uri is required")
	}
	if c.MongoDB == "" {
		return fmt.Errorf("config: mongo_db is required")
	}
	if c.NATSURL == "" {
		return fmt.Errorf("config: nats_url is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("config: redis_url is required")
	}
	if c.Port <= 0 {
		return fmt.Errorf("config: port must be positive")
	}
	return nil
}

// MustReadConfig reads the configuration or panics if there's an error.
func MustReadConfig(configPath string) Config {
	cfg, err := ReadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	return cfg
}
