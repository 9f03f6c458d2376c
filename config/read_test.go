package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig("../config_test.json")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.NotEmpty(t, cfg.NATSURL)
	assert.NotEmpty(t, cfg.RedisURL)
	assert.NotEmpty(t, cfg.MongoURI)
	assert.NotEmpty(t, cfg.MongoDB)
}

func TestValidateRejectsMissingBackends(t *testing.T) {
	base := Config{
		Port:     8080,
		NATSURL:  "nats://localhost:4222",
		RedisURL: "redis://localhost:6379",
		MongoURI: "mongodb://localhost:27017",
		MongoDB:  "chatrelay",
	}
	require.NoError(t, base.Validate())

	// A missing datastore is a startup fault, not something to limp past.
	for name, mutate := range map[string]func(*Config){
		"mongo_uri": func(c *Config) { c.MongoURI = "" },
		"mongo_db":  func(c *Config) { c.MongoDB = "" },
		"nats_url":  func(c *Config) { c.NATSURL = "" },
		"redis_url": func(c *Config) { c.RedisURL = "" },
		"port":      func(c *Config) { c.Port = 0 },
	} {
		cfg := base
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
