package integration

import (
	"context"
	"testing"

	"chatrelay/config"
	"chatrelay/internal/nats"
	"chatrelay/internal/store"
	"chatrelay/pkg/logger"
)

func testConfig() config.Config {
	return config.MustReadConfig("../../config_test.json")
}

func testLogger() logger.Logger {
	return logger.NewLogger("error", "")
}

// requireNATS connects to the test NATS server, skipping the test when the
// server is not running.
func requireNATS(t *testing.T) *nats.Client {
	t.Helper()

	client, err := nats.NewClient(testConfig().NATSURL)
	if err != nil {
		t.Skipf("NATS not available: %v", err)
	}
	t.Cleanup(client.Close)
	return client
}

// requireMongo connects to the test MongoDB, skipping when unavailable.
func requireMongo(t *testing.T) *store.MongoStore {
	t.Helper()

	cfg := testConfig()
	s, err := store.NewMongoStore(context.Background(), cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close(context.Background())
	})
	return s
}
