package mqtt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests exercise the disconnected paths and need no broker.
// Broker round-trips live in integration_test.go.

func TestClient_OperationsBeforeConnect(t *testing.T) {
	client := NewClient(testConfig(), "dev1")

	assert.False(t, client.IsConnected())
	assert.ErrorIs(t, client.Publish("devices/dev1/log", []byte("x")), ErrNotConnected)
	assert.ErrorIs(t, client.Subscribe("devices/dev1/command"), ErrNotConnected)
	assert.ErrorIs(t, client.Unsubscribe("devices/dev1/command"), ErrNotConnected)
	assert.ErrorIs(t, client.HealthCheck(context.Background()), ErrNotConnected)

	// Disconnect before Connect is a no-op.
	client.Disconnect()
}

func TestClient_InvalidInput(t *testing.T) {
	client := NewClient(testConfig(), "dev1")

	assert.ErrorIs(t, client.Publish("", []byte("x")), ErrInvalidTopic)
	assert.ErrorIs(t, client.Subscribe(""), ErrInvalidTopic)

	big := make([]byte, maxPayloadSize+1)
	assert.ErrorIs(t, client.Publish("devices/dev1/log", big), ErrPublishFailed)
}

func TestClient_HealthCheckCancelled(t *testing.T) {
	client := NewClient(testConfig(), "dev1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, client.HealthCheck(ctx), context.Canceled)
}

func TestClient_ConnectUnreachableBroker(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 1 // nothing listens here

	client := NewClient(cfg, "dev1")
	require.ErrorIs(t, client.Connect(context.Background()), ErrConnectionFailed)
	assert.False(t, client.IsConnected())
}

func TestClient_ConnectCancelledContext(t *testing.T) {
	client := NewClient(testConfig(), "dev1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, client.Connect(ctx), ErrConnectionFailed)
}
