package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
)

func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1883,
		},
		QoS:       1,
		InboxSize: 2,
	}
}

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "device"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg, "bosshub-dev1")

	require.Len(t, opts.Servers, 1)
	assert.Equal(t, "tcp://127.0.0.1:1883", opts.Servers[0].String())
	assert.Equal(t, "bosshub-dev1", opts.ClientID)
	assert.Equal(t, "device", opts.Username)
	assert.Equal(t, "secret", opts.Password)
	assert.False(t, opts.AutoReconnect, "reconnects are supervised")
	assert.False(t, opts.ConnectRetry)
	assert.Nil(t, opts.TLSConfig, "TLSConfig set without mqtt.broker.tls")
}

func TestBuildClientOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg, "bosshub-dev1")

	assert.Equal(t, "ssl://127.0.0.1:8883", opts.Servers[0].String())
	require.NotNil(t, opts.TLSConfig)
	assert.EqualValues(t, tlsMinVersion, opts.TLSConfig.MinVersion)
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig(), "bosshub-dev1")
	configureLWT(opts, "dev1", 1)

	require.True(t, opts.WillEnabled)
	assert.Equal(t, "devices/dev1/status", opts.WillTopic)
	assert.True(t, opts.WillRetained)

	var will map[string]string
	require.NoError(t, json.Unmarshal(opts.WillPayload, &will))
	assert.Equal(t, "offline", will["status"])
	assert.Equal(t, "dev1", will["device_id"])
}

func TestStatusPayloads(t *testing.T) {
	for name, payload := range map[string]string{
		"online":  buildOnlinePayload("dev1", "bosshub-dev1"),
		"offline": buildOfflinePayload("dev1", "bosshub-dev1"),
	} {
		t.Run(name, func(t *testing.T) {
			var got map[string]string
			require.NoError(t, json.Unmarshal([]byte(payload), &got))
			assert.Equal(t, name, got["status"])
			assert.Equal(t, "bosshub-dev1", got["client_id"])
		})
	}
}

func TestNewClient_ClientID(t *testing.T) {
	assert.Equal(t, "bosshub-dev1", NewClient(testConfig(), "dev1").ClientID())

	cfg := testConfig()
	cfg.Broker.ClientID = "custom"
	assert.Equal(t, "custom", NewClient(cfg, "dev1").ClientID())
}
