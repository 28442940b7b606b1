package commands

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bosshub/bosshub-go/internal/platform"
	"github.com/bosshub/bosshub-go/internal/router"
)

type publishedMsg struct {
	topic   string
	payload any
}

type cloudLine struct {
	message string
	level   string
}

type fakeDevice struct {
	mu        sync.Mutex
	published []publishedMsg
	logs      []cloudLine
	connected bool
}

func (f *fakeDevice) DeviceID() string { return "dev1" }

func (f *fakeDevice) Publish(topic string, payload any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return false
	}
	f.published = append(f.published, publishedMsg{topic: topic, payload: payload})
	return true
}

func (f *fakeDevice) Log(_ context.Context, message, level string) (platform.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, cloudLine{message: message, level: level})
	return platform.Response{}, nil
}

func deliver(h *Handler, payload string) {
	h.Handle(router.Decode("devices/dev1/command", []byte(payload)))
}

func TestName(t *testing.T) {
	tests := []struct {
		payload string
		want    string
	}{
		{payload: `{"cmd":"OPEN_DOOR"}`, want: "OPEN_DOOR"},
		{payload: `{"cmd":" PING ","extra":1}`, want: "PING"},
		{payload: `{"other":"x"}`, want: ""},
		{payload: `RESTART`, want: "RESTART"},
		{payload: `not-json`, want: "not-json"},
	}
	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			assert.Equal(t, tt.want, Name(router.Decode("t", []byte(tt.payload))))
		})
	}
}

func TestOpenDoor(t *testing.T) {
	dev := &fakeDevice{connected: true}
	opened := 0
	h := New(dev, Options{OpenDoor: func() error { opened++; return nil }})

	deliver(h, `{"cmd":"OPEN_DOOR"}`)

	assert.Equal(t, 1, opened)
	require.Len(t, dev.logs, 1)
	assert.Equal(t, cloudLine{message: "Door Opened Success", level: "INFO"}, dev.logs[0])
}

func TestOpenDoor_ActuatorFailure(t *testing.T) {
	dev := &fakeDevice{connected: true}
	h := New(dev, Options{OpenDoor: func() error { return errors.New("relay stuck") }})

	deliver(h, `{"cmd":"OPEN_DOOR"}`)

	require.Len(t, dev.logs, 1)
	assert.Equal(t, "ERROR", dev.logs[0].level)
	assert.Contains(t, dev.logs[0].message, "relay stuck")
}

func TestRestart(t *testing.T) {
	dev := &fakeDevice{connected: true}
	restarted := false
	h := New(dev, Options{Restart: func() { restarted = true }})

	deliver(h, `{"cmd":"RESTART"}`)
	assert.True(t, restarted)

	// Without a hook RESTART is only logged.
	require.NotPanics(t, func() { deliver(New(dev, Options{}), "RESTART") })
}

func TestCheckStock(t *testing.T) {
	dev := &fakeDevice{connected: true}
	h := New(dev, Options{Stock: func() map[string]int { return map[string]int{"coke": 10, "pepsi": 5} }})

	deliver(h, `{"cmd":"CHECK_STOCK"}`)

	require.Len(t, dev.published, 1)
	assert.Equal(t, "devices/dev1/response", dev.published[0].topic)
	assert.Equal(t, map[string]int{"coke": 10, "pepsi": 5}, dev.published[0].payload)
}

func TestCheckStock_NoInventory(t *testing.T) {
	dev := &fakeDevice{connected: true}
	deliver(New(dev, Options{}), `{"cmd":"CHECK_STOCK"}`)

	require.Len(t, dev.published, 1)
	assert.Equal(t, map[string]int{}, dev.published[0].payload)
}

func TestPing(t *testing.T) {
	dev := &fakeDevice{connected: true}
	deliver(New(dev, Options{}), `ping`)

	require.Len(t, dev.published, 1)
	payload, ok := dev.published[0].payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, payload["pong"])
}

func TestReplyWhileDisconnected(t *testing.T) {
	dev := &fakeDevice{connected: false}
	require.NotPanics(t, func() { deliver(New(dev, Options{}), `{"cmd":"CHECK_STOCK"}`) })
	assert.Empty(t, dev.published)
}

func TestUnknownAndEmpty(t *testing.T) {
	dev := &fakeDevice{connected: true}
	h := New(dev, Options{})

	deliver(h, `{"cmd":"SELF_DESTRUCT"}`)
	deliver(h, `{"nothing":true}`)

	assert.Empty(t, dev.published)
	assert.Empty(t, dev.logs)
}
