// Package commands is the agent's handler for platform commands arriving on
// devices/{id}/command.
//
// A command is either a JSON object with a "cmd" field, e.g.
// {"cmd":"OPEN_DOOR"}, or a bare command name as plain text.
package commands

import (
	"context"
	"strings"
	"time"

	"github.com/bosshub/bosshub-go/internal/infrastructure/mqtt"
	"github.com/bosshub/bosshub-go/internal/platform"
	"github.com/bosshub/bosshub-go/internal/router"
)

// Command names.
const (
	OpenDoor   = "OPEN_DOOR"
	Restart    = "RESTART"
	CheckStock = "CHECK_STOCK"
	Ping       = "PING"
)

// cloudLogTimeout bounds the platform log call made for a command.
const cloudLogTimeout = 10 * time.Second

// Device is what the handler needs from the SDK client.
type Device interface {
	DeviceID() string
	Publish(topic string, payload any) bool
	Log(ctx context.Context, message, level string) (platform.Response, error)
}

// Logger is the local logging surface.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Handler. All hooks are optional.
type Options struct {
	// OpenDoor drives the door actuator.
	OpenDoor func() error

	// Restart reboots the device. It is called after the command is logged.
	Restart func()

	// Stock reports current stock levels for CHECK_STOCK.
	Stock func() map[string]int

	Logger Logger
}

// Handler dispatches commands to the configured hooks.
type Handler struct {
	device Device
	opts   Options
	log    Logger
}

// New creates a Handler for device.
func New(device Device, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Handler{device: device, opts: opts, log: log}
}

// Name extracts the command name from msg. It returns "" when there is none.
func Name(msg router.Message) string {
	if msg.JSON {
		return strings.TrimSpace(msg.Get("cmd").String())
	}
	return strings.TrimSpace(msg.Text())
}

// Handle is a router.Handler.
func (h *Handler) Handle(msg router.Message) {
	cmd := Name(msg)

	switch strings.ToUpper(cmd) {
	case OpenDoor:
		h.openDoor()
	case Restart:
		h.log.Info("restart requested")
		if h.opts.Restart != nil {
			h.opts.Restart()
		}
	case CheckStock:
		h.reply(h.stock())
	case Ping:
		h.reply(map[string]any{"pong": true, "ts": time.Now().Unix()})
	case "":
		h.log.Warn("message without command ignored", "topic", msg.Topic)
	default:
		h.log.Warn("unknown command", "cmd", cmd, "topic", msg.Topic)
	}
}

func (h *Handler) openDoor() {
	if h.opts.OpenDoor != nil {
		if err := h.opts.OpenDoor(); err != nil {
			h.log.Error("open door failed", "error", err)
			h.cloudLog("Door Open Failed: "+err.Error(), platform.LevelError)
			return
		}
	}
	h.log.Info("door opened")
	h.cloudLog("Door Opened Success", platform.LevelInfo)
}

func (h *Handler) stock() map[string]int {
	if h.opts.Stock == nil {
		return map[string]int{}
	}
	return h.opts.Stock()
}

// reply publishes payload on the device's response topic.
func (h *Handler) reply(payload any) {
	topic := mqtt.Topics{}.DeviceResponse(h.device.DeviceID())
	if !h.device.Publish(topic, payload) {
		h.log.Warn("command reply not sent", "topic", topic)
	}
}

func (h *Handler) cloudLog(message, level string) {
	ctx, cancel := context.WithTimeout(context.Background(), cloudLogTimeout)
	defer cancel()
	// Failures are already logged and journaled by the platform client.
	_, _ = h.device.Log(ctx, message, level)
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
