package platform

import (
	"context"
	"strings"
)

// Platform endpoints.
const (
	EndpointHeartbeat   = "device/heartbeat"
	EndpointStatus      = "device/status"
	EndpointLog         = "device/log"
	EndpointPayment     = "payment/check"
	EndpointSale        = "sales/record"
	EndpointProductInfo = "product/info"
	EndpointConfig      = "device/config"
	EndpointFirmware    = "firmware/check"
)

// State is the operating state a device reports.
type State string

// Device states understood by the platform.
const (
	StateIdle    State = "IDLE"
	StateBusy    State = "BUSY"
	StateError   State = "ERROR"
	StateOffline State = "OFFLINE"
)

// Log levels for device/log.
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// DefaultPaymentMethod is used by ReportSale when none is given.
const DefaultPaymentMethod = "QR"

// Heartbeat tells the platform the device is online.
func (c *Client) Heartbeat(ctx context.Context) (Response, error) {
	return c.Post(ctx, EndpointHeartbeat, nil)
}

// UpdateStatus reports the device state. errorCode is sent only when non-empty.
func (c *Client) UpdateStatus(ctx context.Context, state State, errorCode string) (Response, error) {
	payload := map[string]any{"state": string(state)}
	if errorCode != "" {
		payload["error_code"] = errorCode
	}
	return c.Post(ctx, EndpointStatus, payload)
}

// Log writes message to the local log and ships it to the platform.
// An empty level means INFO.
func (c *Client) Log(ctx context.Context, message, level string) (Response, error) {
	level = strings.ToUpper(level)
	if level == "" {
		level = LevelInfo
	}

	switch level {
	case LevelError:
		c.log.Error(message, "source", "device")
	case LevelWarning, "WARN":
		c.log.Warn(message, "source", "device")
	default:
		c.log.Info(message, "source", "device", "level", level)
	}

	return c.Post(ctx, EndpointLog, map[string]any{"level": level, "message": message})
}

// CheckPayment reports whether the payment with refCode has been paid.
// Any failure reads as unpaid; the error says why.
func (c *Client) CheckPayment(ctx context.Context, refCode string) (bool, error) {
	res, err := c.Post(ctx, EndpointPayment, map[string]any{"ref_code": refCode})
	if err != nil {
		return false, err
	}
	return res.String("status") == "paid", nil
}

// ReportSale records a sale. An empty method means DefaultPaymentMethod.
func (c *Client) ReportSale(ctx context.Context, productID string, amount float64, method string) (Response, error) {
	if method == "" {
		method = DefaultPaymentMethod
	}
	return c.Post(ctx, EndpointSale, map[string]any{
		"product_id": productID,
		"amount":     amount,
		"method":     method,
	})
}

// GetProductInfo fetches product details such as name, price and stock.
func (c *Client) GetProductInfo(ctx context.Context, productID string) (Response, error) {
	return c.Post(ctx, EndpointProductInfo, map[string]any{"product_id": productID})
}

// GetConfig fetches a remote setting. It returns def when the call fails
// or the response carries no "value".
func (c *Client) GetConfig(ctx context.Context, key string, def any) (any, error) {
	res, err := c.Post(ctx, EndpointConfig, map[string]any{"key": key})
	if err != nil {
		return def, err
	}
	v, ok := res["value"]
	if !ok {
		return def, nil
	}
	return v, nil
}

// CheckOTAUpdate asks whether firmware newer than currentVersion exists.
// It returns the firmware URL, or "" when there is no update.
func (c *Client) CheckOTAUpdate(ctx context.Context, currentVersion string) (string, error) {
	res, err := c.Post(ctx, EndpointFirmware, map[string]any{"version": currentVersion})
	if err != nil {
		return "", err
	}
	if !res.Bool("has_update") {
		return "", nil
	}
	return res.String("firmware_url"), nil
}
