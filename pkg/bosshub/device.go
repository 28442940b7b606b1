package bosshub

import (
	"context"
	"strings"

	"github.com/bosshub/bosshub-go/internal/infrastructure/mqtt"
	"github.com/bosshub/bosshub-go/internal/platform"
)

// Heartbeat tells the platform the device is online.
func (c *Client) Heartbeat(ctx context.Context) (Response, error) {
	res, err := c.api.Heartbeat(ctx)
	c.influx.WriteHeartbeat(err == nil)
	return res, err
}

// UpdateStatus reports the device state, e.g. StateBusy while washing.
// errorCode is only sent when non-empty.
func (c *Client) UpdateStatus(ctx context.Context, state State, errorCode string) (Response, error) {
	c.influx.WriteStatus(string(state), errorCode)
	return c.api.UpdateStatus(ctx, state, errorCode)
}

// Log sends message to the platform log. An empty level means LevelInfo.
// While MQTT is connected the entry is also published on devices/{id}/log.
func (c *Client) Log(ctx context.Context, message, level string) (Response, error) {
	if c.sup.State() == Connected {
		lvl := strings.ToUpper(level)
		if lvl == "" {
			lvl = LevelInfo
		}
		c.sup.Publish(mqtt.Topics{}.DeviceLog(c.deviceID), map[string]string{
			"level":   lvl,
			"message": message,
		})
	}
	return c.api.Log(ctx, message, level)
}

// CheckPayment reports whether the payment with refCode has been paid.
// Any failure reads as unpaid.
func (c *Client) CheckPayment(ctx context.Context, refCode string) (bool, error) {
	return c.api.CheckPayment(ctx, refCode)
}

// ReportSale records a sale. An empty method means "QR".
func (c *Client) ReportSale(ctx context.Context, productID string, amount float64, method string) (Response, error) {
	if method == "" {
		method = platform.DefaultPaymentMethod
	}
	res, err := c.api.ReportSale(ctx, productID, amount, method)
	if err == nil {
		c.influx.WriteSale(productID, amount, method)
	}
	return res, err
}

// GetProductInfo fetches name, price and stock for productID.
func (c *Client) GetProductInfo(ctx context.Context, productID string) (Response, error) {
	return c.api.GetProductInfo(ctx, productID)
}

// GetConfig fetches a remote config value, returning def when the platform
// has none or the call fails.
func (c *Client) GetConfig(ctx context.Context, key string, def any) (any, error) {
	return c.api.GetConfig(ctx, key, def)
}

// CheckOTAUpdate returns the firmware URL when an update for version is
// available, or "".
func (c *Client) CheckOTAUpdate(ctx context.Context, version string) (string, error) {
	return c.api.CheckOTAUpdate(ctx, version)
}
