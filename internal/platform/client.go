package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/bosshub/bosshub-go/internal/metrics"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Defaults for platform requests.
const (
	DefaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of a failed response is kept for logs.
	maxErrorBody = 512

	// maxResponseBody caps how much of a successful response is decoded.
	maxResponseBody = 1 << 20
)

// Response is the decoded JSON object of a successful call.
type Response map[string]any

// String returns the value at key when it is a string.
func (r Response) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool reports whether the value at key is truthy: true, a non-zero
// number, or a non-empty string, array or object.
func (r Response) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return false
	}
}

// Logger is the logging surface the client needs.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// FailureRecorder is notified of every failed call, e.g. to journal it.
type FailureRecorder interface {
	RecordFailure(ctx context.Context, endpoint string, statusCode int, cause error)
}

// Options configures a Client.
type Options struct {
	ServerURL string
	APIKey    string
	DeviceID  string

	// Platform is sent as X-Platform. Empty means DefaultPlatform().
	Platform string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// AllowMissingKey lets New succeed without an APIKey. Requests are then
	// sent without an Authorization header.
	AllowMissingKey bool

	// HTTPClient overrides the transport. Its Timeout is left untouched.
	HTTPClient *http.Client

	Logger   Logger
	Metrics  *metrics.Metrics
	Failures FailureRecorder
}

// Client posts JSON requests to the BossHub platform.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	deviceID   string
	platform   string
	httpClient *http.Client

	log      Logger
	metrics  *metrics.Metrics
	failures FailureRecorder

	// now is the clock used for the "ts" field. Replaced in tests.
	now func() time.Time
}

// DefaultPlatform names the runtime in the X-Platform header.
func DefaultPlatform() string {
	return fmt.Sprintf("Go/%s-%s", runtime.GOOS, runtime.GOARCH)
}

// New creates a Client.
//
// Returns:
//   - *Client: Client ready for use
//   - error: ErrMissingAPIKey without a key (unless allowed), or if the server URL or device id is empty
func New(opts Options) (*Client, error) {
	if opts.APIKey == "" && !opts.AllowMissingKey {
		return nil, ErrMissingAPIKey
	}
	if opts.ServerURL == "" {
		return nil, fmt.Errorf("platform: server url is required")
	}
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("platform: device id is required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	platform := opts.Platform
	if platform == "" {
		platform = DefaultPlatform()
	}
	var log Logger = nopLogger{}
	if opts.Logger != nil {
		log = opts.Logger
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.ServerURL, "/"),
		apiKey:     opts.APIKey,
		deviceID:   opts.DeviceID,
		platform:   platform,
		httpClient: httpClient,
		log:        log,
		metrics:    opts.Metrics,
		failures:   opts.Failures,
		now:        time.Now,
	}, nil
}

// DeviceID returns the id sent with every request.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Post sends payload to endpoint.
//
// The payload is copied before "ts" and "device_id" are added, so the
// caller's map is not modified. A nil payload is sent as an empty object.
//
// Returns:
//   - Response: Decoded body on 200 or 201, nil otherwise
//   - error: *RequestError wrapping ErrRequestFailed on any failure
func (c *Client) Post(ctx context.Context, endpoint string, payload map[string]any) (Response, error) {
	start := time.Now()
	endpoint = strings.TrimLeft(endpoint, "/")

	resp, status, err := c.do(ctx, endpoint, payload)
	if err != nil {
		c.metrics.Request(endpoint, metrics.ResultError, time.Since(start))
		if status != 0 {
			c.log.Error("platform API error", "endpoint", endpoint, "status", status, "error", err)
		} else {
			c.log.Error("platform network error", "endpoint", endpoint, "error", err)
		}
		if c.failures != nil {
			c.failures.RecordFailure(ctx, endpoint, status, err)
		}
		return nil, err
	}

	c.metrics.Request(endpoint, metrics.ResultOK, time.Since(start))
	return resp, nil
}

func (c *Client) do(ctx context.Context, endpoint string, payload map[string]any) (Response, int, error) {
	body := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["ts"] = float64(c.now().UnixNano()) / 1e9
	body["device_id"] = c.deviceID

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, 0, &RequestError{Endpoint: endpoint, Err: fmt.Errorf("encoding payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, &RequestError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("X-Device-ID", c.deviceID)
	req.Header.Set("X-Platform", c.platform)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &RequestError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		// Drain body to allow connection reuse
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, &RequestError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, resp.StatusCode, &RequestError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: err}
	}

	// Every endpoint answers with an object; any other JSON is a failure.
	var out Response
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return nil, resp.StatusCode, &RequestError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Err:        ErrInvalidResponse,
		}
	}
	return out, resp.StatusCode, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
