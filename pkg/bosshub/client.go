package bosshub

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bosshub/bosshub-go/internal/api"
	"github.com/bosshub/bosshub-go/internal/identity"
	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
	"github.com/bosshub/bosshub-go/internal/infrastructure/database"
	"github.com/bosshub/bosshub-go/internal/infrastructure/influxdb"
	"github.com/bosshub/bosshub-go/internal/infrastructure/logging"
	"github.com/bosshub/bosshub-go/internal/infrastructure/mqtt"
	"github.com/bosshub/bosshub-go/internal/journal"
	"github.com/bosshub/bosshub-go/internal/metrics"
	"github.com/bosshub/bosshub-go/internal/platform"
	"github.com/bosshub/bosshub-go/internal/router"
	"github.com/bosshub/bosshub-go/internal/supervisor"
	"github.com/bosshub/bosshub-go/migrations"
)

// Options holds optional construction settings.
type Options struct {
	// Version is reported by the status server. Empty means Version.
	Version string

	// Logger replaces the logger built from cfg.Logging.
	Logger *logging.Logger

	// Registry receives the SDK's Prometheus collectors. Nil means a
	// private registry, served by the status server.
	Registry *prometheus.Registry

	// HTTPClient overrides the platform HTTP transport.
	HTTPClient *http.Client
}

// Client is a BossHub device.
//
// It owns the platform REST client, the MQTT session (through a
// supervisor that reconnects once per transport failure) and the optional
// local store, telemetry mirror and status server.
//
// Thread Safety: In threaded mode all methods are safe for concurrent use.
// In cooperative mode the router is unlocked, so Subscribe, Unsubscribe and
// Loop must all be called from the host's main loop goroutine.
type Client struct {
	cfg      *config.Config
	log      *logging.Logger
	deviceID string
	source   identity.Source

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	db       *database.DB
	journal  *journal.SQLiteRepository
	recorder *journal.Recorder
	influx   *influxdb.Client

	api    *platform.Client
	router *router.Router
	sup    *supervisor.Supervisor
	status *api.Server
}

// Connect builds a Client from the default configuration and environment,
// using apiKey when it is non-empty.
func Connect(ctx context.Context, apiKey string) (*Client, error) {
	cfg := DefaultConfig()
	if apiKey != "" {
		cfg.API.Key = apiKey
	}
	return New(ctx, cfg, Options{})
}

// New builds a Client from cfg.
//
// It performs the following setup:
//  1. Validates cfg (a missing API key is fatal unless api.allow_missing_key is set)
//  2. Opens and migrates the local store when enabled
//  3. Resolves the device id (config, store, hardware, generated)
//  4. Creates the platform client, router, MQTT transport and supervisor
//  5. Connects telemetry and starts the status server when enabled
//
// MQTT is not connected; call ConnectMQTT.
//
// Returns:
//   - *Client: Ready client
//   - error: ErrMissingAPIKey (wrapped), or if a required component fails
func New(ctx context.Context, cfg *Config, opts Options) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("bosshub: %w", err)
	}

	version := opts.Version
	if version == "" {
		version = Version
	}
	log := opts.Logger
	if log == nil {
		log = logging.New(cfg.Logging, version)
	}
	if cfg.MissingKeyTolerated() {
		log.Warn("API key is missing, platform requests will be unauthenticated")
	}

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("bosshub: registering metrics: %w", err)
	}

	c := &Client{cfg: cfg, registry: registry, metrics: m}

	if err := c.openStore(ctx, log); err != nil {
		return nil, err
	}

	var store identity.MetaStore
	if c.db != nil {
		store = c.db
	}
	ident, err := identity.NewResolver(store).Resolve(ctx, cfg.Device.ID)
	if err != nil {
		// Resolve still returns a usable id; only persistence failed.
		log.Warn("device id not persisted", "error", err)
	}
	c.deviceID = ident.ID
	c.source = ident.Source
	c.log = log.ForDevice(c.deviceID)

	if _, err := c.PruneJournal(ctx); err != nil {
		c.log.Warn("journal prune failed", "error", err)
	}

	if err := c.buildPlatform(opts.HTTPClient); err != nil {
		c.closeStore()
		return nil, err
	}
	if err := c.buildMQTT(); err != nil {
		c.closeStore()
		return nil, err
	}
	c.connectTelemetry(ctx)

	if err := c.startStatusServer(ctx, version); err != nil {
		c.Close() //nolint:errcheck // Already failing
		return nil, err
	}

	c.log.Info("device initialised",
		"kind", cfg.Device.Kind,
		"id_source", string(c.source),
		"mqtt_mode", cfg.MQTT.Mode,
	)
	return c, nil
}

func (c *Client) openStore(ctx context.Context, log *logging.Logger) error {
	if !c.cfg.Database.Enabled {
		return nil
	}

	db, err := database.Open(c.cfg.Database)
	if err != nil {
		return fmt.Errorf("bosshub: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return fmt.Errorf("bosshub: migrating local store: %w", err)
	}

	c.db = db
	c.journal = journal.NewSQLiteRepository(db.DB)
	c.recorder = journal.NewRecorder(c.journal, log)
	return nil
}

func (c *Client) closeStore() {
	if c.db != nil {
		c.db.Close() //nolint:errcheck // Best effort cleanup on error path
	}
}

func (c *Client) buildPlatform(httpClient *http.Client) error {
	opts := platform.Options{
		ServerURL:       c.cfg.API.ServerURL,
		APIKey:          c.cfg.API.Key,
		AllowMissingKey: c.cfg.API.AllowMissingKey,
		DeviceID:        c.deviceID,
		Platform:        c.cfg.Device.Platform,
		Timeout:         c.cfg.GetRequestTimeout(),
		HTTPClient:      httpClient,
		Logger:          c.log,
		Metrics:         c.metrics,
	}
	if c.recorder != nil {
		opts.Failures = c.recorder
	}

	client, err := platform.New(opts)
	if err != nil {
		return fmt.Errorf("bosshub: %w", err)
	}
	c.api = client
	return nil
}

func (c *Client) buildMQTT() error {
	var transport supervisor.Transport
	if c.cfg.IsCooperative() {
		c.router = router.NewCooperative(c.log, c.metrics)
		pc := mqtt.NewPollingClient(c.cfg.MQTT, c.deviceID)
		pc.SetLogger(c.log)
		pc.SetDropHandler(func() {
			c.metrics.InboxDropped()
			c.log.Warn("MQTT inbox full, message dropped")
		})
		transport = pc
	} else {
		c.router = router.NewThreaded(c.log, c.metrics)
		mc := mqtt.NewClient(c.cfg.MQTT, c.deviceID)
		mc.SetLogger(c.log)
		transport = mc
	}

	sup, err := supervisor.New(supervisor.Options{
		DeviceID:      c.deviceID,
		Transport:     transport,
		Router:        c.router,
		Backoff:       c.cfg.GetReconnectBackoff(),
		Logger:        c.log,
		Metrics:       c.metrics,
		OnStateChange: c.onStateChange,
	})
	if err != nil {
		return fmt.Errorf("bosshub: %w", err)
	}
	c.sup = sup
	return nil
}

// connectTelemetry connects InfluxDB when enabled. Telemetry is optional:
// a failure is logged and the client runs without it.
func (c *Client) connectTelemetry(ctx context.Context) {
	if !c.cfg.InfluxDB.Enabled {
		return
	}
	influx, err := influxdb.Connect(ctx, c.cfg.InfluxDB, c.deviceID)
	if err != nil {
		c.log.Warn("telemetry disabled", "error", err)
		return
	}
	influx.SetOnError(func(err error) {
		c.log.Warn("telemetry write failed", "error", err)
	})
	c.influx = influx
}

func (c *Client) startStatusServer(ctx context.Context, version string) error {
	if !c.cfg.StatusServer.Enabled {
		return nil
	}

	checks := map[string]api.HealthChecker{"mqtt": c.sup}
	deps := api.Deps{
		Config:   c.cfg.StatusServer,
		Logger:   c.log,
		Version:  version,
		Device:   c,
		Checks:   checks,
		Gatherer: c.registry,
	}
	if c.db != nil {
		checks["database"] = c.db
		deps.Journal = c.journal
	}
	if c.influx != nil {
		checks["influxdb"] = c.influx
	}

	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("bosshub: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("bosshub: %w", err)
	}
	c.status = srv
	return nil
}

func (c *Client) onStateChange(st supervisor.State) {
	c.influx.WriteConnectionState(st.String())
}

// DeviceID returns the resolved device id.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Config returns the configuration the client was built with.
func (c *Client) Config() *Config {
	return c.cfg
}

// PruneJournal trims the local journal to database.journal_keep entries,
// newest first. It returns how many entries were removed, and is a no-op
// without a local store or when journal_keep is 0.
func (c *Client) PruneJournal(ctx context.Context) (int64, error) {
	keep := c.cfg.Database.JournalKeep
	if c.journal == nil || keep <= 0 {
		return 0, nil
	}
	removed, err := c.journal.Trim(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("bosshub: pruning journal: %w", err)
	}
	if removed > 0 {
		c.log.Debug("journal pruned", "removed", removed, "keep", keep)
	}
	return removed, nil
}

// Close stops the status server, disconnects MQTT, flushes telemetry and
// closes the local store. The client cannot be reconnected afterwards.
func (c *Client) Close() error {
	var errs []error
	if c.status != nil {
		if err := c.status.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.sup != nil {
		c.sup.Close()
	}
	if err := c.influx.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
