// BossHub device agent.
//
// The agent runs on a vending machine, washing machine or POS terminal.
// It reports status and heartbeats to the BossHub platform and executes
// remote commands received on devices/{id}/command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bosshub/bosshub-go/internal/commands"
	"github.com/bosshub/bosshub-go/internal/infrastructure/config"
	"github.com/bosshub/bosshub-go/internal/infrastructure/logging"
	"github.com/bosshub/bosshub-go/pkg/bosshub"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigPath = "configs/device.yaml"

	// pumpInterval is how often cooperative mode drains the MQTT inbox.
	pumpInterval = 100 * time.Millisecond

	// shutdownTimeout bounds the final OFFLINE status report.
	shutdownTimeout = 5 * time.Second
)

// errRestartRequested is returned by run after a RESTART command so the
// service manager starts the agent again.
var errRestartRequested = errors.New("restart requested by platform")

// exitRestart is the exit code after a RESTART command.
const exitRestart = 3

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errRestartRequested) {
			fmt.Fprintln(os.Stderr, "Restarting:", err)
			os.Exit(exitRestart)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the agent, separated from main for testability.
//
// Returns:
//   - error: nil on clean shutdown, errRestartRequested after RESTART, or a startup failure
func run(ctx context.Context, args []string) error {
	log := logging.Default()

	configPath, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("starting BossHub agent",
		"version", version,
		"commit", commit,
		"build_date", date,
		"config", configPath,
	)

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	client, err := bosshub.New(ctx, cfg, bosshub.Options{Version: version, Logger: log})
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	defer func() {
		log.Info("closing client")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing client", "error", closeErr)
		}
	}()
	log = log.ForDevice(client.DeviceID())

	handler := commands.New(client, commands.Options{
		Stock:   func() map[string]int { return cfg.Device.Stock },
		Restart: func() { cancel(errRestartRequested) },
		Logger:  log,
	})

	// Platform failures are logged and journaled by the client.
	_, _ = client.UpdateStatus(ctx, bosshub.StateIdle, "")
	_, _ = client.Log(ctx, "Agent started "+version, bosshub.LevelInfo)

	connectMQTT(ctx, cfg, client, handler, log)

	var heartbeat <-chan time.Time
	if interval := cfg.GetHeartbeatInterval(); interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	var pump <-chan time.Time
	if cfg.IsCooperative() {
		ticker := time.NewTicker(pumpInterval)
		defer ticker.Stop()
		pump = ticker.C
	}

	log.Info("agent running, waiting for commands")

	for {
		select {
		case <-ctx.Done():
			return shutdown(context.Cause(ctx), client, log)
		case <-heartbeat:
			_, _ = client.Heartbeat(ctx)
			if _, err := client.PruneJournal(ctx); err != nil {
				log.Warn("journal prune failed", "error", err)
			}
			// No automatic retry after a failed reconnect; try again here.
			if client.State() == bosshub.Disconnected {
				connectMQTT(ctx, cfg, client, handler, log)
			}
		case <-pump:
			for client.Loop() {
			}
		}
	}
}

func connectMQTT(ctx context.Context, cfg *config.Config, client *bosshub.Client, handler *commands.Handler, log *logging.Logger) {
	if !cfg.MQTT.Enabled {
		return
	}
	if err := client.ConnectMQTT(ctx, handler.Handle); err != nil {
		log.Warn("MQTT unavailable, running HTTP only", "error", err)
	}
}

// shutdown reports OFFLINE with a fresh context, since ctx is already done.
func shutdown(cause error, client *bosshub.Client, log *logging.Logger) error {
	log.Info("shutting down", "cause", cause)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_, _ = client.UpdateStatus(ctx, bosshub.StateOffline, "")

	if errors.Is(cause, errRestartRequested) {
		return errRestartRequested
	}
	log.Info("BossHub agent stopped")
	return nil
}

// parseFlags returns the config path: -config, then BOSSHUB_CONFIG, then
// the default.
func parseFlags(args []string) (string, error) {
	fs := flag.NewFlagSet("bosshub-agent", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to the device configuration file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *configPath != "" {
		return *configPath, nil
	}
	return getConfigPath(), nil
}

// getConfigPath uses BOSSHUB_CONFIG if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv(config.EnvConfigPath); path != "" {
		return path
	}
	return defaultConfigPath
}
