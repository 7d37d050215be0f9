// Halo Bridge - cloud lock bridge
//
// Halo Bridge maintains an authenticated session against the lock
// vendor's cloud, mirrors the remote device list for one home into a
// local registry, polls each lock, and exposes state and commands to
// the accessory layer over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/halo-bridge/migrations"

	"github.com/nerrad567/halo-bridge/internal/auth"
	"github.com/nerrad567/halo-bridge/internal/challenge"
	"github.com/nerrad567/halo-bridge/internal/cloud"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/config"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/database"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/halo-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/halo-bridge/internal/lock"
	"github.com/nerrad567/halo-bridge/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Halo Bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Warm-start the lock registry from the persisted mirror
	lockRepo := lock.NewSQLiteRepository(db.DB)
	registry := lock.NewRegistry(lockRepo, log)
	if refreshErr := registry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading lock registry: %w", refreshErr)
	}

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the session lifecycle: credential store, provider, manager,
	// and the verification code server for interactive logins.
	store := auth.NewFileStore(cfg.Auth.CredentialsPath)
	session := auth.NewSession(nil)
	provider := auth.NewCognitoProvider()
	gateway := challenge.NewServer(cfg.MFA.Port, cfg.GetMFAGrace(), log)

	manager := auth.NewManager(provider, store, session, gateway, auth.ManagerConfig{
		Email:               cfg.Account.Email,
		Password:            cfg.Account.Password,
		RefreshInterval:     cfg.GetRefreshInterval(),
		MaxCodeAttempts:     cfg.MFA.MaxAttempts,
		ReauthAfterFailures: cfg.Auth.ReauthAfterFailures,
	}, log)

	manager.SetOnRefreshExhausted(func() {
		log.Error("session refresh has failed repeatedly; the cloud session may be revoked, restart the bridge to re-authenticate")
	})

	// Authentication failures here are fatal: wrong credentials or an
	// unanswerable challenge cannot be retried into success.
	if err := manager.Login(ctx); err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	log.Info("logged in")

	manager.StartRefresh(ctx)

	// Build the cloud client and reconciliation engine
	cloudClient := cloud.NewClient(cfg.Cloud.BaseURL, session, cfg.GetCloudTimeout())
	recorder := telemetry.NewRecorder(influxClient)
	publisher := lock.NewPublisher(mqttClient, log)

	reconciler := lock.NewReconciler(cloudClient, registry, publisher, recorder, lock.ReconcilerConfig{
		HomeName:       cfg.Account.HomeName,
		PollInterval:   cfg.GetPollInterval(),
		ResyncInterval: cfg.GetResyncInterval(),
	}, log)

	// Home resolution is fatal: the bridge never guesses which home to manage
	if err := reconciler.ResolveHome(ctx); err != nil {
		return fmt.Errorf("resolving home: %w", err)
	}

	// Accept lock/unlock commands from the accessory layer
	if err := publisher.SubscribeCommands(reconciler); err != nil {
		return fmt.Errorf("subscribing to commands: %w", err)
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, reconciling and polling")

	// Run blocks: initial reconcile, per-lock pollers, optional resync.
	if err := reconciler.Run(ctx); err != nil {
		return fmt.Errorf("reconciliation: %w", err)
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("Halo Bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HALOBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HALOBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
