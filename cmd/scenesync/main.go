// SceneSync - scenario reconciliation engine
//
// This is the main entry point for the SceneSync service. SceneSync
// drives heterogeneous device installations (hi-fi, lighting, AV racks)
// between named scenarios: it keeps a persistent shadow of what each
// device cell is believed to be, computes the minimal set of actuations
// to reach a target scenario, and executes them with per-cell debounce
// protection for stateless pulse actuators.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/scenesync/migrations"

	"github.com/nerrad567/scenesync/internal/api"
	"github.com/nerrad567/scenesync/internal/debounce"
	"github.com/nerrad567/scenesync/internal/infrastructure/config"
	"github.com/nerrad567/scenesync/internal/infrastructure/database"
	"github.com/nerrad567/scenesync/internal/infrastructure/influxdb"
	"github.com/nerrad567/scenesync/internal/infrastructure/logging"
	"github.com/nerrad567/scenesync/internal/infrastructure/mqtt"
	"github.com/nerrad567/scenesync/internal/orchestrator"
	"github.com/nerrad567/scenesync/internal/registry"
	"github.com/nerrad567/scenesync/internal/scenario"
	"github.com/nerrad567/scenesync/internal/shadow"
	"github.com/nerrad567/scenesync/internal/sink"
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
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting SceneSync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load site definitions: devices, rooms, scenarios
	devices, err := registry.LoadFile(cfg.Site.DefinitionsFile)
	if err != nil {
		return fmt.Errorf("loading site definitions: %w", err)
	}
	log.Info("device registry loaded",
		"path", cfg.Site.DefinitionsFile,
		"devices", len(devices.Devices()),
		"rooms", len(devices.Rooms()),
	)

	scenarios, err := scenario.LoadFile(cfg.Site.DefinitionsFile, devices)
	if err != nil {
		return fmt.Errorf("loading scenarios: %w", err)
	}
	log.Info("scenario registry loaded", "scenarios", scenarios.Len())

	// Restore shadow state
	shadowStore := shadow.NewStore(shadow.NewSQLiteRepository(db.DB))
	shadowStore.SetLogger(log)
	if loadErr := shadowStore.Load(ctx); loadErr != nil {
		return fmt.Errorf("restoring shadow state: %w", loadErr)
	}

	locks := debounce.NewManager(cfg.GetDefaultCooldown())

	// Command sink: MQTT against real bridges, loopback for bench work
	commandSink, mqttClient, err := buildSink(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

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
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Engine repositories share the SQLite handle
	engineRepo := orchestrator.NewSQLiteRepository(db.DB)

	orch := orchestrator.New(
		devices,
		scenarios,
		shadowStore,
		locks,
		commandSink,
		engineRepo,
		engineRepo,
		orchestrator.Config{
			StepTimeout: cfg.GetStepTimeout(),
			QueueSize:   cfg.Engine.QueueSize,
		},
	)
	orch.SetLogger(log)
	if influxClient != nil {
		orch.SetTelemetry(influxClient)
	}

	// API server; its WebSocket hub doubles as the engine's broadcaster
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Devices:     devices,
		Scenarios:   scenarios,
		Engine:      orch,
		Shadow:      shadowStore,
		Activations: engineRepo,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	// Transition events go to websocket clients and, when an MQTT
	// connection exists, onto the bus event topics.
	broadcasters := fanoutBroadcaster{apiServer.Hub()}
	if mqttClient != nil {
		events := sink.NewEventPublisher(mqttClient)
		events.SetLogger(log)
		broadcasters = append(broadcasters, events)
	}
	orch.SetBroadcaster(broadcasters)

	if startErr := orch.Start(ctx); startErr != nil {
		return fmt.Errorf("starting orchestrator: %w", startErr)
	}
	defer orch.Stop()
	log.Info("orchestrator started", "active_scenario", orch.ActiveScenario())

	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Orchestrator (drains in-flight transition)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if used)
	// 5. Database

	log.Info("SceneSync stopped")
	return nil
}

// fanoutBroadcaster delivers transition events to every registered
// broadcaster.
type fanoutBroadcaster []orchestrator.Broadcaster

func (f fanoutBroadcaster) BroadcastActivation(result *orchestrator.ActivationResult) {
	for _, b := range f {
		b.BroadcastActivation(result)
	}
}

// getConfigPath returns the configuration file path.
// Uses SCENESYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SCENESYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// buildSink constructs the command sink selected by engine.sink_mode.
// The returned MQTT client is non-nil only in mqtt mode; the caller owns
// its shutdown.
func buildSink(cfg *config.Config, log *logging.Logger) (orchestrator.CommandSink, *mqtt.Client, error) {
	switch cfg.Engine.SinkMode {
	case "loopback":
		log.Info("using loopback command sink")
		loopback := sink.NewLoopback()
		loopback.SetLogger(log)
		return loopback, nil, nil

	default:
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
		}
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

		mqttSink := sink.NewMQTTSink(mqttClient, byte(cfg.MQTT.QoS), cfg.GetAckTimeout())
		mqttSink.SetLogger(log)
		if startErr := mqttSink.Start(); startErr != nil {
			_ = mqttClient.Close()
			return nil, nil, fmt.Errorf("starting MQTT sink: %w", startErr)
		}
		return mqttSink, mqttClient, nil
	}
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
