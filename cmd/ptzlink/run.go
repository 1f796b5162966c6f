package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/firmware"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/metrics"
	"github.com/muurk/ptzlink/internal/mqttpub"
	"github.com/muurk/ptzlink/internal/server"
	"github.com/muurk/ptzlink/internal/session"
	"github.com/muurk/ptzlink/internal/variables"
	"github.com/muurk/ptzlink/internal/version"
	"github.com/muurk/ptzlink/internal/visca"
)

// Run command flags; each overrides the config file when set
var (
	runHost         string
	runPort         int
	runUsername     string
	runPassword     string
	runPollInterval int
	runDebug        bool
	runListen       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the camera session",
	Long: `Run the camera session until interrupted.

Opens the VISCA command channel, fetches the camera identity, polls its
status endpoints and serves the local API. Send SIGHUP to reload the config
file; camera settings are reconciled without a restart when possible.`,
	Example: `  # Run with the default config file
  ptzlink run

  # Override the camera for this run
  ptzlink run --host 192.168.1.50 --http-username admin --http-password admin

  # Serve the API on another port with debug logs
  ptzlink run --listen :9090 --log-level debug`,
	RunE: runSession,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runHost, "host", "", "Camera IPv4 address")
	f.IntVar(&runPort, "port", config.DefaultPort, "Camera VISCA-over-TCP port")
	f.StringVar(&runUsername, "http-username", "", "Camera web username")
	f.StringVar(&runPassword, "http-password", "", "Camera web password")
	f.IntVar(&runPollInterval, "poll-interval", 0, "Status poll interval in ms (0 disables polling)")
	f.BoolVar(&runDebug, "debug", false, "Enable camera debug logging")
	f.StringVar(&runListen, "listen", "", "API listen address (e.g. :8080)")

	rootCmd.AddCommand(runCmd)
}

// deviceConfig returns the file's device section with flag overrides applied
func deviceConfig(cmd *cobra.Command, file *config.File) map[string]any {
	raw := make(map[string]any, len(file.Device)+6)
	for k, v := range file.Device {
		raw[k] = v
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag  string
		field string
		value any
	}{
		{"host", config.FieldHost, runHost},
		{"port", config.FieldPort, runPort},
		{"http-username", config.FieldHTTPUsername, runUsername},
		{"http-password", config.FieldHTTPPassword, runPassword},
		{"poll-interval", config.FieldHTTPPollInterval, runPollInterval},
		{"debug", config.FieldDebugLogging, runDebug},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			raw[o.field] = o.value
		}
	}
	return raw
}

func loadFile() (*config.File, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	file, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return file, path, nil
}

func runSession(cmd *cobra.Command, args []string) error {
	file, path, err := loadFile()
	if err != nil {
		return err
	}

	lvl := logLevel
	if lvl == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
		lvl = "info"
	}
	if err := logging.Initialize(lvl); err != nil {
		return err
	}
	defer logging.Sync()

	logging.Info("Starting ptzlink",
		zap.String("version", version.Full()),
		zap.String("config", path),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	transport := visca.NewClient(visca.Config{
		OnStatus: func(status visca.Status, reason string) {
			m.TransportStatus(status.String(), visca.StatusNames())
		},
	})

	store := variables.NewStore()
	hub := server.NewHub()
	publishers := variables.Fanout{store, hub}

	if file.MQTT.Broker != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pub, err := mqttpub.Connect(connectCtx, file.MQTT)
		cancel()
		if err != nil {
			logging.Warn("MQTT disabled", zap.Error(err))
		} else {
			defer pub.Close()
			publishers = append(publishers, pub)
		}
	}

	checker := firmware.NewChecker()
	if file.Firmware.BaseURL != "" {
		checker.BaseURL = file.Firmware.BaseURL
	}

	controller := session.New(transport, publishers, session.Config{
		Metrics:  m,
		Firmware: checker,
	})
	defer controller.Shutdown()

	listen := file.Server.Listen
	if runListen != "" {
		listen = runListen
	}
	serverErr := make(chan error, 1)
	if listen != "" {
		srv := server.New(server.Config{
			Listen:   listen,
			CertPath: file.Server.CertPath,
			KeyPath:  file.Server.KeyPath,
		}, transport, store, hub, m)
		srv.SetSession(controller)
		go func() { serverErr <- srv.Start(ctx) }()
	} else {
		logging.Info("API server disabled (server.listen is empty)")
	}

	controller.Apply(deviceConfig(cmd, file))

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			logging.Info("Shutting down")
			return nil

		case err := <-serverErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("API server failed: %w", err)
			}
			return nil

		case <-hup:
			reloaded, err := config.Load(path)
			if err != nil {
				logging.Error("Config reload failed, keeping current settings", zap.Error(err))
				continue
			}
			logging.Info("Config reloaded", zap.String("path", path))
			controller.Apply(deviceConfig(cmd, reloaded))
		}
	}
}
