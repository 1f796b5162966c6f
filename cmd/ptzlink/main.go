// Ptzlink connects a home-automation host to a pan/tilt/zoom camera.
//
// It drives the camera over VISCA-over-TCP, polls its CGI status endpoints
// and publishes what it reads as named variables over a local HTTP API,
// a websocket stream and, optionally, MQTT.
//
// Usage:
//
//	ptzlink [command] [flags]
//
// Start with 'ptzlink config init', edit the file, then 'ptzlink run'.
// See 'ptzlink --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "ptzlink",
	Short: "PTZ camera session controller",
	Long: `Connects a home-automation host to a pan/tilt/zoom camera.

Commands go to the camera over VISCA-over-TCP. Status is read from the
camera's CGI endpoints with digest authentication and published as named
variables over a local HTTP API, a websocket stream and optionally MQTT.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: OS config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); default from $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ptzlink %s\n", version.Full())
	},
}

// resolveConfigPath returns --config or the default location
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}
