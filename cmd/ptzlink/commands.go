package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/discovery"
	"github.com/muurk/ptzlink/internal/firmware"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/session"
	"github.com/muurk/ptzlink/internal/telemetry"
	"github.com/muurk/ptzlink/internal/ui"
	"github.com/muurk/ptzlink/internal/variables"
	"github.com/muurk/ptzlink/internal/visca"
)

// Command flags
var (
	deviceIP       string
	viscaPort      int
	httpUsername   string
	httpPassword   string
	outputFormat   string
	skipFirmware   bool
	scanTimeout    int
	watchServer    string
	forceOverwrite bool
	assumeYes      bool
)

// viscaProbeTimeout bounds the power inquiry made by status
const viscaProbeTimeout = 3 * time.Second

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
}

// statusCmd reads a camera once and prints what it reports
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a camera's identity and status",
	Long: `Connect to a camera once and print its identity, firmware advisory,
status variables and power state.

The camera's web credentials are required. When --http-password is not
given and the terminal is interactive, the password is prompted for.`,
	Example: `  # Prompt for the password
  ptzlink status --device 192.168.1.50 --http-username admin

  # JSON output for scripting
  ptzlink status --device 192.168.1.50 --http-username admin --http-password admin --format json`,
	RunE: runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&deviceIP, "device", "", "Camera IPv4 address (required)")
	f.IntVar(&viscaPort, "visca-port", config.DefaultPort, "Camera VISCA-over-TCP port")
	f.StringVar(&httpUsername, "http-username", "admin", "Camera web username")
	f.StringVar(&httpPassword, "http-password", "", "Camera web password (prompted when empty)")
	f.StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	f.BoolVar(&skipFirmware, "skip-firmware-check", false, "Do not query the vendor for firmware updates")
	_ = statusCmd.MarkFlagRequired("device")
}

// statusReport is the --format json output of status
type statusReport struct {
	Device    string            `json:"device"`
	Identity  map[string]string `json:"identity"`
	Telemetry map[string]string `json:"telemetry"`
	Power     string            `json:"power"`
	Errors    []string          `json:"errors,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	opts, issues := config.ParseOptions(map[string]any{
		config.FieldHost:         deviceIP,
		config.FieldPort:         viscaPort,
		config.FieldHTTPUsername: httpUsername,
	})
	if len(issues) > 0 {
		return issues[0]
	}

	password := httpPassword
	if password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Password for %s@%s: ", httpUsername, opts.Host)
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(b)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client := camhttp.NewClient(opts.Host, opts.HTTPUsername, password)
	if !client.HasCredentials() {
		return errors.New("camera username and password are required")
	}

	report := statusReport{Device: opts.Target().String()}

	id, idErr := session.FetchIdentity(ctx, client)
	if idErr != nil {
		report.Errors = append(report.Errors, "identity: "+camhttp.ShortMessage(idErr))
	}
	if !skipFirmware && idErr == nil {
		if id.Values == nil {
			id.Values = make(map[string]string)
		}
		id.Definitions = append(id.Definitions, session.FirmwareUpdateDefinition)
		id.Values[session.FirmwareUpdateDefinition.ID] = session.FirmwareAdvisory(ctx, firmware.NewChecker(), id)
	}

	defs, values, telErr := telemetry.Collect(ctx, client, nil)
	if telErr != nil {
		report.Errors = append(report.Errors, "telemetry: "+camhttp.ShortMessage(telErr))
	}

	report.Power = probePower(ctx, opts)
	report.Identity = id.Values
	report.Telemetry = values

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Camera Status", "ptzlink status",
		ui.Param{Key: "Device", Value: opts.Host},
		ui.Param{Key: "VISCA", Value: opts.Target().String()},
		ui.Param{Key: "User", Value: opts.HTTPUsername},
	)

	if idErr != nil && telErr != nil {
		p.PrintError("Camera did not answer", idErr, troubleshoot(idErr)...)
		return fmt.Errorf("status failed: %s", camhttp.ShortMessage(idErr))
	}

	p.PrintReport(
		ui.Section{Title: "Identity", Definitions: id.Definitions, Values: id.Values, Note: errorNote(idErr)},
		ui.Section{Title: "Status", Definitions: defs, Values: values, Note: errorNote(telErr)},
		ui.Section{
			Title:       "Command Channel",
			Definitions: []variables.Definition{{ID: "power", Name: "Power"}},
			Values:      map[string]string{"power": report.Power},
		},
	)
	return nil
}

// probePower asks the camera for its power state over VISCA
func probePower(ctx context.Context, opts config.Options) string {
	ctx, cancel := context.WithTimeout(ctx, viscaProbeTimeout)
	defer cancel()

	c := visca.NewClient(visca.Config{})
	c.Open(opts.Host, opts.Port)
	defer c.Close("probe finished", visca.StatusDisconnected)

	if err := c.WaitReady(ctx); err != nil {
		return "unreachable"
	}
	answer, err := c.SendInquiry(ctx, visca.PowerInquiry())
	if err != nil {
		return "error: " + err.Error()
	}
	on, err := answer.PowerOn()
	switch {
	case err != nil:
		return "unknown"
	case on:
		return "on"
	default:
		return "standby"
	}
}

func errorNote(err error) string {
	if err == nil {
		return ""
	}
	return camhttp.ShortMessage(err)
}

// troubleshoot returns hints for a camera HTTP failure
func troubleshoot(err error) []string {
	switch {
	case camhttp.IsAuthError(err):
		return []string{
			"Check the web username and password",
			"Log in to the camera's web page with the same credentials",
		}
	case camhttp.IsDecodeError(err):
		return []string{
			"The address may not belong to a PTZ camera",
			"Run with --log-level debug to see the raw response",
		}
	case camhttp.IsNetworkError(err):
		return []string{
			"Verify the camera is powered on and reachable (ping it)",
			"Check the IP address, or find it with 'ptzlink scan'",
			"Make sure no firewall blocks HTTP (port 80)",
		}
	default:
		return []string{"Run with --log-level debug for details"}
	}
}

// scanCmd discovers cameras on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for cameras on the network",
	Long: `Scan for PTZ cameras using mDNS/DNS-SD discovery.

Cameras that advertise their web interface over mDNS and whose name or
TXT records mention PTZ or VISCA are listed with their addresses.`,
	Example: `  # Scan for 5 seconds (default)
  ptzlink scan

  # Longer scan for slow networks
  ptzlink scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	timeout := time.Duration(scanTimeout) * time.Second
	scan := func(ctx context.Context) ([]*discovery.Device, error) {
		return discovery.QuickScan(ctx, timeout)
	}

	var (
		devices []*discovery.Device
		err     error
	)
	if term.IsTerminal(int(os.Stdout.Fd())) {
		final, runErr := tea.NewProgram(ui.NewScanModel(cmd.Context(), timeout, scan)).Run()
		if runErr != nil {
			return runErr
		}
		m := final.(ui.ScanModel)
		devices, err = m.Devices, m.Err
	} else {
		devices, err = scan(cmd.Context())
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	p := ui.NewPrinter(os.Stdout)
	if len(devices) == 0 {
		p.PrintWarning("No cameras found",
			ui.Param{Key: "Timeout", Value: timeout.String()},
			ui.Param{Key: "Hint", Value: "try --timeout or use the camera IP directly"},
		)
		return nil
	}

	p.Println(ui.RenderDevices(devices, p.Width()))
	p.Println(fmt.Sprintf("Found %d camera(s). Use 'ptzlink status --device <ip>' to read one.", len(devices)))
	return nil
}

// watchCmd shows the live variable stream of a running session
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the variables of a running session",
	Long: `Connect to the websocket stream of a running 'ptzlink run' and show its
variables in a live table. The view reconnects when the stream drops.`,
	Example: `  ptzlink watch
  ptzlink watch --server http://nas.local:8080`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchServer, "server", "http://localhost:8080", "Base URL of the ptzlink API")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	streamURL, err := ui.StreamURL(watchServer)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	_, err = tea.NewProgram(ui.NewWatchModel(ctx, streamURL), tea.WithAltScreen()).Run()
	return err
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default values to the OS config
directory, or to --config. An existing file is kept unless --force is given.`,
	Example: `  ptzlink config init
  ptzlink config init --config ./ptzlink.yaml --force`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&forceOverwrite, "force", false, "Overwrite an existing file")
	configInitCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask before overwriting")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolveConfigPath()
	if err != nil {
		return err
	}
	p := ui.NewPrinter(os.Stdout)

	_, statErr := os.Stat(path)
	exists := statErr == nil
	switch {
	case !exists:
		err = config.CreateDefault(path)
	case !forceOverwrite:
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	default:
		if !assumeYes && !p.Confirm(os.Stdin, "Overwrite configuration",
			"The existing file at "+path+" will be replaced",
			"Camera credentials stored in it will be lost",
		) {
			return nil
		}
		err = config.NewFile().Save(path)
	}
	if err != nil {
		return err
	}

	p.PrintSuccess("Configuration written",
		ui.Param{Key: "Path", Value: path},
		ui.Param{Key: "Next", Value: "set device.host, then run 'ptzlink run'"},
	)
	return nil
}
