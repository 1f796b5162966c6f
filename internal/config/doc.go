// Package config loads ptzlink's configuration and turns the raw device
// settings into typed session Options.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/ptzlink/config.yaml or $HOME/.config/ptzlink/config.yaml
//   - macOS: $HOME/.config/ptzlink/config.yaml
//   - Windows: %LOCALAPPDATA%\ptzlink\config.yaml
//
// # Raw Settings and Options
//
// The device section is kept as a loosely typed map, the same shape a
// hosting framework hands over at runtime. ParseOptions normalizes it:
//
//	opts, issues := config.ParseOptions(file.Device)
//	for _, issue := range issues {
//	    logging.Warn("Config value normalized", zap.Error(issue))
//	}
//
// Out-of-range values never fail parsing; they fall back to a default and
// are reported as ValidationErrors.
//
// # Security
//
// The file holds the camera's HTTP password and is written with 0600
// permissions.
package config
