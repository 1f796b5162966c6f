package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/muurk/ptzlink/internal/urls"
)

const (
	appName    = "ptzlink"
	configFile = "config.yaml"

	// currentVersion is the config file format version
	currentVersion = 1
)

// Mutex for thread-safe file operations
var fileMutex sync.Mutex

// File is the on-disk configuration.
//
// Device is kept as a loose map: it is the raw configuration a host would
// send, and ParseOptions turns it into typed Options.
type File struct {
	Version  int            `yaml:"version"`
	Device   map[string]any `yaml:"device"`
	Server   ServerConfig   `yaml:"server"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Firmware FirmwareConfig `yaml:"firmware"`
}

// ServerConfig configures the local status API
type ServerConfig struct {
	Listen   string `yaml:"listen"`              // e.g. ":8080"; empty disables the API
	CertPath string `yaml:"cert_path,omitempty"` // HTTPS when both paths are set
	KeyPath  string `yaml:"key_path,omitempty"`
}

// MQTTConfig configures the optional MQTT publisher
type MQTTConfig struct {
	Broker   string `yaml:"broker,omitempty"` // e.g. "tcp://localhost:1883"; empty disables MQTT
	Topic    string `yaml:"topic"`            // Topic prefix for definitions and values
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// FirmwareConfig configures the firmware advisory check
type FirmwareConfig struct {
	BaseURL string `yaml:"base_url"`
}

// NewFile creates a File with default values
func NewFile() *File {
	return &File{
		Version: currentVersion,
		Device: map[string]any{
			FieldHost:             "",
			FieldPort:             DefaultPort,
			FieldHTTPUsername:     "admin",
			FieldHTTPPassword:     "",
			FieldHTTPPollInterval: 1000,
			FieldDebugLogging:     false,
		},
		Server: ServerConfig{Listen: ":8080"},
		MQTT:   MQTTConfig{Topic: "ptzlink/camera"},
		Firmware: FirmwareConfig{
			BaseURL: urls.FirmwareBase,
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/ptzlink or $HOME/.config/ptzlink
//   - macOS: $HOME/.config/ptzlink (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\ptzlink
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the default configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration file at path. A missing file yields the
// defaults. Every call reads from disk, so Load doubles as reload.
func Load(path string) (*File, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewFile(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	f := NewFile()
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if f.Version != currentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", f.Version, currentVersion)
	}
	if f.Device == nil {
		f.Device = make(map[string]any)
	}

	return f, nil
}

// Save writes the file to path atomically (temp file + rename).
func (f *File) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ptzlink configuration file
#
# The device section mirrors the options a host sends at runtime:
#   host, port, httpUsername, httpPassword, httpPollInterval (ms), debugLogging
# Send SIGHUP to a running 'ptzlink run' to apply changes.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	// Credentials live in this file, so keep it user-only
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}

// CreateDefault writes a default configuration file to path unless one
// already exists.
func CreateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	return NewFile().Save(path)
}
