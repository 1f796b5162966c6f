package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "ptzlink") {
		t.Errorf("GetConfigDir() = %v, should contain 'ptzlink'", configDir)
	}

	switch runtime.GOOS {
	case "darwin", "linux":
		if os.Getenv("XDG_CONFIG_HOME") == "" && !strings.Contains(configDir, ".config") {
			t.Errorf("Unix config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigPath(t *testing.T) {
	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if filepath.Base(configPath) != "config.yaml" {
		t.Errorf("GetConfigPath() should end with 'config.yaml', got: %v", configPath)
	}
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Version != 1 || f.Server.Listen != ":8080" {
		t.Errorf("Load() = %+v, want defaults", f)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	f := NewFile()
	f.Device[FieldHost] = "192.168.1.50"
	f.Device[FieldHTTPPassword] = "secret"
	f.MQTT.Broker = "tcp://localhost:1883"

	if err := f.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	opts, issues := ParseOptions(loaded.Device)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if opts.Host != "192.168.1.50" || opts.HTTPPassword != "secret" || opts.Port != DefaultPort {
		t.Errorf("round-tripped options = %+v", opts)
	}
	if loaded.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("MQTT.Broker = %q", loaded.MQTT.Broker)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("version: [unclosed"), 0600)
	if _, err := Load(bad); err == nil {
		t.Error("Load() of invalid YAML should fail")
	}

	future := filepath.Join(dir, "future.yaml")
	os.WriteFile(future, []byte("version: 2\n"), 0600)
	if _, err := Load(future); err == nil {
		t.Error("Load() of unsupported version should fail")
	}
}

func TestCreateDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := CreateDefault(path); err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}
	if err := CreateDefault(path); err == nil {
		t.Error("CreateDefault() should refuse to overwrite")
	}

	data, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(data), "# ptzlink configuration file") {
		t.Error("saved file should start with the header comment")
	}
}
