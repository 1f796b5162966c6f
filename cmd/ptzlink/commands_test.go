package main

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/config"
)

func TestDeviceConfig_FlagsOverrideFile(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().AddFlagSet(runCmd.Flags())
	if err := cmd.Flags().Parse([]string{"--host", "10.0.0.9", "--poll-interval", "500"}); err != nil {
		t.Fatal(err)
	}

	file := config.NewFile()
	file.Device = map[string]any{
		config.FieldHost:         "192.168.1.50",
		config.FieldHTTPUsername: "admin",
	}

	raw := deviceConfig(cmd, file)
	if raw[config.FieldHost] != "10.0.0.9" {
		t.Errorf("host = %v, want flag value", raw[config.FieldHost])
	}
	if raw[config.FieldHTTPPollInterval] != 500 {
		t.Errorf("httpPollInterval = %v", raw[config.FieldHTTPPollInterval])
	}
	if raw[config.FieldHTTPUsername] != "admin" {
		t.Errorf("username from file lost: %v", raw[config.FieldHTTPUsername])
	}
	if _, ok := raw[config.FieldPort]; ok {
		t.Error("unset --port should not override the file")
	}
	if file.Device[config.FieldHost] != "192.168.1.50" {
		t.Error("deviceConfig modified the loaded file")
	}
}

func TestTroubleshoot(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{camhttp.NewStatusError(camhttp.PathDeviceConf, http.StatusUnauthorized), "password"},
		{camhttp.NewDecodeError(camhttp.PathDeviceConf, "text/html", nil), "raw response"},
		{camhttp.NewNetworkError(camhttp.PathDeviceConf, "GET request failed", errors.New("refused")), "ptzlink scan"},
		{errors.New("other"), "debug"},
	}
	for _, tt := range tests {
		tips := strings.Join(troubleshoot(tt.err), "\n")
		if !strings.Contains(tips, tt.want) {
			t.Errorf("troubleshoot(%v) = %q, want mention of %q", tt.err, tips, tt.want)
		}
	}
}

func TestErrorNote(t *testing.T) {
	if errorNote(nil) != "" {
		t.Error("nil error should give no note")
	}
	if got := errorNote(camhttp.NewStatusError("/", http.StatusInternalServerError)); got != "Camera error (HTTP 500)" {
		t.Errorf("errorNote = %q", got)
	}
}
