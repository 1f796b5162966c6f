package config

import (
	"testing"
	"time"
)

func TestParseOptions(t *testing.T) {
	raw := map[string]any{
		FieldHost:             "192.168.1.50",
		FieldPort:             5678,
		FieldHTTPUsername:     "admin",
		FieldHTTPPassword:     "secret",
		FieldHTTPPollInterval: 1500,
		FieldDebugLogging:     true,
	}

	opts, issues := ParseOptions(raw)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	want := Options{
		Host:             "192.168.1.50",
		Port:             5678,
		HTTPUsername:     "admin",
		HTTPPassword:     "secret",
		HTTPPollInterval: 1500 * time.Millisecond,
		DebugLogging:     true,
	}
	if opts != want {
		t.Errorf("ParseOptions() = %+v, want %+v", opts, want)
	}
}

func TestParseOptions_LooseTypes(t *testing.T) {
	raw := map[string]any{
		FieldHost:             " 10.0.0.9 ",
		FieldPort:             "1259",
		FieldHTTPPollInterval: float64(250),
		FieldDebugLogging:     "true",
	}

	opts, issues := ParseOptions(raw)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if opts.Host != "10.0.0.9" || opts.Port != 1259 {
		t.Errorf("target = %v", opts.Target())
	}
	if opts.HTTPPollInterval != 250*time.Millisecond {
		t.Errorf("HTTPPollInterval = %v", opts.HTTPPollInterval)
	}
	if !opts.DebugLogging {
		t.Error("DebugLogging = false, want true")
	}
}

func TestParseOptions_Normalization(t *testing.T) {
	tests := []struct {
		name  string
		raw   map[string]any
		field string
		check func(t *testing.T, o Options)
	}{
		{
			name:  "hostname is not an IPv4 address",
			raw:   map[string]any{FieldHost: "camera.local"},
			field: FieldHost,
			check: func(t *testing.T, o Options) {
				if o.HasHost() {
					t.Errorf("Host = %q, want empty", o.Host)
				}
			},
		},
		{
			name:  "IPv6 host",
			raw:   map[string]any{FieldHost: "fe80::1"},
			field: FieldHost,
			check: func(t *testing.T, o Options) {
				if o.HasHost() {
					t.Errorf("Host = %q, want empty", o.Host)
				}
			},
		},
		{
			name:  "port out of range",
			raw:   map[string]any{FieldPort: 70000},
			field: FieldPort,
			check: func(t *testing.T, o Options) {
				if o.Port != DefaultPort {
					t.Errorf("Port = %d, want %d", o.Port, DefaultPort)
				}
			},
		},
		{
			name:  "port not a number",
			raw:   map[string]any{FieldPort: "visca"},
			field: FieldPort,
			check: func(t *testing.T, o Options) {
				if o.Port != DefaultPort {
					t.Errorf("Port = %d, want %d", o.Port, DefaultPort)
				}
			},
		},
		{
			name:  "interval above maximum",
			raw:   map[string]any{FieldHTTPPollInterval: 120000},
			field: FieldHTTPPollInterval,
			check: func(t *testing.T, o Options) {
				if o.HTTPPollInterval != MaxPollInterval {
					t.Errorf("HTTPPollInterval = %v, want %v", o.HTTPPollInterval, MaxPollInterval)
				}
			},
		},
		{
			name:  "interval large enough to overflow a duration",
			raw:   map[string]any{FieldHTTPPollInterval: int64(18446744073710)},
			field: FieldHTTPPollInterval,
			check: func(t *testing.T, o Options) {
				if o.HTTPPollInterval != MaxPollInterval {
					t.Errorf("HTTPPollInterval = %v, want %v", o.HTTPPollInterval, MaxPollInterval)
				}
			},
		},
		{
			name:  "negative interval",
			raw:   map[string]any{FieldHTTPPollInterval: -5},
			field: FieldHTTPPollInterval,
			check: func(t *testing.T, o Options) {
				if o.HTTPPollInterval != 0 {
					t.Errorf("HTTPPollInterval = %v, want 0", o.HTTPPollInterval)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, issues := ParseOptions(tt.raw)
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want exactly one", issues)
			}
			if issues[0].Field != tt.field {
				t.Errorf("issue field = %s, want %s", issues[0].Field, tt.field)
			}
			tt.check(t, opts)
		})
	}
}

func TestParseOptions_Empty(t *testing.T) {
	opts, issues := ParseOptions(nil)
	if len(issues) != 0 {
		t.Errorf("issues = %v", issues)
	}
	if opts.HasHost() || opts.Port != DefaultPort || opts.PollingEnabled() {
		t.Errorf("ParseOptions(nil) = %+v", opts)
	}
}

func TestRestartFree(t *testing.T) {
	base := Options{
		Host:             "192.168.1.50",
		Port:             5678,
		HTTPUsername:     "admin",
		HTTPPassword:     "admin",
		HTTPPollInterval: time.Second,
	}

	tests := []struct {
		name   string
		mutate func(o *Options)
		want   bool
	}{
		{"identical", func(o *Options) {}, true},
		{"debug logging only", func(o *Options) { o.DebugLogging = true }, true},
		{"host", func(o *Options) { o.Host = "192.168.1.51" }, false},
		{"port", func(o *Options) { o.Port = 1259 }, false},
		{"password", func(o *Options) { o.HTTPPassword = "new" }, false},
		{"interval", func(o *Options) { o.HTTPPollInterval = 2 * time.Second }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := base
			tt.mutate(&next)
			if got := base.RestartFree(next); got != tt.want {
				t.Errorf("RestartFree() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPollingEnabled(t *testing.T) {
	tests := []struct {
		opts Options
		want bool
	}{
		{Options{HTTPPollInterval: time.Second, HTTPUsername: "a", HTTPPassword: "b"}, true},
		{Options{HTTPPollInterval: 0, HTTPUsername: "a", HTTPPassword: "b"}, false},
		{Options{HTTPPollInterval: time.Second, HTTPUsername: "a"}, false},
	}
	for i, tt := range tests {
		if got := tt.opts.PollingEnabled(); got != tt.want {
			t.Errorf("case %d: PollingEnabled() = %v, want %v", i, got, tt.want)
		}
	}
}

func TestTargetString(t *testing.T) {
	if got := (Target{Host: "10.0.0.1", Port: 5678}).String(); got != "10.0.0.1:5678" {
		t.Errorf("String() = %s", got)
	}
}
