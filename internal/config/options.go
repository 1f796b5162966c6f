package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPort is the VISCA-over-TCP port used when none is configured
	DefaultPort = 5678

	// MaxPollInterval is the longest accepted HTTP poll interval
	MaxPollInterval = 60 * time.Second
)

// Raw configuration field names, as written in the config file and sent by hosts
const (
	FieldHost             = "host"
	FieldPort             = "port"
	FieldHTTPUsername     = "httpUsername"
	FieldHTTPPassword     = "httpPassword"
	FieldHTTPPollInterval = "httpPollInterval"
	FieldDebugLogging     = "debugLogging"
)

// Options is the typed configuration snapshot a session runs with.
// It is a value type; every reconciliation replaces it wholesale.
type Options struct {
	// Host is the camera IPv4 address; empty means no target configured
	Host string
	Port int

	HTTPUsername string
	HTTPPassword string

	// HTTPPollInterval of zero disables telemetry polling
	HTTPPollInterval time.Duration

	DebugLogging bool
}

// Target is the part of Options that decides whether the command channel
// must be reopened
type Target struct {
	Host string
	Port int
}

// String returns host:port
func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Target returns the connection target signature
func (o Options) Target() Target {
	return Target{Host: o.Host, Port: o.Port}
}

// HasHost reports whether a command channel target is configured
func (o Options) HasHost() bool {
	return o.Host != ""
}

// HasCredentials reports whether both HTTP username and password are set
func (o Options) HasCredentials() bool {
	return o.HTTPUsername != "" && o.HTTPPassword != ""
}

// PollingEnabled reports whether telemetry polling should run
func (o Options) PollingEnabled() bool {
	return o.HTTPPollInterval > 0 && o.HasCredentials()
}

// RestartFree reports whether switching from o to next needs no transport
// or poller restart: everything except logging verbosity is unchanged.
func (o Options) RestartFree(next Options) bool {
	o.DebugLogging = next.DebugLogging
	return o == next
}

// ValidationError describes one raw field that was out of range or of the
// wrong type. The field is normalized rather than rejected.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Message)
}

// ParseOptions derives Options from a loosely typed configuration map.
// Invalid fields are normalized and reported; parsing never fails.
func ParseOptions(raw map[string]any) (Options, []*ValidationError) {
	var opts Options
	var issues []*ValidationError

	if v, ok := raw[FieldHost]; ok && v != nil {
		host := strings.TrimSpace(stringValue(v))
		ip := net.ParseIP(host)
		switch {
		case host == "":
		case ip == nil || ip.To4() == nil:
			issues = append(issues, &ValidationError{Field: FieldHost, Value: v, Message: "must be an IPv4 address"})
		default:
			opts.Host = ip.To4().String()
		}
	}

	opts.Port = DefaultPort
	if v, ok := raw[FieldPort]; ok && v != nil {
		port, err := intValue(v)
		switch {
		case err != nil:
			issues = append(issues, &ValidationError{Field: FieldPort, Value: v, Message: err.Error()})
		case port < 1 || port > 65535:
			issues = append(issues, &ValidationError{Field: FieldPort, Value: v, Message: "must be between 1 and 65535"})
		default:
			opts.Port = port
		}
	}

	if v, ok := raw[FieldHTTPUsername]; ok && v != nil {
		opts.HTTPUsername = stringValue(v)
	}
	if v, ok := raw[FieldHTTPPassword]; ok && v != nil {
		opts.HTTPPassword = stringValue(v)
	}

	if v, ok := raw[FieldHTTPPollInterval]; ok && v != nil {
		ms, err := intValue(v)
		switch {
		case err != nil:
			issues = append(issues, &ValidationError{Field: FieldHTTPPollInterval, Value: v, Message: err.Error()})
		case ms < 0:
			issues = append(issues, &ValidationError{Field: FieldHTTPPollInterval, Value: v, Message: "must not be negative"})
		case int64(ms) > MaxPollInterval.Milliseconds():
			issues = append(issues, &ValidationError{Field: FieldHTTPPollInterval, Value: v, Message: "clamped to 60000"})
			opts.HTTPPollInterval = MaxPollInterval
		default:
			opts.HTTPPollInterval = time.Duration(ms) * time.Millisecond
		}
	}

	if v, ok := raw[FieldDebugLogging]; ok && v != nil {
		b, err := boolValue(v)
		if err != nil {
			issues = append(issues, &ValidationError{Field: FieldDebugLogging, Value: v, Message: err.Error()})
		}
		opts.DebugLogging = b
	}

	return opts, issues
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func intValue(v any) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int(val), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, fmt.Errorf("must be a number")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("must be a number")
	}
}

func boolValue(v any) (bool, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, fmt.Errorf("must be true or false")
		}
		return b, nil
	case int:
		return val != 0, nil
	default:
		return false, fmt.Errorf("must be true or false")
	}
}
