package camhttp

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"testing"
)

// timeoutError implements net.Error with Timeout() = true
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantType    ErrorType
		wantSubtype NetworkErrorSubtype
	}{
		{
			name: "timeout",
			err: &url.Error{Op: "Get", URL: "http://192.168.1.50", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: &timeoutError{},
			}},
			wantType:    ErrTypeTimeout,
			wantSubtype: NetworkErrorTimeout,
		},
		{
			name: "connection refused",
			err: &url.Error{Op: "Get", URL: "http://192.168.1.50", Err: &net.OpError{
				Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED,
			}},
			wantType:    ErrTypeConnectionRefused,
			wantSubtype: NetworkErrorConnectionRefused,
		},
		{
			name:        "dns",
			err:         &net.DNSError{Err: "no such host", Name: "camera.local", IsNotFound: true},
			wantType:    ErrTypeDNS,
			wantSubtype: NetworkErrorDNS,
		},
		{
			name:        "host unreachable",
			err:         &net.OpError{Op: "dial", Net: "tcp", Err: syscall.EHOSTUNREACH},
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorHostUnreachable,
		},
		{
			name:        "generic",
			err:         errors.New("connection reset"),
			wantType:    ErrTypeNetwork,
			wantSubtype: NetworkErrorGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devErr := ClassifyNetworkError(tt.err)
			if devErr == nil {
				t.Fatal("ClassifyNetworkError() = nil")
			}
			if devErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", devErr.Type, tt.wantType)
			}
			if devErr.NetworkSubtype != tt.wantSubtype {
				t.Errorf("NetworkSubtype = %v, want %v", devErr.NetworkSubtype, tt.wantSubtype)
			}
			if !IsNetworkError(devErr) {
				t.Error("IsNetworkError() = false")
			}
		})
	}
}

func TestClassifyNetworkError_Nil(t *testing.T) {
	if ClassifyNetworkError(nil) != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestNewStatusError(t *testing.T) {
	err := NewStatusError(PathDeviceConf, http.StatusUnauthorized)
	if !IsAuthError(err) || !IsHTTPError(err) {
		t.Errorf("401 should be both auth and HTTP error: %v", err)
	}

	err = NewStatusError(PathDeviceConf, http.StatusBadGateway)
	if IsAuthError(err) {
		t.Error("502 should not be an auth error")
	}
	if err.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode = %d", err.StatusCode)
	}
	if !strings.Contains(err.Error(), PathDeviceConf) {
		t.Errorf("Error() = %q, should name the path", err.Error())
	}
}

func TestPredicates_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("identity fetch: %w", NewDecodeError(PathDeviceConf, "text/html", errors.New("bad")))

	if !IsDecodeError(wrapped) {
		t.Error("IsDecodeError should see through wrapping")
	}
	if IsHTTPError(wrapped) || IsNetworkError(wrapped) {
		t.Error("decode error misclassified")
	}
	if IsDecodeError(errors.New("plain")) {
		t.Error("plain error is not a decode error")
	}
}

func TestErrorTypeString(t *testing.T) {
	tests := map[ErrorType]string{
		ErrTypeNetwork: "Network Error",
		ErrTypeAuth:    "Authentication Error",
		ErrTypeHTTP:    "HTTP Error",
		ErrTypeDecode:  "Decode Error",
		ErrorType(99):  "ErrorType(99)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(typ), got, want)
		}
	}
}

func TestShortMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{NewStatusError("/", http.StatusUnauthorized), "Authentication failed - check HTTP username and password"},
		{NewStatusError("/", http.StatusInternalServerError), "Camera error (HTTP 500)"},
		{NewDecodeError("/", "text/html", nil), "Failed to parse camera response"},
		{errors.New("other"), "other"},
	}
	for _, tt := range tests {
		if got := ShortMessage(tt.err); got != tt.want {
			t.Errorf("ShortMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
