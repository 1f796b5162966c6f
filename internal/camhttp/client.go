package camhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/icholy/digest"

	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultPort is the camera's web interface port
	DefaultPort = 80

	// maxBodySize caps how much of a CGI response is read
	maxBodySize = 1 << 20
)

// CGI paths on the camera
const (
	PathDeviceConf       = "/cgi-bin/param.cgi?get_device_conf"
	PathTallyStatus      = "/cgi-bin/param.cgi?get_tally_status"
	PathAdvanceImageConf = "/cgi-bin/param.cgi?get_advance_image_conf"
)

// attributePattern matches key="value" pairs in the camera's non-JSON bodies
var attributePattern = regexp.MustCompile(`(\w+)="([^"]*)"`)

// Result is a decoded CGI response. Data is always a flat object:
// the "data" member of a JSON object, the JSON object itself, or the
// key="value" pairs of an attribute-text body. Raw holds the decoded
// JSON value unchanged (or the attribute map for attribute-text bodies).
type Result struct {
	Data map[string]any
	Raw  any
}

// String returns the named field of Data formatted as a string
func (r *Result) String(key string) (string, bool) {
	if r == nil || r.Data == nil {
		return "", false
	}
	v, ok := r.Data[key]
	if !ok || v == nil {
		return "", false
	}
	return FormatValue(v), true
}

// Config holds the connection settings for one camera
type Config struct {
	// BaseURL is the camera's web root (e.g., "http://192.168.1.50")
	BaseURL string

	// Username and Password are the digest credentials
	Username string
	Password string

	// Timeout bounds each request (default: DefaultTimeout)
	Timeout time.Duration

	// Transport is the underlying round tripper (default: http.DefaultTransport)
	Transport http.RoundTripper
}

// Client issues authenticated requests against one camera. The credentials
// are fixed for the lifetime of the Client; a credential change means a new
// Client.
type Client struct {
	cfg Config

	once       sync.Once
	httpClient *http.Client
}

// NewClient creates a client for a camera's web interface
// host: Camera IP address (e.g., "192.168.1.50")
func NewClient(host, username, password string) *Client {
	return New(Config{
		BaseURL:  fmt.Sprintf("http://%s:%d", host, DefaultPort),
		Username: username,
		Password: password,
	})
}

// New creates a client from a full Config
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg}
}

// BaseURL returns the camera's web root
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// HasCredentials reports whether both username and password are set
func (c *Client) HasCredentials() bool {
	return c.cfg.Username != "" && c.cfg.Password != ""
}

// authClient returns the cached digest-authenticated client, building it on first use
func (c *Client) authClient() *http.Client {
	c.once.Do(func() {
		base := c.cfg.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.httpClient = &http.Client{
			Timeout: c.cfg.Timeout,
			Transport: &digest.Transport{
				Username:  c.cfg.Username,
				Password:  c.cfg.Password,
				Transport: base,
			},
		}
	})
	return c.httpClient
}

// Get issues a GET request for path
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Request(ctx, path, http.MethodGet)
}

// Post issues a POST request for path with an empty body
func (c *Client) Post(ctx context.Context, path string) (*Result, error) {
	return c.Request(ctx, path, http.MethodPost)
}

// Request performs one authenticated request and decodes the response
func (c *Client) Request(ctx context.Context, path, method string) (*Result, error) {
	url := c.cfg.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, NewNetworkError(path, "failed to create request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Cache-Control", "no-cache")

	logging.LogHTTPRequest(method, url)

	resp, err := c.authClient().Do(req)
	if err != nil {
		return nil, NewNetworkError(path, method+" request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, NewNetworkError(path, "failed to read response body", err)
	}

	contentType := resp.Header.Get("Content-Type")
	logging.LogHTTPResponse(url, resp.StatusCode, contentType, body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewStatusError(path, resp.StatusCode)
	}

	result, err := Decode(contentType, body)
	if err != nil {
		return nil, NewDecodeError(path, contentType, err)
	}
	return result, nil
}

// Decode turns a CGI response body into a Result.
//
// A JSON content type is decoded as JSON. Anything else is first scanned
// for key="value" attributes; if none are found the body is tried as JSON
// anyway, since the camera does not label its payloads reliably.
func Decode(contentType string, body []byte) (*Result, error) {
	if strings.Contains(strings.ToLower(contentType), "json") {
		return decodeJSON(body)
	}

	if attrs := ParseAttributes(body); len(attrs) > 0 {
		data := make(map[string]any, len(attrs))
		for k, v := range attrs {
			data[k] = v
		}
		return &Result{Data: data, Raw: attrs}, nil
	}

	return decodeJSON(body)
}

// ParseAttributes extracts every key="value" pair in body. Later
// occurrences of a key overwrite earlier ones.
func ParseAttributes(body []byte) map[string]string {
	matches := attributePattern.FindAllSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(matches))
	for _, m := range matches {
		attrs[string(m[1])] = string(m[2])
	}
	return attrs
}

func decodeJSON(body []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid JSON: trailing data after value")
	}

	result := &Result{Raw: raw}
	if obj, ok := raw.(map[string]any); ok {
		if inner, ok := obj["data"].(map[string]any); ok {
			result.Data = inner
		} else {
			result.Data = obj
		}
	}
	return result, nil
}

// FormatValue renders a decoded value as the string published to the host
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return fmt.Sprintf("%v", val)
	case int, int64:
		return fmt.Sprintf("%d", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
