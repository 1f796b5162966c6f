// Package firmware checks a camera's firmware against the vendor's
// per-model release descriptor.
package firmware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/ptzlink/internal/urls"
	"github.com/muurk/ptzlink/internal/version"
)

// NoUpdate is published when the camera runs the latest release
const NoUpdate = "0"

// DefaultTimeout bounds the descriptor request
const DefaultTimeout = 10 * time.Second

// descriptor is the RVU.json document
type descriptor struct {
	Data struct {
		SocVersion string `json:"soc_version"`
		LogName    string `json:"log_name"`
	} `json:"data"`
}

// Advisory is the outcome of one check
type Advisory struct {
	// Current is the normalized version the camera reported
	Current string
	// Latest is the version the vendor advertises
	Latest string
	// LogName is the vendor's changelog file for Latest
	LogName string
	// Available is Latest when it is newer than Current, otherwise NoUpdate
	Available string
}

// Checker fetches firmware descriptors
type Checker struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewChecker creates a Checker against the vendor host
func NewChecker() *Checker {
	return &Checker{
		BaseURL:    urls.FirmwareBase,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Check fetches the descriptor for model and compares it with deviceVersion,
// the raw version string the camera reports (e.g. "SOC v6.3.34 - ARM 7.1.41")
func (c *Checker) Check(ctx context.Context, model, deviceVersion string) (*Advisory, error) {
	if model == "" {
		return nil, fmt.Errorf("camera model unknown")
	}

	url := strings.TrimRight(c.BaseURL, "/") + "/" + model + "/RVU.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create firmware request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firmware descriptor request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firmware descriptor returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read firmware descriptor: %w", err)
	}

	var d descriptor
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("failed to parse firmware descriptor: %w", err)
	}
	if d.Data.SocVersion == "" {
		return nil, fmt.Errorf("firmware descriptor has no soc_version")
	}

	adv := &Advisory{
		Current:   NormalizeDeviceVersion(deviceVersion),
		Latest:    strings.TrimSpace(d.Data.SocVersion),
		LogName:   d.Data.LogName,
		Available: NoUpdate,
	}
	if Compare(adv.Latest, adv.Current) > 0 {
		adv.Available = adv.Latest
	}
	return adv, nil
}

// NormalizeDeviceVersion drops everything up to and including the first
// " v" and anything after the next space:
// "SOC v6.3.34 - ARM 7.1.41" -> "6.3.34"
func NormalizeDeviceVersion(s string) string {
	if i := strings.Index(s, " v"); i >= 0 {
		s = s[i+2:]
	}
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	return s
}

// Compare orders dotted numeric versions, returning -1, 0 or 1. Segments
// that are not numbers are compared as strings.
func Compare(a, b string) int {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")

	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y string
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := compareSegment(x, y); c != 0 {
			return c
		}
	}
	return 0
}

func compareSegment(x, y string) int {
	xn, xerr := strconv.Atoi(orZero(x))
	yn, yerr := strconv.Atoi(orZero(y))
	if xerr == nil && yerr == nil {
		switch {
		case xn < yn:
			return -1
		case xn > yn:
			return 1
		}
		return 0
	}
	return strings.Compare(x, y)
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
