package discovery

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/logging"
)

const (
	// ServiceType is the mDNS service type cameras advertise their web UI under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the HTTP port assumed when an entry advertises none
	DefaultPort = 80

	// DefaultViscaPort is the VISCA-over-TCP port assumed when no TXT record names one
	DefaultViscaPort = 5678
)

// cameraPattern matches instance or host names of PTZ cameras
var cameraPattern = regexp.MustCompile(`(?i)(ptz|visca)`)

// Scanner browses mDNS for cameras
type Scanner struct {
	// Timeout is the maximum time to wait for answers
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Scan browses for the scanner's timeout and returns every camera that
// answered, deduplicated by address and sorted by name.
func (s *Scanner) Scan(ctx context.Context) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu      sync.Mutex
		devices = make(map[string]*Device)
	)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			device := ParseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if _, seen := devices[device.IP]; !seen {
				logging.Debug("Camera discovered",
					zap.String("name", device.Name),
					zap.String("ip", device.IP),
				)
				devices[device.IP] = device
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return sortDevices(devices), nil
}

// Find waits for the camera advertising the given instance name or address
func (s *Scanner) Find(ctx context.Context, nameOrIP string) (*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	found := make(chan *Device, 1)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			device := ParseServiceEntry(entry)
			if device == nil {
				continue
			}
			if strings.EqualFold(device.Name, nameOrIP) || device.IP == nameOrIP {
				select {
				case found <- device:
				default:
				}
				cancel()
				return
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case device := <-found:
		return device, nil
	case <-ctx.Done():
		select {
		case device := <-found:
			return device, nil
		default:
		}
		return nil, fmt.Errorf("camera %s not found within %s", nameOrIP, s.Timeout)
	}
}

// ParseServiceEntry converts a zeroconf entry into a Device. It returns nil
// for entries that do not look like a PTZ camera or carry no address.
func ParseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || entry.HostName == "" {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if !isCamera(entry.Instance, entry.HostName, metadata) {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	viscaPort := DefaultViscaPort
	if v, err := strconv.Atoi(metadata["visca_port"]); err == nil && v > 0 && v <= 65535 {
		viscaPort = v
	}

	name := entry.Instance
	if name == "" {
		name = strings.TrimSuffix(strings.TrimSuffix(entry.HostName, "."), ".local")
	}

	return &Device{
		Name:         name,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		ViscaPort:    viscaPort,
		Model:        metadata["model"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// isCamera accepts entries whose names mention PTZ/VISCA or whose TXT
// records advertise a VISCA port
func isCamera(instance, hostname string, metadata map[string]string) bool {
	if _, ok := metadata["visca_port"]; ok {
		return true
	}
	return cameraPattern.MatchString(instance) ||
		cameraPattern.MatchString(hostname) ||
		cameraPattern.MatchString(metadata["model"])
}

// parseTXT splits "key=value" records; a bare key maps to ""
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		key, value, _ := strings.Cut(txt, "=")
		if key == "" {
			continue
		}
		metadata[strings.ToLower(key)] = value
	}
	return metadata
}

func sortDevices(devices map[string]*Device) []*Device {
	out := make([]*Device, 0, len(devices))
	for _, d := range devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].IP < out[j].IP
	})
	return out
}

// QuickScan performs a scan with the given timeout
func QuickScan(ctx context.Context, timeout time.Duration) ([]*Device, error) {
	scanner := NewScanner()
	if timeout > 0 {
		scanner.Timeout = timeout
	}
	return scanner.Scan(ctx)
}
