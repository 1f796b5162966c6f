package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a camera found on the network
type Device struct {
	// Name is the mDNS service instance name (e.g., "PTZ-Studio")
	Name string

	// Hostname is the mDNS hostname (e.g., "ptzoptics-a1b2.local.")
	Hostname string

	// IP is the camera address, IPv4 when advertised
	IP string

	// Port is the HTTP port (typically 80)
	Port int

	// ViscaPort is the VISCA-over-TCP port from the "visca_port" TXT
	// record, or DefaultViscaPort
	ViscaPort int

	// Model is the "model" TXT record, if any
	Model string

	// Metadata holds every TXT record
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	name := d.Name
	if d.Model != "" {
		name += " [" + d.Model + "]"
	}
	return fmt.Sprintf("%s (%s) at %s", name, d.Hostname, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)))
}

// BaseURL returns the camera's web root
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a TXT value by key, or "" when absent
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}
